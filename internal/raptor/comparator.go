package raptor

import "math"

// worstOffset keeps the worst bound far enough from the int64 limits that
// adding any duration to it cannot overflow.
const worstOffset = math.MaxInt64 / 4

// Comparator orders instants and route indices by search direction. In a
// forward search earlier is better; in a backward search later is better.
type Comparator struct {
	Forward bool
}

// Improves reports whether candidate is strictly better than incumbent.
func (c Comparator) Improves(candidate, incumbent int64) bool {
	if c.Forward {
		return candidate < incumbent
	}
	return candidate > incumbent
}

func (c Comparator) ImprovesOrEquals(candidate, incumbent int64) bool {
	return candidate == incumbent || c.Improves(candidate, incumbent)
}

// Precedes reports whether route index a comes before b in search order.
func (c Comparator) Precedes(a, b int) bool {
	if c.Forward {
		return a < b
	}
	return a > b
}

// WorstTime is the bound every real instant improves on.
func (c Comparator) WorstTime() int64 {
	if c.Forward {
		return worstOffset
	}
	return -worstOffset
}

// Sign is the multiplier applied to every duration: +1 forward, -1 backward.
func (c Comparator) Sign() int64 {
	if c.Forward {
		return 1
	}
	return -1
}

// Step is the direction routes are traversed in.
func (c Comparator) Step() int {
	if c.Forward {
		return 1
	}
	return -1
}
