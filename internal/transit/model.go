package transit

import (
	"sort"
	"strings"
	"time"

	"github.com/tidwall/rtree"
	"raptor.transitrouter.org/internal/utils"
)

type StopDistance struct {
	Stop     *Stop
	Distance int
}

// Model is an immutable transit graph. It is built once by a Builder and then
// shared between concurrent searches.
type Model struct {
	loc    *time.Location
	stops  []*Stop
	routes []*Route
	byID   map[string]*Stop
	byName map[string][]*Stop
	names  []string
	trips  map[string]*Trip
	index  rtree.RTreeG[*Stop]
}

func (m *Model) Location() *time.Location {
	return m.loc
}

func (m *Model) Stops() []*Stop {
	return m.stops
}

func (m *Model) Routes() []*Route {
	return m.routes
}

func (m *Model) Stop(id string) (*Stop, bool) {
	s, ok := m.byID[id]
	return s, ok
}

// Trip looks a trip up by its feed ID.
func (m *Model) Trip(id string) (*Trip, bool) {
	t, ok := m.trips[id]
	return t, ok
}

// StopsByName returns every stop whose name matches exactly.
func (m *Model) StopsByName(name string) []*Stop {
	return m.byName[name]
}

// SearchStopNames returns up to limit distinct stop names starting with the
// query, compared case-insensitively.
func (m *Model) SearchStopNames(query string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	var out []string
	for _, name := range m.names {
		if strings.HasPrefix(strings.ToLower(name), query) {
			out = append(out, name)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// StopsByLocation returns the stops within radius meters of c ordered by
// stop index.
func (m *Model) StopsByLocation(c Coordinates, radius float64) []*Stop {
	var out []*Stop
	m.searchRadius(c, radius, func(s *Stop, _ float64) {
		out = append(out, s)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// StopsWithDistances is StopsByLocation with the distance to each stop.
func (m *Model) StopsWithDistances(c Coordinates, radius float64) []StopDistance {
	var out []StopDistance
	m.searchRadius(c, radius, func(s *Stop, d float64) {
		out = append(out, StopDistance{Stop: s, Distance: int(d)})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Stop.Index < out[j].Stop.Index })
	return out
}

func (m *Model) NearStopExists(c Coordinates, radius float64) bool {
	found := false
	m.searchRadius(c, radius, func(*Stop, float64) { found = true })
	return found
}

func (m *Model) searchRadius(c Coordinates, radius float64, fn func(*Stop, float64)) {
	box := utils.BoxAround(c.Lat, c.Lon, radius)
	m.index.Search(box.Min, box.Max,
		func(_, _ [2]float64, s *Stop) bool {
			if d := c.DistanceTo(s.Coords); d <= radius {
				fn(s, d)
			}
			return true
		})
}

// ServiceWindow returns the first and last date any route runs.
func (m *Model) ServiceWindow() (first, last Date, ok bool) {
	for _, r := range m.routes {
		for d := range r.trips {
			if !ok || d < first {
				first = d
			}
			if !ok || d > last {
				last = d
			}
			ok = true
		}
	}
	return first, last, ok
}

// TripCount counts dated trips.
func (m *Model) TripCount() int {
	n := 0
	for _, r := range m.routes {
		for _, trips := range r.trips {
			n += len(trips)
		}
	}
	return n
}

func (m *Model) TransferCount() int {
	n := 0
	for _, s := range m.stops {
		n += len(s.Transfers)
	}
	return n
}
