package raptor

// Store holds the per round entries and the best reach time of every point
// for one search. Points are dense indices, rounds run 0..Rounds. The store
// trusts its callers and validates nothing.
type Store struct {
	entries []Entry
	best    []int64
	worst   int64
}

func NewStore(points int, worst int64) *Store {
	s := &Store{
		entries: make([]Entry, points*(Rounds+1)),
		best:    make([]int64, points),
		worst:   worst,
	}
	for i := range s.best {
		s.best[i] = worst
	}
	return s
}

// Entry returns the entry of point in round, if one was written.
func (s *Store) Entry(point, round int) (*Entry, bool) {
	e := &s.entries[point*(Rounds+1)+round]
	if e.Kind == EntryNone {
		return nil, false
	}
	return e, true
}

func (s *Store) SetEntry(point, round int, e Entry) {
	s.entries[point*(Rounds+1)+round] = e
}

// BestReachTime is the best time point was reached in any round so far.
func (s *Store) BestReachTime(point int) int64 {
	return s.best[point]
}

func (s *Store) SetBestReachTime(point int, t int64) {
	s.best[point] = t
}

// BestInRound is the time of point's entry in round, or the worst bound.
func (s *Store) BestInRound(point, round int) int64 {
	e := &s.entries[point*(Rounds+1)+round]
	if e.Kind == EntryNone {
		return s.worst
	}
	return e.Time
}

func (s *Store) Points() int {
	return len(s.best)
}
