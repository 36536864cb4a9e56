package raptor

import (
	"errors"
	"fmt"

	"raptor.transitrouter.org/internal/transit"
)

// ErrInconsistentState means the routing state contradicts itself while a
// result is rebuilt from it.
var ErrInconsistentState = errors.New("inconsistent routing state")

// alternativeWindow is how much worse than the best a result of another
// round may be and still be offered.
const alternativeWindow = 5 * 60

type roundBest struct {
	point    int
	reach    int64
	adjusted int64
	result   *SearchResult
}

// bestEndInRound finds the search end point reached best in round, counting
// the walk to a custom end. For round > 0 the point must be reached better
// than in every earlier round.
func (s *session) bestEndInRound(round int) (int, int64, bool) {
	best, bestPoint := s.cmp.WorstTime(), -1
	consider := func(point int) {
		t := s.store.BestInRound(point, round)
		if t == s.cmp.WorstTime() {
			return
		}
		reach, ok := s.endTime(point, t)
		if !ok || !s.cmp.Improves(reach, best) {
			return
		}
		if round > 0 && !s.betterThanEarlierRounds(point, round) {
			return
		}
		best, bestPoint = reach, point
	}
	for _, st := range s.endStops {
		consider(st.Index)
	}
	for _, b := range s.endStations {
		consider(s.stationPoint(b))
	}
	return bestPoint, best, bestPoint >= 0
}

func (s *session) betterThanEarlierRounds(point, round int) bool {
	earlier := s.cmp.WorstTime()
	for r := 0; r < round; r++ {
		if t := s.store.BestInRound(point, r); s.cmp.Improves(t, earlier) {
			earlier = t
		}
	}
	return s.cmp.Improves(s.store.BestInRound(point, round), earlier)
}

// roundResults builds the best result of every round. Rounds without a
// result are nil.
func (s *session) roundResults() ([Rounds + 1]*roundBest, error) {
	var out [Rounds + 1]*roundBest
	penalty := int64(s.settings.TransferPenaltySeconds())
	for r := 0; r <= Rounds; r++ {
		point, reach, ok := s.bestEndInRound(r)
		if !ok {
			continue
		}
		res, err := s.buildResult(point, r)
		if err != nil {
			return out, err
		}
		if len(res.UsedSegmentTypes) == 0 {
			continue
		}
		transfers := 0
		if r > 0 {
			transfers = r - 1
		}
		if res.UsedSegmentTypes[0] == SegmentTransfer {
			transfers++
		}
		if res.UsedSegmentTypes[len(res.UsedSegmentTypes)-1] == SegmentTransfer {
			transfers++
		}
		out[r] = &roundBest{
			point:    point,
			reach:    reach,
			adjusted: reach + s.cmp.Sign()*int64(transfers)*penalty,
			result:   res,
		}
	}
	return out, nil
}

func (s *session) bestRound(rounds [Rounds + 1]*roundBest) int {
	best, bestTime := -1, s.cmp.WorstTime()
	for r, rb := range rounds {
		if rb != nil && s.cmp.Improves(rb.adjusted, bestTime) {
			best, bestTime = r, rb.adjusted
		}
	}
	return best
}

// ExtractResult returns the single best result, or nil when the search end
// was not reached.
func (s *session) ExtractResult() (*SearchResult, error) {
	rounds, err := s.roundResults()
	if err != nil {
		return nil, err
	}
	best := s.bestRound(rounds)
	if best < 0 {
		return nil, nil
	}
	return rounds[best].result, nil
}

// ExtractResultWithAlternatives also returns the results of other rounds
// that are at most alternativeWindow worse than the best one.
func (s *session) ExtractResultWithAlternatives() ([]*SearchResult, error) {
	rounds, err := s.roundResults()
	if err != nil {
		return nil, err
	}
	best := s.bestRound(rounds)
	if best < 0 {
		return nil, nil
	}
	bound := rounds[best].adjusted + s.cmp.Sign()*alternativeWindow
	var out []*SearchResult
	for _, rb := range rounds {
		if rb != nil && s.cmp.Improves(rb.adjusted, bound) {
			out = append(out, rb.result)
		}
	}
	return out, nil
}

// buildResult walks the routing state back from point in round to the
// search begin.
func (s *session) buildResult(point, round int) (*SearchResult, error) {
	var segs []segment
	if s.endCustom != nil {
		ct, ok := s.endCustom.TransferWith(point)
		if !ok {
			return nil, fmt.Errorf("no walk from %s to the search end: %w", s.routePoint(point).Identifier(), ErrInconsistentState)
		}
		segs = append(segs, s.customSegment(ct))
	}

	curr := point
	for r := round; r > 0; r-- {
		e, ok := s.store.Entry(curr, r)
		if !ok {
			return nil, s.missingEntry(curr, r)
		}
		switch e.Kind {
		case EntryTransfer:
			segs = append(segs, s.transferSegment(e.Transfer))
			if s.cmp.Forward {
				curr = e.Transfer.From.Index
			} else {
				curr = e.Transfer.To.Index
			}
		case EntryBikeTransfer:
			segs = append(segs, s.bikeTransferSegment(e.BikeTransfer))
			if s.cmp.Forward {
				curr = s.pointOf(e.BikeTransfer.Source())
			} else {
				curr = s.pointOf(e.BikeTransfer.Destination())
			}
		case EntryTrip, EntryBikeTrip:
			if r != round && s.isStop(curr) {
				segs = append(segs, s.zeroTransferSegment(s.transit.Stops()[curr]))
			}
		case EntryNone, EntryStart, EntryCustomTransfer:
			return nil, fmt.Errorf("%s entry at %s in round %d: %w", e.Kind, s.routePoint(curr).Identifier(), r, ErrInconsistentState)
		default:
			panic(fmt.Sprintf("unsupported entry kind %d", e.Kind))
		}

		e, ok = s.store.Entry(curr, r)
		if !ok {
			return nil, s.missingEntry(curr, r)
		}
		switch e.Kind {
		case EntryTrip:
			if e.Trip == nil || e.Other == nil {
				return nil, fmt.Errorf("trip entry without trip at %s in round %d: %w", s.routePoint(curr).Identifier(), r, ErrInconsistentState)
			}
			segs = append(segs, s.tripSegment(e))
			curr = e.Other.Index
		case EntryBikeTrip:
			segs = append(segs, s.bikeTripSegment(e.From, e.To))
			curr = s.stationPoint(e.From)
		case EntryNone, EntryStart, EntryTransfer, EntryBikeTransfer, EntryCustomTransfer:
			return nil, fmt.Errorf("%s entry follows a walk at %s in round %d: %w", e.Kind, s.routePoint(curr).Identifier(), r, ErrInconsistentState)
		default:
			panic(fmt.Sprintf("unsupported entry kind %d", e.Kind))
		}
	}

	e, ok := s.store.Entry(curr, 0)
	if !ok {
		return nil, s.missingEntry(curr, 0)
	}
	switch e.Kind {
	case EntryStart:
	case EntryTransfer:
		segs = append(segs, s.transferSegment(e.Transfer))
	case EntryBikeTransfer:
		segs = append(segs, s.bikeTransferSegment(e.BikeTransfer))
	case EntryCustomTransfer:
		segs = append(segs, s.customSegment(e.Custom))
	case EntryNone, EntryTrip, EntryBikeTrip:
		return nil, fmt.Errorf("%s entry at %s in round 0: %w", e.Kind, s.routePoint(curr).Identifier(), ErrInconsistentState)
	default:
		panic(fmt.Sprintf("unsupported entry kind %d", e.Kind))
	}

	if s.cmp.Forward {
		for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
			segs[i], segs[j] = segs[j], segs[i]
		}
	}
	return newSearchResult(segs, s.cmp.Forward, s.begin, s.transit.Location()), nil
}

func (s *session) missingEntry(point, round int) error {
	return fmt.Errorf("no entry at %s in round %d: %w", s.routePoint(point).Identifier(), round, ErrInconsistentState)
}

func (s *session) walkSegment(from, to transit.RoutePoint, distance, seconds int) segment {
	return segment{
		kind: SegmentTransfer,
		transfer: &UsedTransfer{
			SrcStopInfo:  newStopInfo(from),
			DestStopInfo: newStopInfo(to),
			Time:         seconds,
			Distance:     distance,
		},
		path: []transit.Coordinates{from.Location(), to.Location()},
	}
}

func (s *session) transferSegment(t *transit.Transfer) segment {
	return s.walkSegment(t.From, t.To, t.Distance, s.transferCost(t.Distance, false))
}

// zeroTransferSegment is the change between two trips at the same stop.
func (s *session) zeroTransferSegment(st *transit.Stop) segment {
	return s.walkSegment(st, st, 0, s.transferCost(0, false))
}

func (s *session) bikeTransferSegment(t *transit.BikeTransfer) segment {
	// The walk ends at the station in search direction when the search
	// enters the station through it.
	toStation := t.ToStation == s.cmp.Forward
	return s.walkSegment(t.Source(), t.Destination(), t.Distance, s.transferCost(t.Distance, toStation))
}

func (s *session) customSegment(t *CustomTransfer) segment {
	return s.walkSegment(t.Source(), t.Destination(), t.Distance, s.settings.AdjustedWalkingTime(t.Distance))
}

func (s *session) bikeTripSegment(from, to *transit.BikeStation) segment {
	distance := s.bikes.DistanceBetween(from, to)
	if !s.cmp.Forward {
		from, to = to, from
	}
	return segment{
		kind: SegmentBike,
		bike: &UsedBikeTrip{
			SrcStationInfo:  newStopInfo(from),
			DestStationInfo: newStopInfo(to),
			Distance:        distance,
			Time:            s.settings.BikeTripTime(distance),
			TotalTime:       s.settings.AdjustedBikeTripTime(distance),
		},
		path: []transit.Coordinates{from.Coords, to.Coords},
	}
}

func (s *session) tripSegment(e *Entry) segment {
	on, off := e.OtherIndex, e.Index
	if !s.cmp.Forward {
		on, off = off, on
	}
	trip, date := e.Trip, e.Date
	loc := trip.Route.Location()

	used := newUsedTrip(trip, date, on, off)
	annotateDelays(&used, trip, date, on, s.delays, s.now)

	_, boardDelay, _ := transit.StopDelayOrLast(s.delays, date, trip.ID, on)
	alightDelay, _, _ := transit.StopDelayOrLast(s.delays, date, trip.ID, off)
	board := date.Unix(trip.StopTimes[on].Departure, loc) + int64(boardDelay)
	alight := date.Unix(trip.StopTimes[off].Arrival, loc) + int64(alightDelay)

	path := make([]transit.Coordinates, 0, off-on+1)
	for i := on; i <= off; i++ {
		path = append(path, trip.Route.Stops[i].Coords)
	}
	return segment{kind: SegmentTrip, trip: &used, board: board, alight: alight, path: path}
}
