package raptor

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"raptor.transitrouter.org/internal/logging"
	"raptor.transitrouter.org/internal/transit"
)

const (
	// rangeTimesPerRoute is how many departures of each begin route are
	// looked at.
	rangeTimesPerRoute = 5
	// rangeSearches is how many departure times a range search runs.
	rangeSearches = 5
)

// beginOffsets maps every stop a range search can start its first trip at
// to the walk needed to get there.
func (r *Router) beginOffsets(q Query, byCoords bool, name string, c transit.Coordinates) map[*transit.Stop]int {
	offsets := make(map[*transit.Stop]int)
	put := func(st *transit.Stop, seconds int) {
		if old, ok := offsets[st]; !ok || seconds < old {
			offsets[st] = seconds
		}
	}
	if byCoords {
		for _, sd := range r.transit.StopsWithDistances(c, float64(q.Settings.MaxTransferDistance())) {
			put(sd.Stop, q.Settings.AdjustedWalkingTime(sd.Distance))
		}
		return offsets
	}
	for _, st := range r.transit.StopsByName(name) {
		put(st, 0)
		for _, t := range st.Transfers {
			put(t.To, q.Settings.AdjustedWalkingTime(t.Distance))
		}
	}
	return offsets
}

// rangeTimes lists the search begin times of a range search: the first
// departures (or last arrivals) of every route at the begin stops, rounded
// to whole minutes.
func (r *Router) rangeTimes(q Query, offsets map[*transit.Stop]int) []time.Time {
	seen := make(map[int64]bool)
	var times []int64
	for st, offset := range offsets {
		for _, route := range st.Routes {
			var idx int
			var ok bool
			if q.Forward {
				idx, ok = route.FirstStopIndex(st)
			} else {
				idx, ok = route.LastStopIndex(st)
			}
			if !ok {
				continue
			}
			for _, t := range route.FirstNTripTimesAtStop(q.Forward, idx, q.Time.Unix(), offset, rangeTimesPerRoute) {
				t = roundToMinute(t, q.Forward)
				if !seen[t] {
					seen[t] = true
					times = append(times, t)
				}
			}
		}
	}

	sort.Slice(times, func(i, j int) bool {
		if q.Forward {
			return times[i] < times[j]
		}
		return times[i] > times[j]
	})
	if len(times) > rangeSearches {
		times = times[:rangeSearches]
	}

	out := make([]time.Time, len(times))
	for i, t := range times {
		out[i] = time.Unix(t, 0).In(q.Time.Location())
	}
	return out
}

// roundToMinute rounds down when searching forward and up otherwise, so the
// rounded time still catches the departure it came from.
func roundToMinute(t int64, forward bool) int64 {
	sec := t % 60
	if sec == 0 {
		return t
	}
	if forward {
		return t - sec
	}
	return t + 60 - sec
}

// rangeSearch runs one search with alternatives per begin time in parallel.
// A failed search is logged and counted but does not fail the others.
func (r *Router) rangeSearch(ctx context.Context, req ConnectionRequest) ([]*SearchResult, error) {
	base := r.query(req, *req.DateTime, true)
	var offsets map[*transit.Stop]int
	if base.Forward {
		offsets = r.beginOffsets(base, req.SrcByCoords, req.SrcStopName, req.srcCoords())
	} else {
		offsets = r.beginOffsets(base, req.DestByCoords, req.DestStopName, req.destCoords())
	}
	times := r.rangeTimes(base, offsets)

	perTask := make([][]*SearchResult, len(times))
	var g errgroup.Group
	for i, t := range times {
		q := base
		q.Time = t
		g.Go(func() error {
			res, err := r.Search(ctx, q)
			if err != nil {
				logging.LogError(r.logger, "range search task failed", err, slog.Time("time", t))
				r.Metrics.IncRangeTaskFailures()
				return nil
			}
			perTask[i] = res
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var merged []*SearchResult
	for _, res := range perTask {
		merged = append(merged, res...)
	}
	return dedupeRange(merged, base.Forward), nil
}

// dedupeRange drops results another result with the same arrival (forward)
// or departure (backward) makes pointless, then orders by departure.
func dedupeRange(results []*SearchResult, forward bool) []*SearchResult {
	if forward {
		sort.SliceStable(results, func(i, j int) bool {
			a, b := results[i], results[j]
			if !a.ArrivalDateTime.Equal(b.ArrivalDateTime) {
				return a.ArrivalDateTime.Before(b.ArrivalDateTime)
			}
			return a.DepartureDateTime.Before(b.DepartureDateTime)
		})
	} else {
		sort.SliceStable(results, func(i, j int) bool {
			a, b := results[i], results[j]
			if !a.DepartureDateTime.Equal(b.DepartureDateTime) {
				return a.DepartureDateTime.Before(b.DepartureDateTime)
			}
			return a.ArrivalDateTime.Before(b.ArrivalDateTime)
		})
	}

	out := make([]*SearchResult, 0, len(results))
	for i, res := range results {
		if forward {
			// Leaving later for the same arrival is better.
			if i+1 < len(results) && results[i+1].ArrivalDateTime.Equal(res.ArrivalDateTime) {
				continue
			}
		} else if len(out) > 0 && out[len(out)-1].DepartureDateTime.Equal(res.DepartureDateTime) {
			continue
		}
		out = append(out, res)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DepartureDateTime.Before(out[j].DepartureDateTime)
	})
	return out
}
