package raptor

import (
	"time"

	"raptor.transitrouter.org/internal/transit"
)

// annotateDelays fills the delay fields of u from the trip's real-time data.
// A trip only counts as having delay info when its boarding stop has some.
func annotateDelays(u *UsedTrip, trip *transit.Trip, date transit.Date, board int, lookup transit.DelayLookup, now time.Time) {
	u.HasDelayInfo, u.DelayWhenBoarded, u.CurrentDelay = false, 0, 0
	if lookup == nil || !lookup.TripHasDelayData(date, trip.ID) {
		return
	}
	_, departure, ok := lookup.TryGetDelay(date, trip.ID, board)
	if !ok {
		return
	}
	u.HasDelayInfo = true
	u.DelayWhenBoarded = departure
	u.CurrentDelay = currentTripDelay(trip, date, lookup, now)
}

// currentTripDelay is the departure delay at the last stop the trip has
// already left at now.
func currentTripDelay(trip *transit.Trip, date transit.Date, lookup transit.DelayLookup, now time.Time) int {
	delays, ok := lookup.TripStopDelays(date, trip.ID)
	if !ok {
		return 0
	}
	loc := trip.Route.Location()
	current := 0
	for i := 1; i < len(trip.StopTimes); i++ {
		_, departure, known := delays.TryGet(i)
		if !known {
			break
		}
		if date.Unix(trip.StopTimes[i].Departure, loc)+int64(departure) > now.Unix() {
			break
		}
		current = departure
	}
	return current
}

// UpdateDelays returns copies of results with the delay fields of every
// trip refreshed from the current real-time data.
func (r *Router) UpdateDelays(results []*SearchResult) []*SearchResult {
	now := r.clock.Now()
	out := make([]*SearchResult, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		updated := *res
		updated.UsedTrips = make([]UsedTrip, len(res.UsedTrips))
		for i, t := range res.UsedTrips {
			updated.UsedTrips[i] = r.refreshTrip(t, now)
		}
		updated.UsedTripAlternatives = make([]TripAlternatives, len(res.UsedTripAlternatives))
		for i, alts := range res.UsedTripAlternatives {
			fresh := TripAlternatives{Count: alts.Count, CurrIndex: alts.CurrIndex, Alternatives: make([]UsedTrip, len(alts.Alternatives))}
			for j, t := range alts.Alternatives {
				fresh.Alternatives[j] = r.refreshTrip(t, now)
			}
			updated.UsedTripAlternatives[i] = fresh
		}
		out = append(out, &updated)
	}
	return out
}

func (r *Router) refreshTrip(u UsedTrip, now time.Time) UsedTrip {
	u.HasDelayInfo, u.DelayWhenBoarded, u.CurrentDelay = false, 0, 0
	date, ok := r.tripDate(u)
	if !ok {
		return u
	}
	if trip, found := r.transit.Trip(u.TripID); found && u.GetOnStopIndex < len(trip.StopTimes) {
		annotateDelays(&u, trip, date, u.GetOnStopIndex, r.delays, now)
		return u
	}
	// The trip is gone from the timetable; delays can still be read, but
	// not the current one.
	if _, departure, known := r.delays.TryGetDelay(date, u.TripID, u.GetOnStopIndex); known {
		u.HasDelayInfo = true
		u.DelayWhenBoarded = departure
	}
	return u
}

// tripDate is the service day of a trip sent back by a client: its tripDate,
// or the day of its first departure.
func (r *Router) tripDate(u UsedTrip) (transit.Date, bool) {
	if u.TripDate != "" {
		if d, err := transit.ParseDate(u.TripDate); err == nil {
			return d, true
		}
	}
	if len(u.StopPasses) == 0 {
		return 0, false
	}
	return transit.DateOf(u.StopPasses[0].DepartureTime, r.transit.Location()), true
}
