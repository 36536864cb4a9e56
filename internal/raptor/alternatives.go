package raptor

import (
	"context"
	"sort"
	"time"

	"raptor.transitrouter.org/internal/transit"
)

const (
	// equivalentStopRadius is how close another stop must be to count as
	// the same place.
	equivalentStopRadius = 150
	maxAlternatives      = 10
	alternativesWindow   = 14 * 24 * time.Hour
)

// AlternativesRequest asks for direct trips between two stops leaving
// around DateTime. TripID names the trip the client already has.
type AlternativesRequest struct {
	SrcStopID  string    `json:"srcStopId"`
	DestStopID string    `json:"destStopId"`
	DateTime   time.Time `json:"dateTime"`
	Previous   bool      `json:"previous"`
	Count      int       `json:"count"`
	TripID     string    `json:"tripId,omitempty"`
}

type AlternativesResponse struct {
	Error        AlternativesSearchError `json:"error"`
	Alternatives []UsedTrip              `json:"alternatives"`
}

func (req AlternativesRequest) Validate(tm *transit.Model, now time.Time) AlternativesSearchError {
	if req.DateTime.Before(now.Add(-alternativesWindow)) || req.DateTime.After(now.Add(alternativesWindow)) {
		return AltInvalidDateTime
	}
	_, srcOK := tm.Stop(req.SrcStopID)
	_, destOK := tm.Stop(req.DestStopID)
	switch {
	case !srcOK && !destOK:
		return AltNonExistentBothStopIDs
	case !srcOK:
		return AltNonExistentSrcStopID
	case !destOK:
		return AltNonExistentDestStopID
	}
	if req.Count <= 0 || req.Count > maxAlternatives {
		return AltInvalidCount
	}
	return AltNoError
}

// equivalentStops returns the stop, the stops sharing its name and the stops
// nearby, each once.
func (r *Router) equivalentStops(st *transit.Stop) map[*transit.Stop]bool {
	out := map[*transit.Stop]bool{st: true}
	for _, s := range r.transit.StopsByName(st.Name) {
		out[s] = true
	}
	for _, s := range r.transit.StopsByLocation(st.Coords, equivalentStopRadius) {
		out[s] = true
	}
	return out
}

// routeLeg is a route running from a source stop to a later destination
// stop.
type routeLeg struct {
	route     *transit.Route
	srcIndex  int
	destIndex int
}

func (r *Router) connectingRoutes(src, dest map[*transit.Stop]bool) []routeLeg {
	seen := make(map[*transit.Route]bool)
	var legs []routeLeg
	// Visit stops by index so the result does not depend on map order.
	stops := make([]*transit.Stop, 0, len(src))
	for st := range src {
		stops = append(stops, st)
	}
	sort.Slice(stops, func(i, j int) bool { return stops[i].Index < stops[j].Index })

	for _, st := range stops {
		for _, route := range st.Routes {
			if seen[route] {
				continue
			}
			seen[route] = true
			srcIndex := -1
			for i, s := range route.Stops {
				if src[s] {
					srcIndex = i
					break
				}
			}
			if srcIndex < 0 {
				continue
			}
			for i := srcIndex + 1; i < len(route.Stops); i++ {
				if dest[route.Stops[i]] {
					legs = append(legs, routeLeg{route: route, srcIndex: srcIndex, destIndex: i})
					break
				}
			}
		}
	}
	return legs
}

type alternative struct {
	used      UsedTrip
	srcIndex  int
	departure int64
	arrival   int64
}

func (r *Router) alternativesOnLeg(leg routeLeg, req AlternativesRequest, now time.Time) []alternative {
	first, date, ok := leg.route.EarliestTripDepartingAfter(leg.srcIndex, req.DateTime.Unix(), r.delays)
	if !ok {
		return nil
	}
	var dated []transit.DatedTrip
	if req.Previous {
		dated = leg.route.TripsAround(first, date, req.Count, false)
	} else {
		dated = append([]transit.DatedTrip{{Trip: first, Date: date}}, leg.route.TripsAround(first, date, req.Count, true)...)
	}

	loc := leg.route.Location()
	out := make([]alternative, 0, len(dated))
	for _, dt := range dated {
		trip := dt.Trip
		_, depDelay, _ := transit.StopDelayOrLast(r.delays, dt.Date, trip.ID, leg.srcIndex)
		arrDelay, _, _ := transit.StopDelayOrLast(r.delays, dt.Date, trip.ID, leg.destIndex)
		used := newUsedTrip(trip, dt.Date, leg.srcIndex, leg.destIndex)
		annotateDelays(&used, trip, dt.Date, leg.srcIndex, r.delays, now)
		out = append(out, alternative{
			used:      used,
			srcIndex:  leg.srcIndex,
			departure: dt.Date.Unix(trip.StopTimes[leg.srcIndex].Departure, loc) + int64(depDelay),
			arrival:   dt.Date.Unix(trip.StopTimes[leg.destIndex].Arrival, loc) + int64(arrDelay),
		})
	}
	return out
}

// FindAlternatives lists direct trips the rider could take instead of the
// one they have, either following it or preceding it.
func (r *Router) FindAlternatives(ctx context.Context, req AlternativesRequest) (AlternativesResponse, error) {
	start := r.clock.Now()
	if e := req.Validate(r.transit, start); e != AltNoError {
		r.Metrics.ObserveSearch("alternatives", "invalid", r.clock.Now().Sub(start))
		return AlternativesResponse{Error: e}, nil
	}

	src, _ := r.transit.Stop(req.SrcStopID)
	dest, _ := r.transit.Stop(req.DestStopID)
	legs := r.connectingRoutes(r.equivalentStops(src), r.equivalentStops(dest))

	ref := req.DateTime.Unix()
	var candidates []alternative
	for _, leg := range legs {
		if err := ctx.Err(); err != nil {
			return AlternativesResponse{}, err
		}
		for _, a := range r.alternativesOnLeg(leg, req, start) {
			if req.TripID != "" && a.used.TripID == req.TripID {
				continue
			}
			if !req.Previous && a.departure <= ref {
				continue
			}
			candidates = append(candidates, a)
		}
	}

	candidates = pruneDominated(candidates)
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.arrival != b.arrival {
			return a.arrival < b.arrival
		}
		if a.used.TripID != b.used.TripID {
			return a.used.TripID < b.used.TripID
		}
		return a.srcIndex < b.srcIndex
	})

	if len(candidates) > req.Count {
		if req.Previous {
			candidates = candidates[len(candidates)-req.Count:]
		} else {
			candidates = candidates[:req.Count]
		}
	}
	if len(candidates) == 0 {
		r.Metrics.ObserveSearch("alternatives", "not_found", r.clock.Now().Sub(start))
		return AlternativesResponse{Error: AltNoTripsFound}, nil
	}

	trips := make([]UsedTrip, len(candidates))
	for i, a := range candidates {
		trips[i] = a.used
	}
	r.Metrics.ObserveSearch("alternatives", "ok", r.clock.Now().Sub(start))
	return AlternativesResponse{Error: AltNoError, Alternatives: trips}, nil
}

// pruneDominated drops every trip that leaves earlier than another one
// without arriving earlier.
func pruneDominated(in []alternative) []alternative {
	out := make([]alternative, 0, len(in))
	for i, a := range in {
		dominated := false
		for j, b := range in {
			if i != j && a.departure < b.departure && a.arrival >= b.arrival {
				dominated = true
				break
			}
		}
		if !dominated {
			out = append(out, a)
		}
	}
	return out
}
