package transit

import (
	"math"
	"sort"
	"time"
)

// delayLookahead bounds how late a scheduled departure may be before its
// real-time delay is no longer consulted.
const delayLookahead = 2 * 60 * 60

// StopTime holds scheduled times as seconds from the service day reference.
// Times past midnight exceed 24h.
type StopTime struct {
	Arrival   int32
	Departure int32
}

type Trip struct {
	ID        string
	Headsign  string
	Route     *Route
	StopTimes []StopTime
	// Sequences holds the GTFS stop_sequence of every stop time when the
	// trip came from a feed. Real-time updates reference stops by it.
	Sequences []uint32
}

// StopIndexOf resolves a real-time stop reference to a position in the trip.
// The sequence is preferred over the stop ID.
func (t *Trip) StopIndexOf(sequence *uint32, stopID *string) (int, bool) {
	if sequence != nil {
		for i, seq := range t.Sequences {
			if seq == *sequence {
				return i, true
			}
		}
		if len(t.Sequences) == 0 && *sequence >= 1 && int(*sequence) <= len(t.StopTimes) {
			return int(*sequence) - 1, true
		}
	}
	if stopID != nil {
		for i, s := range t.Route.Stops {
			if s.ID == *stopID {
				return i, true
			}
		}
	}
	return 0, false
}

// Route is a sequence of stops served by trips that all stop at exactly those
// stops in that order. One GTFS route can be split into several of these.
type Route struct {
	ID        string
	GTFSID    string
	ShortName string
	LongName  string
	Color     string
	Type      VehicleType
	Stops     []*Stop

	trips      map[Date][]*Trip
	firstIndex map[int]int
	lastIndex  map[int]int
	loc        *time.Location
}

// Name is the label shown to riders.
func (r *Route) Name() string {
	if r.ShortName != "" {
		return r.ShortName
	}
	return r.LongName
}

func (r *Route) Location() *time.Location {
	return r.loc
}

// TripsOn returns the trips starting on service day d, ordered by their
// departure from the first stop.
func (r *Route) TripsOn(d Date) []*Trip {
	return r.trips[d]
}

// ServiceDates lists every date with at least one trip, ascending.
func (r *Route) ServiceDates() []Date {
	dates := make([]Date, 0, len(r.trips))
	for d := range r.trips {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates
}

func (r *Route) FirstStopIndex(s *Stop) (int, bool) {
	i, ok := r.firstIndex[s.Index]
	return i, ok
}

func (r *Route) LastStopIndex(s *Stop) (int, bool) {
	i, ok := r.lastIndex[s.Index]
	return i, ok
}

func (r *Route) addTrip(d Date, t *Trip) {
	if r.trips == nil {
		r.trips = make(map[Date][]*Trip)
	}
	r.trips[d] = append(r.trips[d], t)
}

func (r *Route) finalize(loc *time.Location) {
	r.loc = loc
	r.firstIndex = make(map[int]int, len(r.Stops))
	r.lastIndex = make(map[int]int, len(r.Stops))
	for i, s := range r.Stops {
		if _, seen := r.firstIndex[s.Index]; !seen {
			r.firstIndex[s.Index] = i
		}
		r.lastIndex[s.Index] = i
	}
	for d := range r.trips {
		trips := r.trips[d]
		sort.SliceStable(trips, func(i, j int) bool {
			return trips[i].StopTimes[0].Departure < trips[j].StopTimes[0].Departure
		})
	}
}

// ScheduledArrival is the timetable arrival of trip at stop index i as Unix
// seconds.
func (r *Route) ScheduledArrival(t *Trip, d Date, i int) int64 {
	return d.Unix(t.StopTimes[i].Arrival, r.loc)
}

func (r *Route) ScheduledDeparture(t *Trip, d Date, i int) int64 {
	return d.Unix(t.StopTimes[i].Departure, r.loc)
}

// EarliestTripDepartingAfter finds the trip with the earliest delay-adjusted
// departure at or after t from stop index i. Trips from the previous and the
// next service day are considered as well.
func (r *Route) EarliestTripDepartingAfter(i int, t int64, delays DelayLookup) (*Trip, Date, bool) {
	base := DateOf(time.Unix(t, 0), r.loc)

	var best *Trip
	var bestDate Date
	bestTime := int64(math.MaxInt64)

	for _, d := range [...]Date{base.AddDays(-1), base, base.AddDays(1)} {
		dayBase := d.Base(r.loc)
		for _, trip := range r.trips[d] {
			sched := dayBase + int64(trip.StopTimes[i].Departure)
			if sched+delayLookahead < t {
				continue
			}
			actual := sched
			if delays != nil {
				if _, dep, ok := delays.TryGetDelay(d, trip.ID, i); ok {
					actual += int64(dep)
				}
			}
			if actual >= t && actual < bestTime {
				best, bestDate, bestTime = trip, d, actual
			}
		}
	}
	return best, bestDate, best != nil
}

// LatestTripArrivingBefore finds the trip with the latest delay-adjusted
// arrival at or before t at stop index i.
func (r *Route) LatestTripArrivingBefore(i int, t int64, delays DelayLookup) (*Trip, Date, bool) {
	base := DateOf(time.Unix(t, 0), r.loc)

	var best *Trip
	var bestDate Date
	bestTime := int64(math.MinInt64)

	for _, d := range [...]Date{base, base.AddDays(-1)} {
		dayBase := d.Base(r.loc)
		trips := r.trips[d]
		for k := len(trips) - 1; k >= 0; k-- {
			trip := trips[k]
			actual := dayBase + int64(trip.StopTimes[i].Arrival)
			if delays != nil {
				if arr, _, ok := delays.TryGetDelay(d, trip.ID, i); ok {
					actual += int64(arr)
				}
			}
			if actual <= t && actual > bestTime {
				best, bestDate, bestTime = trip, d, actual
			}
		}
	}
	return best, bestDate, best != nil
}

// FirstTransferableTrip returns the first trip that can be boarded at stop
// index i when reached at t (forward), or the last trip that reaches the stop
// in time to leave it at t (backward).
func (r *Route) FirstTransferableTrip(forward bool, i int, t int64, delays DelayLookup) (*Trip, Date, bool) {
	if forward {
		return r.EarliestTripDepartingAfter(i, t, delays)
	}
	return r.LatestTripArrivingBefore(i, t, delays)
}

// FirstNTripTimesAtStop lists up to n scheduled times at stop index i that are
// strictly after t (forward, departures shifted back by offset) or strictly
// before t (backward, arrivals shifted forward by offset).
func (r *Route) FirstNTripTimesAtStop(forward bool, i int, t int64, offset int, n int) []int64 {
	base := DateOf(time.Unix(t, 0), r.loc)
	times := make([]int64, 0, n)

	if forward {
		for _, d := range [...]Date{base.AddDays(-1), base, base.AddDays(1)} {
			dayBase := d.Base(r.loc)
			for _, trip := range r.trips[d] {
				at := dayBase + int64(trip.StopTimes[i].Departure) - int64(offset)
				if at > t {
					times = append(times, at)
					if len(times) >= n {
						return times
					}
				}
			}
		}
		return times
	}

	for _, d := range [...]Date{base, base.AddDays(-1)} {
		dayBase := d.Base(r.loc)
		trips := r.trips[d]
		for k := len(trips) - 1; k >= 0; k-- {
			at := dayBase + int64(trips[k].StopTimes[i].Arrival) + int64(offset)
			if at < t {
				times = append(times, at)
				if len(times) >= n {
					return times
				}
			}
		}
	}
	return times
}

// DatedTrip is a trip together with the service day it starts on.
type DatedTrip struct {
	Trip *Trip
	Date Date
}

// TripsAround returns up to n trips following ref on its route (next) or
// preceding it (previous), spilling over to the adjacent service days. The
// reference trip itself is not included.
func (r *Route) TripsAround(ref *Trip, d Date, n int, next bool) []DatedTrip {
	out := make([]DatedTrip, 0, n)
	trips := r.trips[d]
	pos := -1
	for i, t := range trips {
		if t == ref {
			pos = i
			break
		}
	}
	if pos < 0 {
		return out
	}

	step := 1
	if !next {
		step = -1
	}
	day := d
	for i := pos + step; len(out) < n; i += step {
		if i < 0 || i >= len(trips) {
			if day.AddDays(step) < d.AddDays(-MaxSpillDays) || day.AddDays(step) > d.AddDays(MaxSpillDays) {
				break
			}
			day = day.AddDays(step)
			trips = r.trips[day]
			if next {
				i = -1
			} else {
				i = len(trips)
			}
			continue
		}
		out = append(out, DatedTrip{Trip: trips[i], Date: day})
	}
	return out
}

// MaxSpillDays bounds how many service days TripsAround looks beyond the
// reference trip's own.
const MaxSpillDays = 1
