// Package delay keeps the real-time delays of dated trips, fed from GTFS-RT
// trip updates, and answers the router's delay lookups.
package delay

import (
	"sync"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"raptor.transitrouter.org/internal/transit"
)

// How far around its scheduled run a trip instance is still considered
// current when the feed does not name a start date.
const (
	activeBefore = time.Hour
	activeAfter  = 3 * time.Hour
)

type tripKey struct {
	date transit.Date
	trip string
}

// Model is safe for concurrent use. Each feed's data is replaced as a whole
// on every ingest.
type Model struct {
	mu        sync.RWMutex
	feeds     map[string]map[tripKey]transit.TripStopDelays
	updatedAt map[string]time.Time
}

func NewModel() *Model {
	return &Model{
		feeds:     make(map[string]map[tripKey]transit.TripStopDelays),
		updatedAt: make(map[string]time.Time),
	}
}

// IngestStats summarizes one ingest.
type IngestStats struct {
	Tracked    int
	Unresolved int
}

// Ingest replaces the delays of feedID with those carried by trips. Trips
// unknown to the transit model are skipped.
func (m *Model) Ingest(feedID string, model *transit.Model, trips []gtfs.Trip, now time.Time) IngestStats {
	data := make(map[tripKey]transit.TripStopDelays, len(trips))
	var stats IngestStats

	for i := range trips {
		rt := &trips[i]
		trip, ok := model.Trip(rt.ID.ID)
		if !ok {
			stats.Unresolved++
			continue
		}
		date, ok := serviceDate(model, trip, rt, now)
		if !ok {
			stats.Unresolved++
			continue
		}
		delays, ok := buildStopDelays(model.Location(), trip, date, rt)
		if !ok {
			stats.Unresolved++
			continue
		}
		data[tripKey{date: date, trip: trip.ID}] = delays
		stats.Tracked++
	}

	m.mu.Lock()
	m.feeds[feedID] = data
	m.updatedAt[feedID] = now
	m.mu.Unlock()
	return stats
}

// Set stores the delays of one dated trip directly.
func (m *Model) Set(feedID string, date transit.Date, tripID string, delays transit.TripStopDelays) {
	m.mu.Lock()
	defer m.mu.Unlock()
	feed, ok := m.feeds[feedID]
	if !ok {
		feed = make(map[tripKey]transit.TripStopDelays)
		m.feeds[feedID] = feed
	}
	feed[tripKey{date: date, trip: tripID}] = delays
}

func (m *Model) Clear(feedID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.feeds, feedID)
	delete(m.updatedAt, feedID)
}

// Len counts tracked trips across feeds.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, feed := range m.feeds {
		n += len(feed)
	}
	return n
}

func (m *Model) UpdatedAt(feedID string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.updatedAt[feedID]
	return t, ok
}

func (m *Model) lookup(date transit.Date, tripID string) (transit.TripStopDelays, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := tripKey{date: date, trip: tripID}
	for _, feed := range m.feeds {
		if d, ok := feed[key]; ok {
			return d, true
		}
	}
	return transit.TripStopDelays{}, false
}

func (m *Model) TripHasDelayData(date transit.Date, tripID string) bool {
	_, ok := m.lookup(date, tripID)
	return ok
}

func (m *Model) TryGetDelay(date transit.Date, tripID string, stopIndex int) (int, int, bool) {
	d, ok := m.lookup(date, tripID)
	if !ok {
		return 0, 0, false
	}
	return d.TryGet(stopIndex)
}

func (m *Model) TripStopDelays(date transit.Date, tripID string) (transit.TripStopDelays, bool) {
	return m.lookup(date, tripID)
}

// serviceDate picks the service day of the trip instance an update refers
// to: the feed's start date when given, otherwise the run that is closest to
// being in progress at now.
func serviceDate(model *transit.Model, trip *transit.Trip, rt *gtfs.Trip, now time.Time) (transit.Date, bool) {
	loc := model.Location()
	if rt.ID.HasStartDate {
		sd := rt.ID.StartDate
		return transit.NewDate(sd.Year(), sd.Month(), sd.Day()), true
	}

	today := transit.DateOf(now, loc)
	last := len(trip.StopTimes) - 1
	for _, d := range [...]transit.Date{today, today.AddDays(-1)} {
		if !runsOn(trip, d) {
			continue
		}
		start := d.At(trip.StopTimes[0].Departure, loc).Add(-activeBefore)
		end := d.At(trip.StopTimes[last].Arrival, loc).Add(activeAfter)
		if !now.Before(start) && !now.After(end) {
			return d, true
		}
	}
	if runsOn(trip, today) {
		return today, true
	}
	return 0, false
}

func runsOn(trip *transit.Trip, d transit.Date) bool {
	for _, t := range trip.Route.TripsOn(d) {
		if t == trip {
			return true
		}
	}
	return false
}

// buildStopDelays turns stop time updates into one delay per stop. A delay
// carries over to later stops until the next update; stops before the first
// update stay unknown.
func buildStopDelays(loc *time.Location, trip *transit.Trip, date transit.Date, rt *gtfs.Trip) (transit.TripStopDelays, bool) {
	n := len(trip.StopTimes)
	explicit := make([]*transit.StopDelay, n)
	found := false

	for _, stu := range rt.StopTimeUpdates {
		i, ok := trip.StopIndexOf(stu.StopSequence, stu.StopID)
		if !ok {
			continue
		}
		sched := trip.StopTimes[i]
		arr, arrOK := eventDelay(stu.Arrival, date.At(sched.Arrival, loc))
		dep, depOK := eventDelay(stu.Departure, date.At(sched.Departure, loc))
		switch {
		case arrOK && !depOK:
			dep = arr
		case depOK && !arrOK:
			arr = dep
		case !arrOK && !depOK:
			continue
		}
		explicit[i] = &transit.StopDelay{Arrival: int32(arr), Departure: int32(dep), Known: true}
		found = true
	}

	if !found {
		if rt.Delay == nil {
			return transit.TripStopDelays{}, false
		}
		whole := int32(rt.Delay.Seconds())
		stops := make([]transit.StopDelay, n)
		for i := range stops {
			stops[i] = transit.StopDelay{Arrival: whole, Departure: whole, Known: true}
		}
		return transit.TripStopDelays{Stops: stops}, true
	}

	stops := make([]transit.StopDelay, n)
	var carry *transit.StopDelay
	for i := range stops {
		if explicit[i] != nil {
			carry = explicit[i]
			stops[i] = *carry
			continue
		}
		if carry != nil {
			stops[i] = transit.StopDelay{Arrival: carry.Departure, Departure: carry.Departure, Known: true}
		}
	}
	return transit.TripStopDelays{Stops: stops}, true
}

func eventDelay(ev *gtfs.StopTimeEvent, scheduled time.Time) (int, bool) {
	if ev == nil {
		return 0, false
	}
	if ev.Delay != nil {
		return int(ev.Delay.Seconds()), true
	}
	if ev.Time != nil {
		return int(ev.Time.Sub(scheduled).Seconds()), true
	}
	return 0, false
}
