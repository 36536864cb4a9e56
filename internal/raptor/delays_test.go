package raptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raptor.transitrouter.org/internal/transit"
)

func uniformDelays(stops int, seconds int32) transit.TripStopDelays {
	d := transit.TripStopDelays{Stops: make([]transit.StopDelay, stops)}
	for i := range d.Stops {
		d.Stops[i] = transit.StopDelay{Arrival: seconds, Departure: seconds, Known: true}
	}
	return d
}

func TestUpdateDelaysRefreshesTrips(t *testing.T) {
	n := newTestNetwork(t)
	res := searchOne(t, n, n.stopQuery(t, "A", "D", true, at(testDay, 7, 55)))
	require.False(t, res.UsedTrips[0].HasDelayInfo)

	n.delays.Set("test", testDay, "T0800", uniformDelays(4, 120))
	n.clock.Set(at(testDay, 8, 15))

	updated := n.router.UpdateDelays([]*SearchResult{res, nil})
	require.Len(t, updated, 1)
	trip := updated[0].UsedTrips[0]
	assert.True(t, trip.HasDelayInfo)
	assert.Equal(t, 120, trip.DelayWhenBoarded)
	assert.Equal(t, 120, trip.CurrentDelay)

	// The input is left alone.
	assert.False(t, res.UsedTrips[0].HasDelayInfo)
	assert.Equal(t, res.ArrivalDateTime, updated[0].ArrivalDateTime)
}

func TestUpdateDelaysBeforeDeparture(t *testing.T) {
	n := newTestNetwork(t)
	res := searchOne(t, n, n.stopQuery(t, "A", "D", true, at(testDay, 7, 55)))

	n.delays.Set("test", testDay, "T0800", uniformDelays(4, 60))

	// Still 07:00, the trip has not left any stop yet.
	trip := n.router.UpdateDelays([]*SearchResult{res})[0].UsedTrips[0]
	assert.True(t, trip.HasDelayInfo)
	assert.Equal(t, 60, trip.DelayWhenBoarded)
	assert.Zero(t, trip.CurrentDelay)
}

func TestUpdateDelaysClearsStaleInfo(t *testing.T) {
	n := newTestNetwork(t)
	res := searchOne(t, n, n.stopQuery(t, "A", "D", true, at(testDay, 7, 55)))

	stale := *res
	stale.UsedTrips = []UsedTrip{res.UsedTrips[0]}
	stale.UsedTrips[0].HasDelayInfo = true
	stale.UsedTrips[0].DelayWhenBoarded = 300

	trip := n.router.UpdateDelays([]*SearchResult{&stale})[0].UsedTrips[0]
	assert.False(t, trip.HasDelayInfo)
	assert.Zero(t, trip.DelayWhenBoarded)
}

func TestUpdateDelaysUnknownTrip(t *testing.T) {
	n := newTestNetwork(t)
	n.delays.Set("test", testDay, "gone", uniformDelays(3, 90))

	res := &SearchResult{UsedTrips: []UsedTrip{{TripID: "gone", TripDate: "2025-03-10", GetOnStopIndex: 1}}}
	trip := n.router.UpdateDelays([]*SearchResult{res})[0].UsedTrips[0]
	assert.True(t, trip.HasDelayInfo)
	assert.Equal(t, 90, trip.DelayWhenBoarded)
	assert.Zero(t, trip.CurrentDelay)
}

func TestTripDateFallsBackToFirstDeparture(t *testing.T) {
	n := newTestNetwork(t)

	d, ok := n.router.tripDate(UsedTrip{StopPasses: []StopPass{{DepartureTime: at(testDay, 23, 50)}}})
	require.True(t, ok)
	assert.Equal(t, testDay, d)

	_, ok = n.router.tripDate(UsedTrip{TripDate: "garbage"})
	assert.False(t, ok)
}
