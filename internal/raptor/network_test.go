package raptor

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"raptor.transitrouter.org/internal/clock"
	"raptor.transitrouter.org/internal/delay"
	"raptor.transitrouter.org/internal/transit"
)

var testDay = transit.NewDate(2025, time.March, 10)

func hm(h, m int) int32 {
	return int32(h*3600 + m*60)
}

func at(d transit.Date, h, m int) time.Time {
	return d.At(hm(h, m), time.UTC)
}

// testNetwork is a small city with a few independent corners:
//
//	L1  A 08:00/09:00 -> B -> C -> D        (10 minutes between stops)
//	L2  B2 08:20 -> E 08:30                 (B and B2 share a place and name)
//	N1  X 23:50 -> M 00:05 -> Y 00:15       (runs past midnight)
//	V   P -> Q -> R -> P -> S               (calls at P twice)
//
// and two bike stations K1 and K2 two kilometers apart.
type testNetwork struct {
	model  *transit.Model
	bikes  *transit.BikeModel
	delays *delay.Model
	clock  *clock.MockClock
	router *Router
}

var testStops = []struct {
	id, name string
	lat, lon float64
}{
	{"A", "Alpha", 50.00, 14.00},
	{"B", "Beta", 50.00, 14.02},
	{"B2", "Beta", 50.00, 14.02},
	{"C", "Gamma", 50.00, 14.04},
	{"D", "Delta", 50.00, 14.06},
	{"E", "Epsilon", 50.02, 14.04},
	{"X", "Xray", 51.00, 15.00},
	{"M", "Mike", 51.00, 15.02},
	{"Y", "Yankee", 51.00, 15.04},
	{"P", "Papa", 52.00, 16.00},
	{"Q", "Quebec", 52.00, 16.02},
	{"R", "Romeo", 52.00, 16.04},
	{"S", "Sierra", 52.00, 16.06},
}

func newTestNetwork(t *testing.T) *testNetwork {
	t.Helper()
	b := transit.NewBuilder(time.UTC)

	for _, def := range testStops {
		_, err := b.AddStop(def.id, def.name, transit.Coordinates{Lat: def.lat, Lon: def.lon})
		require.NoError(t, err)
	}

	l1 := addRoute(t, b, "L1", transit.Tram, "A", "B", "C", "D")
	for _, h := range []int{8, 9} {
		dep := hm(h, 0)
		addTrip(t, b, l1, testDay, tripID("T", h), dep, dep+600, dep+1200, dep+1800)
	}

	l2 := addRoute(t, b, "L2", transit.Bus, "B2", "E")
	addTrip(t, b, l2, testDay, "U820", hm(8, 20), hm(8, 30))
	require.NoError(t, b.AddTransfer("B", "B2", 0))

	n1 := addRoute(t, b, "N1", transit.Bus, "X", "M", "Y")
	addTrip(t, b, n1, testDay, "N2350", hm(23, 50), hm(0, 5), hm(0, 15))

	v := addRoute(t, b, "V", transit.Bus, "P", "Q", "R", "P", "S")
	addTrip(t, b, v, testDay, "V0", hm(7, 40), hm(7, 45), hm(7, 50), hm(7, 58), hm(8, 3))
	addTrip(t, b, v, testDay, "V1", hm(8, 0), hm(8, 5), hm(8, 10), hm(8, 15), hm(8, 20))

	model, err := b.Build()
	require.NoError(t, err)

	k1 := &transit.BikeStation{ID: "K1", Name: "Kilo", Coords: transit.Coordinates{Lat: 53.00, Lon: 17.00}, Capacity: 10}
	k2 := &transit.BikeStation{ID: "K2", Name: "Lima", Coords: transit.Coordinates{Lat: 53.00, Lon: 17.02}, Capacity: 10}
	bikes := transit.NewBikeModel([]*transit.BikeStation{k1, k2})
	bikes.SetDistance(k1, k2, 2000)
	bikes.Freeze()

	delays := delay.NewModel()
	clk := clock.NewMockClock(at(testDay, 7, 0))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testNetwork{
		model:  model,
		bikes:  bikes,
		delays: delays,
		clock:  clk,
		router: NewRouter(model, bikes, delays, clk, logger),
	}
}

func addRoute(t *testing.T, b *transit.Builder, id string, vt transit.VehicleType, stops ...string) *transit.Route {
	t.Helper()
	r, err := b.AddRoute(transit.RouteSpec{ID: id, ShortName: id, Color: "00A0E0", Type: vt, StopIDs: stops})
	require.NoError(t, err)
	return r
}

func addTrip(t *testing.T, b *transit.Builder, r *transit.Route, d transit.Date, id string, times ...int32) {
	t.Helper()
	st := make([]transit.StopTime, len(times))
	for i, tm := range times {
		st[i] = transit.StopTime{Arrival: tm, Departure: tm}
	}
	_, err := b.AddTrip(r, d, id, "", st)
	require.NoError(t, err)
}

func tripID(prefix string, hour int) string {
	return prefix + time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC).Format("1504")
}

func (n *testNetwork) stop(t *testing.T, id string) *transit.Stop {
	t.Helper()
	s, ok := n.model.Stop(id)
	require.True(t, ok, "stop %s", id)
	return s
}

func (n *testNetwork) station(t *testing.T, id string) *transit.BikeStation {
	t.Helper()
	s, ok := n.bikes.Station(id)
	require.True(t, ok, "station %s", id)
	return s
}

// stopQuery is a search between two stops by ID.
func (n *testNetwork) stopQuery(t *testing.T, src, dest string, forward bool, when time.Time) Query {
	return Query{
		Forward:   forward,
		Time:      when,
		Settings:  DefaultSettings(),
		SrcStops:  []*transit.Stop{n.stop(t, src)},
		DestStops: []*transit.Stop{n.stop(t, dest)},
	}
}

// requireWellFormed checks the structural guarantees every result keeps.
func requireWellFormed(t *testing.T, res *SearchResult) {
	t.Helper()
	require.NotEmpty(t, res.UsedSegmentTypes)
	require.LessOrEqual(t, res.TripCount+res.BikeTripCount, Rounds)
	for i := 1; i < len(res.UsedSegmentTypes); i++ {
		require.False(t, res.UsedSegmentTypes[i-1] == SegmentTransfer && res.UsedSegmentTypes[i] == SegmentTransfer,
			"consecutive transfers at %d in %v", i, res.UsedSegmentTypes)
	}
	require.False(t, res.ArrivalDateTime.Before(res.DepartureDateTime))
	require.Len(t, res.UsedTripAlternatives, len(res.UsedTrips))
}

// bikeLink is the riding distance between two bike stations.
type bikeLink struct {
	from, to string
	distance int
}

// newLinkedNetwork builds a corner where trips and shared bikes meet:
//
//	AY  A 08:02 -> Y 08:20
//	YX  Y 08:25 -> X 08:45                  (X and Y share a name, 900 m apart)
//
// C lies far east with no trips. Stations are linked to stops within 750 m.
func newLinkedNetwork(t *testing.T, stations []*transit.BikeStation, links ...bikeLink) *testNetwork {
	t.Helper()
	b := transit.NewBuilder(time.UTC)
	for _, def := range []struct {
		id, name string
		lat, lon float64
	}{
		{"A", "Alpha", 54.0000, 18.0000},
		{"Y", "Yankee", 54.0000, 18.0300},
		{"X", "Yankee", 53.9919, 18.0300},
		{"C", "Charlie", 54.0000, 18.1000},
	} {
		_, err := b.AddStop(def.id, def.name, transit.Coordinates{Lat: def.lat, Lon: def.lon})
		require.NoError(t, err)
	}
	ay := addRoute(t, b, "AY", transit.Bus, "A", "Y")
	addTrip(t, b, ay, testDay, "AY0802", hm(8, 2), hm(8, 20))
	yx := addRoute(t, b, "YX", transit.Bus, "Y", "X")
	addTrip(t, b, yx, testDay, "YX0825", hm(8, 25), hm(8, 45))
	b.GenerateTransfers(750)

	model, err := b.Build()
	require.NoError(t, err)

	bikes := transit.NewBikeModel(stations)
	for _, l := range links {
		from, ok := bikes.Station(l.from)
		require.True(t, ok, "station %s", l.from)
		to, ok := bikes.Station(l.to)
		require.True(t, ok, "station %s", l.to)
		bikes.SetDistance(from, to, l.distance)
	}
	bikes.Freeze()
	linked := bikes.LinkStops(model, 750)

	delays := delay.NewModel()
	clk := clock.NewMockClock(at(testDay, 7, 0))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testNetwork{
		model:  model,
		bikes:  linked,
		delays: delays,
		clock:  clk,
		router: NewRouter(model, linked, delays, clk, logger),
	}
}

// stationNorthOf places a station 100 m north of the given point.
func stationNorthOf(id string, lat, lon float64, bikes int) *transit.BikeStation {
	s := &transit.BikeStation{ID: id, Name: id, Coords: transit.Coordinates{Lat: lat + 0.0009, Lon: lon}, Capacity: 10}
	s.SetBikeCount(bikes)
	return s
}
