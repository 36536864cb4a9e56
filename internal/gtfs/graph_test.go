package gtfs

import (
	"testing"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"raptor.transitrouter.org/internal/transit"
)

var (
	monday    = transit.NewDate(2025, time.March, 10)
	tuesday   = monday.AddDays(1)
	wednesday = monday.AddDays(2)
)

func buildTestModel(t *testing.T) (*transit.Model, BuildStats) {
	t.Helper()
	static, err := gtfs.ParseStatic(feedZip(t), gtfs.ParseStaticOptions{})
	require.NoError(t, err)
	model, stats, err := BuildModel(static, time.UTC, monday, wednesday, 300)
	require.NoError(t, err)
	return model, stats
}

func routesOf(model *transit.Model, gtfsID string) []*transit.Route {
	var out []*transit.Route
	for _, r := range model.Routes() {
		if r.GTFSID == gtfsID {
			out = append(out, r)
		}
	}
	return out
}

func tripIDs(trips []*transit.Trip) []string {
	ids := make([]string, len(trips))
	for i, t := range trips {
		ids[i] = t.ID
	}
	return ids
}

func TestBuildModel_StopsAndRoutes(t *testing.T) {
	model, stats := buildTestModel(t)

	assert.Len(t, model.Stops(), 4, "stations are not boarding points")
	assert.Equal(t, 4, stats.Stops)
	assert.Equal(t, 1, stats.SkippedStops)
	assert.Equal(t, 4, stats.Trips)

	r1 := routesOf(model, "R1")
	require.Len(t, r1, 2, "the short run gets its own route")
	for _, r := range r1 {
		assert.Equal(t, transit.Tram, r.Type)
		assert.Equal(t, "FF0000", r.Color)
		assert.Equal(t, "1", r.Name())
	}

	r2 := routesOf(model, "R2")
	require.Len(t, r2, 1)
	assert.Equal(t, transit.Bus, r2[0].Type)
}

func TestBuildModel_SortsStopTimes(t *testing.T) {
	model, _ := buildTestModel(t)

	trip, ok := model.Trip("T2")
	require.True(t, ok)
	assert.Equal(t, []uint32{10, 20, 30}, trip.Sequences)
	assert.Equal(t, int32(9*3600), trip.StopTimes[0].Departure)
	assert.Equal(t, int32(9*3600+600), trip.StopTimes[2].Arrival)
	assert.Equal(t, "A", trip.Route.Stops[0].ID)
}

func TestBuildModel_ServiceDays(t *testing.T) {
	model, _ := buildTestModel(t)

	var full *transit.Route
	for _, r := range routesOf(model, "R1") {
		if len(r.Stops) == 3 {
			full = r
		}
	}
	require.NotNil(t, full)
	assert.Equal(t, []string{"T1", "T2"}, tripIDs(full.TripsOn(monday)))
	assert.Equal(t, []string{"T1", "T2"}, tripIDs(full.TripsOn(tuesday)))
	assert.Empty(t, full.TripsOn(wednesday), "service removed on this day")

	weekend := routesOf(model, "R2")[0]
	assert.Empty(t, weekend.TripsOn(monday))
	assert.Equal(t, []string{"T4"}, tripIDs(weekend.TripsOn(tuesday)), "service added on this day")
}

func TestBuildModel_Transfers(t *testing.T) {
	model, _ := buildTestModel(t)

	c, _ := model.Stop("C")
	a, _ := model.Stop("A")

	require.Len(t, c.Transfers, 1)
	assert.Equal(t, "D", c.Transfers[0].To.ID)
	assert.Zero(t, c.Transfers[0].Distance)
	assert.Empty(t, a.Transfers, "impossible transfers and far stops stay unlinked")
}

func TestBuildModel_NoData(t *testing.T) {
	_, _, err := BuildModel(nil, time.UTC, monday, monday, 300)
	assert.Error(t, err)
}

func TestServiceRunsOn(t *testing.T) {
	d := func(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }
	s := &gtfs.Service{
		Id:           "S",
		Monday:       true,
		StartDate:    d(2025, time.March, 1),
		EndDate:      d(2025, time.March, 31),
		AddedDates:   []time.Time{d(2025, time.April, 5)},
		RemovedDates: []time.Time{d(2025, time.March, 17)},
	}

	tests := []struct {
		name string
		date transit.Date
		want bool
	}{
		{"monday in range", monday, true},
		{"tuesday in range", tuesday, false},
		{"removed monday", transit.NewDate(2025, time.March, 17), false},
		{"monday after end", transit.NewDate(2025, time.April, 7), false},
		{"added date", transit.NewDate(2025, time.April, 5), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serviceRunsOn(s, tt.date))
		})
	}

	assert.False(t, serviceRunsOn(&gtfs.Service{Id: "dates-only"}, monday))
}

func TestModelLocation(t *testing.T) {
	static := &gtfs.Static{Agencies: []gtfs.Agency{{Id: "A", Timezone: "UTC"}}}

	loc, err := ModelLocation(static, "")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	loc, err = ModelLocation(&gtfs.Static{}, "")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = ModelLocation(static, "Not/AZone")
	assert.Error(t, err)
}

func TestComputeRegionBounds(t *testing.T) {
	assert.Nil(t, ComputeRegionBounds(nil))

	model, _ := buildTestModel(t)
	bounds := ComputeRegionBounds(model.Stops())
	require.NotNil(t, bounds)
	assert.InDelta(t, 50.005, bounds.Lat, 1e-9)
	assert.InDelta(t, 14.01, bounds.Lon, 1e-9)
	assert.InDelta(t, 0.01, bounds.LatSpan, 1e-9)
	assert.InDelta(t, 0.02, bounds.LonSpan, 1e-9)
}
