package raptor

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raptor.transitrouter.org/internal/metrics"
)

func namedRequest(src, dest string, when time.Time) ConnectionRequest {
	settings := DefaultSettings()
	return ConnectionRequest{
		SrcStopName:         src,
		DestStopName:        dest,
		DateTime:            &when,
		ByEarliestDeparture: true,
		Settings:            &settings,
	}
}

func TestConnectionRequestValidate(t *testing.T) {
	n := newTestNetwork(t)
	when := at(testDay, 7, 55)

	tests := []struct {
		name   string
		modify func(*ConnectionRequest)
		want   ConnectionSearchError
	}{
		{"valid names", func(*ConnectionRequest) {}, NoError},
		{"missing date", func(r *ConnectionRequest) { r.DateTime = nil }, InvalidDateTime},
		{"zero date", func(r *ConnectionRequest) { r.DateTime = &time.Time{} }, InvalidDateTime},
		{"missing settings", func(r *ConnectionRequest) { r.Settings = nil }, InvalidSettings},
		{"bad settings", func(r *ConnectionRequest) { r.Settings.WalkingPace = 0 }, InvalidSettings},
		{"bad source coordinates", func(r *ConnectionRequest) {
			r.SrcByCoords, r.SrcLat, r.SrcLon = true, 95, 14
		}, InvalidSrcCoordinates},
		{"bad destination coordinates", func(r *ConnectionRequest) {
			r.DestByCoords, r.DestLat, r.DestLon = true, 50, 200
		}, InvalidDestCoordinates},
		{"both coordinates bad", func(r *ConnectionRequest) {
			r.SrcByCoords, r.SrcLat = true, -91
			r.DestByCoords, r.DestLat = true, 91
		}, InvalidBothCoordinates},
		{"no stop near source", func(r *ConnectionRequest) {
			r.SrcByCoords, r.SrcLat, r.SrcLon = true, 10, 10
		}, NoStopsNearSrcCoords},
		{"no stop near either end", func(r *ConnectionRequest) {
			r.SrcByCoords, r.SrcLat, r.SrcLon = true, 10, 10
			r.DestByCoords, r.DestLat, r.DestLon = true, 11, 11
		}, NoStopsNearBothCoords},
		{"bike station counts as near when bikes are on", func(r *ConnectionRequest) {
			r.Settings.UseSharedBikes = true
			r.SrcByCoords, r.SrcLat, r.SrcLon = true, 53.001, 17.00
		}, NoError},
		{"bike station ignored when bikes are off", func(r *ConnectionRequest) {
			r.SrcByCoords, r.SrcLat, r.SrcLon = true, 53.001, 17.00
		}, NoStopsNearSrcCoords},
		{"unknown source name", func(r *ConnectionRequest) { r.SrcStopName = "Nowhere" }, InvalidSrcStopName},
		{"unknown destination name", func(r *ConnectionRequest) { r.DestStopName = "Nowhere" }, InvalidDestStopName},
		{"both names unknown", func(r *ConnectionRequest) {
			r.SrcStopName, r.DestStopName = "Nowhere", "Elsewhere"
		}, InvalidBothStopNames},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := namedRequest("Alpha", "Delta", when)
			tt.modify(&req)
			assert.Equal(t, tt.want, req.Validate(n.model, n.bikes))
		})
	}
}

func TestFindConnectionByNames(t *testing.T) {
	n := newTestNetwork(t)
	n.router.Metrics = metrics.New()

	resp, err := n.router.FindConnection(context.Background(), namedRequest("Alpha", "Delta", at(testDay, 7, 55)))
	require.NoError(t, err)
	assert.Equal(t, NoError, resp.Error)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "T0800", resp.Results[0].UsedTrips[0].TripID)

	assert.Equal(t, float64(1), testutil.ToFloat64(n.router.Metrics.SearchesTotal.WithLabelValues("connection", "ok")))
}

func TestFindConnectionReportsRequestProblems(t *testing.T) {
	n := newTestNetwork(t)
	n.router.Metrics = metrics.New()
	when := at(testDay, 7, 55)

	resp, err := n.router.FindConnection(context.Background(), namedRequest("Nowhere", "Delta", when))
	require.NoError(t, err)
	assert.Equal(t, InvalidSrcStopName, resp.Error)
	assert.Equal(t, "Invalid source stop name", resp.Error.Message())
	assert.Empty(t, resp.Results)

	resp, err = n.router.FindConnection(context.Background(), namedRequest("Alpha", "Alpha", when))
	require.NoError(t, err)
	assert.Equal(t, NoConnectionFound, resp.Error)

	resp, err = n.router.FindConnection(context.Background(), namedRequest("Delta", "Alpha", when))
	require.NoError(t, err)
	assert.Equal(t, NoConnectionFound, resp.Error)

	assert.Equal(t, float64(1), testutil.ToFloat64(n.router.Metrics.SearchesTotal.WithLabelValues("connection", "invalid")))
	assert.Equal(t, float64(2), testutil.ToFloat64(n.router.Metrics.SearchesTotal.WithLabelValues("connection", "not_found")))
}

func TestFindConnectionByCoordinates(t *testing.T) {
	n := newTestNetwork(t)
	req := namedRequest("", "Delta", at(testDay, 7, 55))
	req.SrcByCoords, req.SrcLat, req.SrcLon = true, 50.0018, 14.00

	resp, err := n.router.FindConnection(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, NoError, resp.Error)
	require.Len(t, resp.Results, 1)
	res := resp.Results[0]
	assert.Equal(t, []SegmentType{SegmentTransfer, SegmentTrip}, res.UsedSegmentTypes)
	assert.Equal(t, "srcId", res.UsedTransfers[0].SrcStopInfo.ID)
	assert.Equal(t, "Source", res.UsedTransfers[0].SrcStopInfo.Name)
}

func TestConnectionSearchErrorMessages(t *testing.T) {
	for e := NoError; e <= NoConnectionFound; e++ {
		assert.NotEqual(t, "Unknown error", e.Message(), "error %d", e)
	}
	assert.Equal(t, "Unknown error", ConnectionSearchError(99).Message())
	for e := AltNoError; e <= AltNoTripsFound; e++ {
		assert.NotEqual(t, "Unknown error", e.Message(), "error %d", e)
	}
}
