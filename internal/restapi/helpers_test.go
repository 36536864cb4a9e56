package restapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"raptor.transitrouter.org/internal/app"
	"raptor.transitrouter.org/internal/appconf"
	"raptor.transitrouter.org/internal/clock"
	"raptor.transitrouter.org/internal/gtfs"
	"raptor.transitrouter.org/internal/metrics"
	"raptor.transitrouter.org/internal/models"
	"raptor.transitrouter.org/internal/transit"
)

const testAPIKey = "TEST"

var testDay = transit.NewDate(2025, time.March, 10)

func at(h, m int) time.Time {
	return testDay.At(int32(h*3600+m*60), time.UTC)
}

// buildTestModel is one tram line A-B-C-D with departures at 08:00 and 09:00
// and ten minutes between stops.
func buildTestModel(t *testing.T) *transit.Model {
	t.Helper()
	b := transit.NewBuilder(time.UTC)
	stops := []struct {
		id, name string
		lon      float64
	}{
		{"A", "Alpha", 14.00},
		{"B", "Beta", 14.02},
		{"C", "Gamma", 14.04},
		{"D", "Delta", 14.06},
	}
	for _, s := range stops {
		_, err := b.AddStop(s.id, s.name, transit.Coordinates{Lat: 50, Lon: s.lon})
		require.NoError(t, err)
	}
	route, err := b.AddRoute(transit.RouteSpec{
		ID: "L1-1", GTFSID: "L1", ShortName: "L1", Color: "00A0E0", Type: transit.Tram,
		StopIDs: []string{"A", "B", "C", "D"},
	})
	require.NoError(t, err)
	for _, id := range []string{"T0800", "T0900"} {
		dep := int32(8 * 3600)
		if id == "T0900" {
			dep = 9 * 3600
		}
		times := make([]transit.StopTime, 4)
		for i := range times {
			times[i] = transit.StopTime{Arrival: dep + int32(i*600), Departure: dep + int32(i*600)}
		}
		_, err := b.AddTrip(route, testDay, id, "Delta", times)
		require.NoError(t, err)
	}
	model, err := b.Build()
	require.NoError(t, err)
	return model
}

type testAPI struct {
	*RestAPI
	clock *clock.MockClock
}

func createTestApi(t *testing.T) *testAPI {
	t.Helper()
	return createTestApiWithClock(t, clock.NewMockClock(at(7, 0)))
}

func createTestApiWithClock(t *testing.T, clk *clock.MockClock) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	manager := gtfs.NewManagerFromModel(buildTestModel(t), nil, gtfs.Options{Clock: clk, Metrics: m, Logger: logger})

	api := NewRestAPI(&app.Application{
		Config: appconf.Config{
			Env:       appconf.Test,
			ApiKeys:   []string{testAPIKey},
			RateLimit: 100,
		},
		Logger:      logger,
		GtfsManager: manager,
		Clock:       clk,
		Metrics:     m,
	})
	t.Cleanup(api.Shutdown)
	return &testAPI{RestAPI: api, clock: clk}
}

func (api *testAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	api.SetRoutes(mux)
	server := httptest.NewServer(api.WithMiddleware(mux))
	t.Cleanup(server.Close)
	return server
}

// doRequest sends body (JSON-encoded when not nil) with the test API key and
// decodes the response envelope.
func doRequest(t *testing.T, server *httptest.Server, method, path string, body interface{}) (*http.Response, models.ResponseModel) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testAPIKey)

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var model models.ResponseModel
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &model), "body: %s", raw)
	return resp, model
}

// decodeData re-decodes the envelope data into dst.
func decodeData(t *testing.T, model models.ResponseModel, dst interface{}) {
	t.Helper()
	raw, err := json.Marshal(model.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

type testingFatalf interface {
	Fatalf(format string, args ...any)
}

// collectIDs extracts the string field key from every object in list.
func collectIDs(t testingFatalf, list []interface{}, key string) (ids []string) {
	for i, item := range list {
		object, ok := item.(map[string]interface{})
		if !ok {
			t.Fatalf("item %d is not a map[string]interface{}", i)
		}
		id, ok := object[key].(string)
		if !ok {
			t.Fatalf("item %d key %q is not a string: %T", i, key, object[key])
		}
		ids = append(ids, id)
	}
	return ids
}
