package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"raptor.transitrouter.org/internal/app"
	"raptor.transitrouter.org/internal/gtfs"
)

func getHealth(t *testing.T, api *RestAPI) (int, HealthResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	api.healthHandler(w, req)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w.Code, resp
}

func TestHealthHandlerWithNilApplication(t *testing.T) {
	code, resp := getHealth(t, &RestAPI{Application: nil})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "manager not initialized", resp.Detail)
}

func TestHealthHandlerBeforeFirstLoad(t *testing.T) {
	code, resp := getHealth(t, &RestAPI{Application: &app.Application{GtfsManager: &gtfs.Manager{}}})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "starting", resp.Status)
}

func TestHealthHandlerReturnsOK(t *testing.T) {
	api := createTestApi(t)
	server := api.server(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var healthResp HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&healthResp))
	assert.Equal(t, "ok", healthResp.Status)
	assert.Empty(t, healthResp.Feeds)
}

func TestStaleDetector(t *testing.T) {
	now := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	detector := NewStaleDetector().WithThreshold(time.Minute)

	assert.True(t, detector.Check(time.Time{}, now))
	assert.False(t, detector.Check(now.Add(-30*time.Second), now))
	assert.True(t, detector.Check(now.Add(-2*time.Minute), now))
	assert.Equal(t, 2*time.Minute, detector.Age(now.Add(-2*time.Minute), now))
	assert.Greater(t, detector.Age(time.Time{}, now), time.Minute)
}
