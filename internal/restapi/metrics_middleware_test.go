package restapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"raptor.transitrouter.org/internal/metrics"
)

func TestMetricsHandler_NilMetrics(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	MetricsHandler(nil)(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

// Requests that do not go through a mux carry no pattern and are counted
// as unmatched.
func TestMetricsHandler_RecordsStatus(t *testing.T) {
	tests := []struct {
		name   string
		method string
		write  func(w http.ResponseWriter)
		status string
	}{
		{"explicit status", http.MethodPost, func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("created"))
		}, "201"},
		{"implicit 200", http.MethodGet, func(w http.ResponseWriter) {
			_, _ = w.Write([]byte("implicit 200"))
		}, "200"},
		{"not found", http.MethodGet, func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusNotFound)
		}, "404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { tt.write(w) })

			rec := httptest.NewRecorder()
			MetricsHandler(m)(inner).ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/connection", nil))

			assert.Equal(t, tt.status, strconv.Itoa(rec.Code))
			assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(tt.method, "unmatched", tt.status)))
			assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	w := newStatusRecorder(rec)
	assert.Equal(t, http.StatusOK, w.statusCode)

	w.WriteHeader(http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, w.statusCode)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Same(t, rec, w.Unwrap())
}

func TestMetricsHandler_Integration(t *testing.T) {
	m := metrics.New()

	// Create a simple mux with a registered route
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	})

	// Wrap with metrics handler
	handler := MetricsHandler(m)(mux)

	// Create test server
	server := httptest.NewServer(handler)
	defer server.Close()

	// Make a request
	resp, err := http.Get(server.URL + "/api/test")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "GET /api/test", "200")))
}

func TestMetricsEndpoint(t *testing.T) {
	api := createTestApi(t)
	server := api.server(t)

	_, _ = doRequest(t, server, http.MethodGet, "/api/current-time", nil)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `raptor_http_requests_total{method="GET",path="GET /api/current-time",status="200"} 1`)
}
