package gtfs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"raptor.transitrouter.org/internal/appconf"
	"raptor.transitrouter.org/internal/clock"
	"raptor.transitrouter.org/internal/metrics"
	"raptor.transitrouter.org/internal/raptor"
)

// emptyFeedBytes is FeedMessage { header { gtfs_realtime_version: "2.0" } }.
var emptyFeedBytes = []byte{0x0a, 0x05, 0x0a, 0x03, 0x32, 0x2e, 0x30}

func testOptions() (Options, *metrics.Metrics) {
	m := metrics.New()
	return Options{
		Clock:   clock.NewMockClock(time.Date(2025, time.March, 10, 7, 0, 0, 0, time.UTC)),
		Metrics: m,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, m
}

func initTestManager(t *testing.T, path string) (*Manager, *metrics.Metrics) {
	t.Helper()
	opts, m := testOptions()
	manager, err := InitGTFSManager(context.Background(), Config{
		GtfsURL:             path,
		MaxTransferDistance: 300,
		Env:                 appconf.Test,
	}, opts)
	require.NoError(t, err)
	t.Cleanup(manager.Shutdown)
	return manager, m
}

func TestInitGTFSManager_FromLocalFile(t *testing.T) {
	manager, m := initTestManager(t, writeFeed(t, false))

	assert.True(t, manager.IsHealthy())
	assert.Len(t, manager.Model().Stops(), 4)
	assert.Equal(t, 4, manager.BuildStats().Trips)
	assert.NotNil(t, manager.RegionBounds())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ModelLoadsTotal.WithLabelValues("ok")))

	manager.RLock()
	static := manager.GetStaticData()
	manager.RUnlock()
	require.NotNil(t, static)
	assert.Len(t, static.Agencies, 1)
}

func TestInitGTFSManager_SearchesTheFeed(t *testing.T) {
	manager, _ := initTestManager(t, writeFeed(t, false))

	router, err := manager.Router()
	require.NoError(t, err)

	when := time.Date(2025, time.March, 10, 7, 30, 0, 0, time.UTC)
	settings := raptor.DefaultSettings()
	resp, err := router.FindConnection(context.Background(), raptor.ConnectionRequest{
		SrcStopName:         "Alpha",
		DestStopName:        "Gamma",
		DateTime:            &when,
		ByEarliestDeparture: true,
		Settings:            &settings,
	})
	require.NoError(t, err)
	require.Equal(t, raptor.NoError, resp.Error)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "T1", resp.Results[0].UsedTrips[0].TripID)
}

func TestInitGTFSManager_GzipFeed(t *testing.T) {
	manager, _ := initTestManager(t, writeFeed(t, true))
	assert.Len(t, manager.Model().Stops(), 4)
}

func TestInitGTFSManager_MissingFile(t *testing.T) {
	opts, m := testOptions()
	_, err := InitGTFSManager(context.Background(), Config{GtfsURL: "/does/not/exist.zip"}, opts)
	assert.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ModelLoadsTotal.WithLabelValues("error")))
}

func TestForceUpdate_FailureKeepsSnapshot(t *testing.T) {
	manager, _ := initTestManager(t, writeFeed(t, false))
	before, err := manager.Router()
	require.NoError(t, err)

	manager.config.GtfsURL = "/does/not/exist.zip"
	require.Error(t, manager.ForceUpdate(context.Background()))

	after, err := manager.Router()
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.True(t, manager.IsHealthy())
}

func TestForceUpdate_SwapsRouter(t *testing.T) {
	manager, _ := initTestManager(t, writeFeed(t, false))
	before, err := manager.Router()
	require.NoError(t, err)

	require.NoError(t, manager.ForceUpdate(context.Background()))

	after, err := manager.Router()
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.NotSame(t, before.Transit(), after.Transit())
}

func TestForceUpdate_FromHTTP(t *testing.T) {
	data := feedZip(t)
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	opts, _ := testOptions()
	manager := newManager(Config{
		GtfsURL:       server.URL + "/gtfs.zip",
		StaticHeaders: map[string]string{"Authorization": "Bearer secret"},
	}, opts)
	require.False(t, manager.isLocalFile)

	require.NoError(t, manager.ForceUpdate(context.Background()))
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Len(t, manager.Model().Stops(), 4)
}

func TestForceUpdate_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	opts, _ := testOptions()
	manager := newManager(Config{GtfsURL: server.URL}, opts)
	err := manager.ForceUpdate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestIngestTripUpdates(t *testing.T) {
	manager, m := initTestManager(t, writeFeed(t, false))
	seq := uint32(1)
	delay := 2 * time.Minute

	err := manager.ingestTripUpdates(context.Background(), "feed-0", []gtfs.Trip{{
		ID: gtfs.TripID{ID: "T1"},
		StopTimeUpdates: []gtfs.StopTimeUpdate{{
			StopSequence: &seq,
			Departure:    &gtfs.StopTimeEvent{Delay: &delay},
		}},
	}})
	require.NoError(t, err)

	_, dep, ok := manager.Delays().TryGetDelay(monday, "T1", 0)
	require.True(t, ok)
	assert.Equal(t, 120, dep)
	assert.Len(t, manager.GetRealTimeTrips(), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DelayTrackedTrips))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DelayUpdatesTotal.WithLabelValues("ok")))
}

func TestUpdateGTFSRealtime(t *testing.T) {
	manager, m := initTestManager(t, writeFeed(t, false))

	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/x-protobuf")
		_, _ = w.Write(emptyFeedBytes)
	}))
	defer server.Close()

	feed := RTFeedConfig{
		ID:             "feed-a",
		TripUpdatesURL: server.URL + "/trip-updates",
		Headers:        map[string]string{"X-Api-Key": "k"},
		Enabled:        true,
	}
	require.NoError(t, manager.updateGTFSRealtime(context.Background(), feed))
	assert.Equal(t, "k", gotKey)
	assert.Zero(t, manager.Delays().Len())

	feed.TripUpdatesURL = server.URL + "/broken"
	assert.Error(t, manager.updateGTFSRealtime(context.Background(), feed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DelayUpdatesTotal.WithLabelValues("error")))
}

func TestRealtimeFeeds(t *testing.T) {
	opts, _ := testOptions()
	manager := newManager(Config{RTFeeds: []RTFeedConfig{
		{ID: "a", TripUpdatesURL: "http://example.com/a", Enabled: true},
		{ID: "off", TripUpdatesURL: "http://example.com/off"},
	}}, opts)
	model, _ := buildTestModel(t)
	manager.publish(nil, model, nil, nil, BuildStats{})

	feeds := manager.RealtimeFeeds()
	require.Len(t, feeds, 1)
	assert.Equal(t, "a", feeds[0].ID)
	assert.True(t, feeds[0].LastUpdated.IsZero())

	require.NoError(t, manager.ingestTripUpdates(context.Background(), "a", []gtfs.Trip{{ID: gtfs.TripID{ID: "T1"}}}))
	feeds = manager.RealtimeFeeds()
	assert.Equal(t, opts.Clock.Now(), feeds[0].LastUpdated)
	assert.Equal(t, 1, feeds[0].Trips)
}

func TestIngestTripUpdates_NoModel(t *testing.T) {
	opts, _ := testOptions()
	manager := newManager(Config{}, opts)
	assert.ErrorIs(t, manager.ingestTripUpdates(context.Background(), "feed-0", nil), ErrNoModel)
}

func TestShutdownStopsUpdaters(t *testing.T) {
	opts, _ := testOptions()
	manager, err := InitGTFSManager(context.Background(), Config{
		GtfsURL: writeFeed(t, false),
		RTFeeds: []RTFeedConfig{{ID: "x", TripUpdatesURL: "http://127.0.0.1:1/unreachable", Enabled: true}},
	}, opts)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		manager.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(20 * time.Second):
		t.Fatal("shutdown did not return")
	}
}
