package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"raptor.transitrouter.org/internal/logging"
)

// realtimeHTTPClient is a dedicated HTTP client for GTFS-RT feed fetching,
// configured with explicit timeouts and transport limits.
// The transport is cloned from http.DefaultTransport to preserve important
// defaults (ProxyFromEnvironment, DialContext, HTTP/2, keepalives).
var realtimeHTTPClient = newRealtimeHTTPClient()

func newRealtimeHTTPClient() *http.Client {
	var transport *http.Transport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConns = 50
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.ExpectContinueTimeout = 1 * time.Second

	return &http.Client{
		// Keep this <= the context timeout of the periodic updater.
		Timeout:   10 * time.Second,
		Transport: transport,
	}
}

func loadRealtimeData(ctx context.Context, source string, headers map[string]string) (*gtfs.Realtime, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	for key, value := range headers {
		req.Header.Add(key, value)
	}

	resp, err := realtimeHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute GTFS-RT request: %w", err)
	}

	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "gtfs_realtime_downloader")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gtfs-rt fetch failed: %s returned %s", source, resp.Status)
	}

	const maxBodySize = 25 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > maxBodySize {
		return nil, fmt.Errorf("GTFS-RT response exceeds size limit of %d bytes", maxBodySize)
	}

	return gtfs.ParseRealtime(body, &gtfs.ParseRealtimeOptions{})
}

// updateGTFSRealtime fetches one feed's trip updates and replaces that feed's
// delays. A failed fetch leaves the previous delays in place.
func (manager *Manager) updateGTFSRealtime(ctx context.Context, feed RTFeedConfig) error {
	logger := logging.FromContext(ctx).With(
		slog.String("component", "gtfs_realtime"),
		slog.String("feed", feed.ID))

	data, err := loadRealtimeData(ctx, feed.TripUpdatesURL, feed.Headers)
	if err != nil {
		logging.LogError(logger, "Error loading GTFS-RT trip updates data", err,
			slog.String("url", feed.TripUpdatesURL))
		manager.metrics.ObserveDelayUpdate("error", -1)
		return err
	}

	return manager.ingestTripUpdates(ctx, feed.ID, data.Trips)
}

func (manager *Manager) ingestTripUpdates(ctx context.Context, feedID string, trips []gtfs.Trip) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	model := manager.Model()
	if model == nil {
		manager.metrics.ObserveDelayUpdate("error", -1)
		return ErrNoModel
	}

	stats := manager.delays.Ingest(feedID, model, trips, manager.clock.Now())

	manager.realTimeMutex.Lock()
	manager.realTimeTrips[feedID] = trips
	manager.feedUpdated[feedID] = manager.clock.Now()
	manager.realTimeMutex.Unlock()

	manager.metrics.ObserveDelayUpdate("ok", manager.delays.Len())
	if manager.config.Verbose {
		logging.LogOperation(manager.logger, "gtfs_realtime_delays_updated",
			slog.String("feed", feedID),
			slog.Int("tracked", stats.Tracked),
			slog.Int("unresolved", stats.Unresolved))
	}
	return nil
}

func (manager *Manager) updateGTFSRealtimePeriodically(feed RTFeedConfig) {
	defer manager.wg.Done()

	logger := manager.logger.With(
		slog.String("component", "gtfs_realtime_updater"),
		slog.String("feed", feed.ID))

	refresh := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		ctx = logging.WithLogger(ctx, logger)
		_ = manager.updateGTFSRealtime(ctx, feed)
	}

	refresh()
	ticker := time.NewTicker(feed.interval())
	defer ticker.Stop()

	for { // nolint
		select {
		case <-ticker.C:
			refresh()
		case <-manager.shutdownChan:
			logging.LogOperation(logger, "shutting_down_realtime_updates")
			return
		}
	}
}
