package gtfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"github.com/klauspost/compress/gzip"
	"raptor.transitrouter.org/internal/logging"
	"raptor.transitrouter.org/internal/transit"
)

const maxStaticSize = 200 * 1024 * 1024

var gzipMagic = []byte{0x1f, 0x8b}

func rawGtfsData(ctx context.Context, source string, isLocalFile bool, config Config) ([]byte, error) {
	var b []byte
	var err error

	if isLocalFile {
		b, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("error creating GTFS request: %w", err)
		}
		for key, value := range config.StaticHeaders {
			req.Header.Set(key, value)
		}

		client := &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			}}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("error downloading GTFS data: %w", err)
		}
		defer logging.SafeCloseWithLogging(resp.Body,
			slog.Default().With(slog.String("component", "gtfs_downloader")),
			"http_response_body")

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to download GTFS data: received HTTP status %s", resp.Status)
		}
		b, err = io.ReadAll(io.LimitReader(resp.Body, maxStaticSize+1))
		if err != nil {
			return nil, fmt.Errorf("error reading GTFS data: %w", err)
		}
		if int64(len(b)) > maxStaticSize {
			return nil, fmt.Errorf("static GTFS response exceeds size limit of %d bytes", maxStaticSize)
		}
	}

	return gunzipIfNeeded(b)
}

// gunzipIfNeeded unwraps feeds that are served gzip-compressed on top of the
// zip archive.
func gunzipIfNeeded(b []byte) ([]byte, error) {
	if !bytes.HasPrefix(b, gzipMagic) {
		return b, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("error opening gzip GTFS data: %w", err)
	}
	defer logging.SafeCloseWithLogging(zr,
		slog.Default().With(slog.String("component", "gtfs_loader")),
		"gzip_reader")

	out, err := io.ReadAll(io.LimitReader(zr, maxStaticSize+1))
	if err != nil {
		return nil, fmt.Errorf("error decompressing GTFS data: %w", err)
	}
	if int64(len(out)) > maxStaticSize {
		return nil, fmt.Errorf("decompressed GTFS data exceeds size limit of %d bytes", maxStaticSize)
	}
	return out, nil
}

// loadGTFSData loads and parses GTFS data from either a URL or a local file
func loadGTFSData(ctx context.Context, source string, isLocalFile bool, config Config) (*gtfs.Static, error) {
	b, err := rawGtfsData(ctx, source, isLocalFile, config)
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}

	return staticData, nil
}

// updateStaticGTFS rebuilds the model every day so that the service window
// keeps moving forward.
func (manager *Manager) updateStaticGTFS() { // nolint
	defer manager.wg.Done()

	logger := manager.logger.With(slog.String("component", "gtfs_static_updater"))

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for { // nolint
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			err := manager.ForceUpdate(ctx)
			cancel()

			if err != nil {
				logging.LogError(logger, "Error updating GTFS data", err,
					slog.String("source", manager.config.GtfsURL))
				continue
			}

		case <-manager.shutdownChan:
			logging.LogOperation(logger, "shutting_down_static_gtfs_updates")
			return
		}
	}
}

// ForceUpdate rebuilds the transit model from the static feed, links the bike
// stations to it and swaps the result in. Searches already running keep the
// snapshot they started with. On failure the current snapshot stays.
//
// Local files are re-read too: the service window moves with the date even
// when the feed does not change.
func (manager *Manager) ForceUpdate(ctx context.Context) error {
	manager.staticUpdateMutex.Lock()
	defer manager.staticUpdateMutex.Unlock()

	logger := manager.logger.With(slog.String("component", "gtfs_updater"))
	start := time.Now()

	newStaticData, err := loadGTFSData(ctx, manager.config.GtfsURL, manager.isLocalFile, manager.config)
	if err != nil {
		logging.LogError(logger, "Error updating GTFS data", err,
			slog.String("source", manager.config.GtfsURL))
		manager.metrics.IncModelLoads("error")
		return err
	}

	if err := ctx.Err(); err != nil {
		manager.metrics.IncModelLoads("error")
		return err
	}

	loc, err := ModelLocation(newStaticData, manager.config.Timezone)
	if err != nil {
		manager.metrics.IncModelLoads("error")
		return err
	}
	today := transit.DateOf(manager.clock.Now(), loc)
	model, stats, err := BuildModel(newStaticData, loc, today.AddDays(-1), today.AddDays(manager.config.serviceDays()),
		manager.config.maxTransferDistance())
	if err != nil {
		logging.LogError(logger, "Error building transit model", err)
		manager.metrics.IncModelLoads("error")
		return fmt.Errorf("failed to build transit model: %w", err)
	}

	if err := ctx.Err(); err != nil {
		manager.metrics.IncModelLoads("error")
		return err
	}

	base, bikes := manager.linkBikes(ctx, model)
	manager.publish(newStaticData, model, base, bikes, stats)
	manager.metrics.IncModelLoads("ok")

	logging.LogOperation(logger, "gtfs_static_data_updated_hot_swap",
		slog.String("source", manager.config.GtfsURL),
		slog.String("timezone", loc.String()),
		slog.Int("stops", stats.Stops),
		slog.Int("routes", stats.Routes),
		slog.Int("trips", stats.Trips),
		slog.Int("skipped_trips", stats.SkippedTrips),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// linkBikes loads the bike stations and connects them to model's stops. When
// the stations cannot be fetched the previous ones are reused.
func (manager *Manager) linkBikes(ctx context.Context, model *transit.Model) (base, linked *transit.BikeModel) {
	if manager.bikeLoader == nil {
		return nil, nil
	}
	base, err := manager.bikeLoader.Load(ctx)
	if err != nil {
		logging.LogError(manager.logger, "Failed to load bike stations, keeping previous ones", err)
		manager.staticMutex.RLock()
		base = manager.bikeBase
		manager.staticMutex.RUnlock()
	}
	if base == nil {
		return nil, nil
	}
	return base, base.LinkStops(model, bikeLinkDistance)
}

func (manager *Manager) updateBikeStatusPeriodically() {
	defer manager.wg.Done()

	logger := manager.logger.With(slog.String("component", "bike_status_updater"))
	ticker := time.NewTicker(manager.config.BikeStatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bikes := manager.Bikes()
			if bikes == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			if err := manager.bikeLoader.RefreshStatus(ctx, bikes); err != nil {
				logging.LogError(logger, "Error refreshing bike status", err)
			}
			cancel()
		case <-manager.shutdownChan:
			logging.LogOperation(logger, "shutting_down_bike_status_updates")
			return
		}
	}
}
