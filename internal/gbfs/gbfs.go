// Package gbfs loads shared-bike stations from a GBFS feed into a
// transit.BikeModel, completing missing station distances through bikedb.
package gbfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"raptor.transitrouter.org/bikedb"
	"raptor.transitrouter.org/internal/logging"
	"raptor.transitrouter.org/internal/transit"
)

const (
	// DefaultDetourFactor approximates street distance from straight-line
	// distance.
	DefaultDetourFactor = 1.3
	// DefaultMaxRideDistance is 15 minutes of cycling at 5 min/km.
	DefaultMaxRideDistance = 3000.0

	maxFeedSize = 20 * 1024 * 1024
)

type Config struct {
	StationInformationURL string
	StationStatusURL      string
	Headers               map[string]string
	DetourFactor          float64
	MaxRideDistance       float64
}

type stationInformation struct {
	Data struct {
		Stations []struct {
			StationID string  `json:"station_id"`
			Name      string  `json:"name"`
			Lat       float64 `json:"lat"`
			Lon       float64 `json:"lon"`
			Capacity  int     `json:"capacity"`
		} `json:"stations"`
	} `json:"data"`
}

type stationStatus struct {
	Data struct {
		Stations []struct {
			StationID         string `json:"station_id"`
			NumBikesAvailable int    `json:"num_bikes_available"`
			IsRenting         *bool  `json:"is_renting"`
		} `json:"stations"`
	} `json:"data"`
}

type Loader struct {
	config Config
	db     *bikedb.Client
	client *http.Client
	logger *slog.Logger
}

// NewLoader creates a loader. db may be nil, in which case distances are
// computed on every load.
func NewLoader(config Config, db *bikedb.Client, logger *slog.Logger) *Loader {
	if config.DetourFactor <= 0 {
		config.DetourFactor = DefaultDetourFactor
	}
	if config.MaxRideDistance <= 0 {
		config.MaxRideDistance = DefaultMaxRideDistance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		config: config,
		db:     db,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.With(slog.String("component", "gbfs_loader")),
	}
}

// Load fetches stations and their status and builds a bike model with
// distances for every pair within the maximum ride distance.
func (l *Loader) Load(ctx context.Context) (*transit.BikeModel, error) {
	var info stationInformation
	var status stationStatus

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.fetchJSON(gctx, l.config.StationInformationURL, &info)
	})
	g.Go(func() error {
		return l.fetchJSON(gctx, l.config.StationStatusURL, &status)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stations := make([]*transit.BikeStation, 0, len(info.Data.Stations))
	ids := make([]string, 0, len(info.Data.Stations))
	for _, s := range info.Data.Stations {
		c := transit.Coordinates{Lat: s.Lat, Lon: s.Lon}
		if s.StationID == "" || !c.Valid() {
			continue
		}
		stations = append(stations, &transit.BikeStation{
			ID:       s.StationID,
			Name:     s.Name,
			Coords:   c,
			Capacity: s.Capacity,
		})
		ids = append(ids, s.StationID)
	}
	bm := transit.NewBikeModel(stations)
	applyStatus(bm, &status)

	if err := l.fillDistances(ctx, bm, ids); err != nil {
		return nil, err
	}
	bm.Freeze()

	logging.LogOperation(l.logger, "bike_stations_loaded",
		slog.Int("stations", bm.Len()),
		slog.String("source", l.config.StationInformationURL))
	return bm, nil
}

// RefreshStatus updates live bike counts of an already loaded model.
func (l *Loader) RefreshStatus(ctx context.Context, bm *transit.BikeModel) error {
	var status stationStatus
	if err := l.fetchJSON(ctx, l.config.StationStatusURL, &status); err != nil {
		return err
	}
	applyStatus(bm, &status)
	return nil
}

func applyStatus(bm *transit.BikeModel, status *stationStatus) {
	for _, s := range status.Data.Stations {
		station, ok := bm.Station(s.StationID)
		if !ok {
			continue
		}
		bikes := s.NumBikesAvailable
		if s.IsRenting != nil && !*s.IsRenting {
			bikes = 0
		}
		station.SetBikeCount(bikes)
	}
}

func (l *Loader) fillDistances(ctx context.Context, bm *transit.BikeModel, ids []string) error {
	if l.db != nil {
		if _, err := l.db.PurgeMissingStations(ctx, ids); err != nil {
			return fmt.Errorf("failed to purge stale stations: %w", err)
		}
		err := l.db.AllDistances(ctx, func(d bikedb.Distance) {
			a, okA := bm.Station(d.StationA)
			b, okB := bm.Station(d.StationB)
			if okA && okB {
				bm.SetDistance(a, b, d.Meters)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to load stored distances: %w", err)
		}
	}

	var computed []bikedb.Distance
	for _, a := range bm.Stations() {
		for _, b := range bm.NearStationsWithDistances(a.Coords, l.config.MaxRideDistance/l.config.DetourFactor) {
			if b.Station.Index <= a.Index || bm.DistanceBetween(a, b.Station) >= 0 {
				continue
			}
			meters := int(float64(b.Distance) * l.config.DetourFactor)
			bm.SetDistance(a, b.Station, meters)
			computed = append(computed, bikedb.Distance{StationA: a.ID, StationB: b.Station.ID, Meters: meters})
		}
	}

	if l.db != nil {
		if err := l.db.UpsertDistances(ctx, computed); err != nil {
			return fmt.Errorf("failed to store distances: %w", err)
		}
		if err := l.db.RecordImport(ctx, bm.Len(), l.config.StationInformationURL, time.Now()); err != nil {
			return err
		}
	}
	if len(computed) > 0 {
		logging.LogOperation(l.logger, "bike_distances_computed", slog.Int("pairs", len(computed)))
	}
	return nil
}

func (l *Loader) fetchJSON(ctx context.Context, source string, v any) error {
	body, err := l.fetch(ctx, source)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", source, err)
	}
	return nil
}

func (l *Loader) fetch(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		b, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("error reading local GBFS file: %w", err)
		}
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GBFS request: %w", err)
	}
	for key, value := range l.config.Headers {
		req.Header.Set(key, value)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading GBFS data: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, l.logger, "http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gbfs fetch failed: %s returned %s", source, resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(b) > maxFeedSize {
		return nil, fmt.Errorf("GBFS response exceeds size limit of %d bytes", maxFeedSize)
	}
	return b, nil
}
