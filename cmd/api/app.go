package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"raptor.transitrouter.org/bikedb"
	"raptor.transitrouter.org/internal/app"
	"raptor.transitrouter.org/internal/appconf"
	"raptor.transitrouter.org/internal/clock"
	"raptor.transitrouter.org/internal/gbfs"
	"raptor.transitrouter.org/internal/gtfs"
	"raptor.transitrouter.org/internal/logging"
	"raptor.transitrouter.org/internal/metrics"
	"raptor.transitrouter.org/internal/raptor"
	"raptor.transitrouter.org/internal/restapi"
	"raptor.transitrouter.org/internal/webui"
)

const (
	defaultBikeStatusInterval = time.Minute
	initialLoadTimeout        = 10 * time.Minute
	shutdownTimeout           = 30 * time.Second
	dbStatsInterval           = 15 * time.Second
)

// RoutingConfig is what the process needs besides the server and feed
// configuration: shared bikes, default search settings and the clock.
type RoutingConfig struct {
	Bikes    appconf.BikeData
	Settings raptor.Settings
	Clock    clock.Clock
}

// ParseAPIKeys splits a comma separated list. Empty entries are kept so
// that a stray comma does not silently drop a key position.
func ParseAPIKeys(apiKeysFlag string) []string {
	if apiKeysFlag == "" {
		return []string{}
	}
	keys := strings.Split(apiKeysFlag, ",")
	for i, key := range keys {
		keys[i] = strings.TrimSpace(key)
	}
	return keys
}

// NewClock returns a clock pinned by envVar or filePath when either is set,
// and the system clock otherwise.
func NewClock(envVar, filePath, timezone string) (clock.Clock, error) {
	if os.Getenv(envVar) == "" && filePath == "" {
		return clock.RealClock{}, nil
	}
	loc := time.UTC
	if timezone != "" {
		var err error
		if loc, err = time.LoadLocation(timezone); err != nil {
			return nil, fmt.Errorf("unknown timezone %q: %w", timezone, err)
		}
	}
	return clock.NewEnvironmentClock(envVar, filePath, loc), nil
}

// BuildApplication loads the transit data and wires every dependency the
// handlers need. The first static load must succeed.
func BuildApplication(cfg appconf.Config, gtfsCfg gtfs.Config, routing RoutingConfig) (*app.Application, error) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewLogger(os.Stdout, cfg.Env == appconf.Production, level)
	slog.SetDefault(logger)

	if routing.Clock == nil {
		routing.Clock = clock.RealClock{}
	}
	if routing.Settings == (raptor.Settings{}) {
		routing.Settings = raptor.DefaultSettings()
	}

	m := metrics.NewWithLogger(logger)

	var bikeDB *bikedb.Client
	var bikeLoader *gbfs.Loader
	if routing.Bikes.StationInformationURL != "" {
		if routing.Bikes.DistanceDBPath != "" {
			var err error
			bikeDB, err = bikedb.NewClient(bikedb.Config{
				DBPath:  routing.Bikes.DistanceDBPath,
				Env:     cfg.Env,
				Verbose: cfg.Verbose,
			})
			if err != nil {
				m.Shutdown()
				return nil, fmt.Errorf("failed to open bike distance database: %w", err)
			}
			m.StartDBStatsCollector(bikeDB.DB, dbStatsInterval)
		}
		bikeLoader = gbfs.NewLoader(gbfs.Config{
			StationInformationURL: routing.Bikes.StationInformationURL,
			StationStatusURL:      routing.Bikes.StationStatusURL,
		}, bikeDB, logger)
		if gtfsCfg.BikeStatusInterval == 0 {
			gtfsCfg.BikeStatusInterval = defaultBikeStatusInterval
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), initialLoadTimeout)
	defer cancel()

	manager, err := gtfs.InitGTFSManager(ctx, gtfsCfg, gtfs.Options{
		Clock:      routing.Clock,
		Metrics:    m,
		BikeLoader: bikeLoader,
		Logger:     logger,
	})
	if err != nil {
		m.Shutdown()
		if bikeDB != nil {
			logging.SafeCloseWithLogging(bikeDB, logger, "bike_distance_db")
		}
		return nil, fmt.Errorf("failed to initialize GTFS manager: %w", err)
	}

	return &app.Application{
		Config:          cfg,
		GtfsConfig:      gtfsCfg,
		Logger:          logger,
		GtfsManager:     manager,
		Clock:           routing.Clock,
		Metrics:         m,
		BikeDB:          bikeDB,
		DefaultSettings: routing.Settings,
	}, nil
}

// CreateServer builds the HTTP server. The debug pages are only mounted
// outside production.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	mux := http.NewServeMux()

	api := restapi.NewRestAPI(coreApp)
	api.SetRoutes(mux)

	if cfg.Env != appconf.Production {
		webUI := &webui.WebUI{Application: coreApp}
		webUI.SetWebUIRoutes(mux)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.WithMiddleware(mux),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv, api
}

// Run serves until ctx is cancelled or the server fails, then shuts down
// the server and every background worker of coreApp.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "starting_server", slog.String("addr", srv.Addr),
			slog.String("env", coreApp.Config.Env.String()))
		serverErr <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logging.LogOperation(logger, "shutting_down_server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			runErr = fmt.Errorf("server shutdown failed: %w", err)
		}
	}

	api.Shutdown()
	if coreApp.GtfsManager != nil {
		coreApp.GtfsManager.Shutdown()
	}
	if coreApp.Metrics != nil {
		coreApp.Metrics.Shutdown()
	}
	if coreApp.BikeDB != nil {
		logging.SafeCloseWithLogging(coreApp.BikeDB, logger, "bike_distance_db")
	}
	return runErr
}
