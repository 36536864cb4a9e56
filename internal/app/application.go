// Package app holds what the HTTP handlers share: configuration, the feed
// manager, the clock and the metrics.
package app

import (
	"log/slog"

	"raptor.transitrouter.org/bikedb"
	"raptor.transitrouter.org/internal/appconf"
	"raptor.transitrouter.org/internal/clock"
	"raptor.transitrouter.org/internal/gtfs"
	"raptor.transitrouter.org/internal/metrics"
	"raptor.transitrouter.org/internal/raptor"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware.
type Application struct {
	Config      appconf.Config
	GtfsConfig  gtfs.Config
	Logger      *slog.Logger
	GtfsManager *gtfs.Manager
	Clock       clock.Clock
	Metrics     *metrics.Metrics
	// BikeDB is nil when no distance database is configured.
	BikeDB *bikedb.Client
	// DefaultSettings are used for connection requests without settings.
	DefaultSettings raptor.Settings
}
