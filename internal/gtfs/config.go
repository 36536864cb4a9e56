package gtfs

import (
	"fmt"
	"time"

	"raptor.transitrouter.org/internal/appconf"
)

const (
	defaultServiceDays         = 7
	defaultMaxTransferDistance = 750.0
	defaultRefreshInterval     = 30
	// bikeLinkDistance bounds the walk between a stop and a bike station.
	bikeLinkDistance = 750.0
)

// Configuration for a single GTFS-RT trip updates feed.
type RTFeedConfig struct {
	ID              string
	TripUpdatesURL  string
	Headers         map[string]string
	RefreshInterval int // seconds, default 30
	Enabled         bool
}

func (f RTFeedConfig) interval() time.Duration {
	if f.RefreshInterval <= 0 {
		return defaultRefreshInterval * time.Second
	}
	return time.Duration(f.RefreshInterval) * time.Second
}

// Config holds GTFS configuration for the manager.
type Config struct {
	GtfsURL string
	// StaticHeaders are sent with the static feed download.
	StaticHeaders map[string]string
	RTFeeds       []RTFeedConfig
	// Timezone overrides the timezone of the first agency.
	Timezone string
	// ServiceDays is how many days after today the timetable is expanded
	// for. Yesterday is always included.
	ServiceDays         int
	MaxTransferDistance float64 // meters
	// BikeStatusInterval is how often bike counts are refreshed. Zero
	// disables the refresh.
	BikeStatusInterval time.Duration
	Env                appconf.Environment
	Verbose            bool
}

// ConfigFromFile builds a Config from the feed part of a YAML config file.
func ConfigFromFile(data appconf.GtfsConfigData) Config {
	config := Config{
		GtfsURL:             data.GtfsURL,
		StaticHeaders:       data.StaticHeaders,
		Timezone:            data.Timezone,
		ServiceDays:         data.ServiceDays,
		MaxTransferDistance: float64(data.MaxTransferDist),
		Env:                 data.Env,
		Verbose:             data.Verbose,
	}
	for _, feed := range data.RTFeeds {
		config.RTFeeds = append(config.RTFeeds, RTFeedConfig{
			ID:              feed.ID,
			TripUpdatesURL:  feed.TripUpdatesURL,
			Headers:         feed.Headers,
			RefreshInterval: feed.RefreshInterval,
			Enabled:         feed.FeedEnabled(),
		})
	}
	return config
}

// enabledFeeds returns only the enabled feeds that have a trip updates URL.
func (config Config) enabledFeeds() []RTFeedConfig {
	var feeds []RTFeedConfig
	for i, feed := range config.RTFeeds {
		if !feed.Enabled || feed.TripUpdatesURL == "" {
			continue
		}
		if feed.ID == "" {
			feed.ID = fmt.Sprintf("feed-%d", i)
		}
		feeds = append(feeds, feed)
	}
	return feeds
}

func (config Config) serviceDays() int {
	if config.ServiceDays <= 0 {
		return defaultServiceDays
	}
	return config.ServiceDays
}

func (config Config) maxTransferDistance() float64 {
	if config.MaxTransferDistance <= 0 {
		return defaultMaxTransferDistance
	}
	return config.MaxTransferDistance
}
