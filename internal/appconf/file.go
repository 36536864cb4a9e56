package appconf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RTFeedData describes one GTFS-RT trip updates feed in the config file.
type RTFeedData struct {
	ID              string            `yaml:"id"`
	TripUpdatesURL  string            `yaml:"trip-updates-url"`
	Headers         map[string]string `yaml:"headers"`
	RefreshInterval int               `yaml:"refresh-interval"`
	Enabled         *bool             `yaml:"enabled"`
}

// BikeData configures the shared bike source.
type BikeData struct {
	StationInformationURL string `yaml:"station-information-url"`
	StationStatusURL      string `yaml:"station-status-url"`
	DistanceDBPath        string `yaml:"distance-db-path"`
}

// SettingsData is the default search settings block. Zero values keep the
// router defaults.
type SettingsData struct {
	WalkingPace       int    `yaml:"walking-pace"`
	CyclingPace       int    `yaml:"cycling-pace"`
	BikeUnlockTime    *int   `yaml:"bike-unlock-time"`
	BikeLockTime      *int   `yaml:"bike-lock-time"`
	UseSharedBikes    bool   `yaml:"use-shared-bikes"`
	TransferBuffer    string `yaml:"transfer-buffer"`
	ComfortBalance    string `yaml:"comfort-balance"`
	WalkingPreference string `yaml:"walking-preference"`
	BikeTripBuffer    string `yaml:"bike-trip-buffer"`
}

// FileConfig mirrors the YAML configuration file.
type FileConfig struct {
	Port            int               `yaml:"port"`
	Env             string            `yaml:"env"`
	ApiKeys         []string          `yaml:"api-keys"`
	Verbose         bool              `yaml:"verbose"`
	RateLimit       int               `yaml:"rate-limit"`
	ExemptApiKeys   []string          `yaml:"rate-limit-exempt-keys"`
	GtfsURL         string            `yaml:"gtfs-url"`
	StaticHeaders   map[string]string `yaml:"static-headers"`
	Timezone        string            `yaml:"timezone"`
	ServiceDays     int               `yaml:"service-days"`
	MaxTransferDist int               `yaml:"max-transfer-distance"`
	RTFeeds         []RTFeedData      `yaml:"realtime-feeds"`
	Bikes           BikeData          `yaml:"bikes"`
	Defaults        SettingsData      `yaml:"defaults"`
}

// GtfsConfigData is the feed part of FileConfig, flattened for the gtfs
// package.
type GtfsConfigData struct {
	GtfsURL         string
	StaticHeaders   map[string]string
	Timezone        string
	ServiceDays     int
	MaxTransferDist int
	RTFeeds         []RTFeedData
	Env             Environment
	Verbose         bool
}

// LoadFromFile reads and validates a YAML configuration file.
func LoadFromFile(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *FileConfig) setDefaults() {
	if c.Port == 0 {
		c.Port = 4000
	}
	if c.Env == "" {
		c.Env = "development"
	}
	if c.RateLimit == 0 {
		c.RateLimit = 100
	}
	if c.ServiceDays == 0 {
		c.ServiceDays = 7
	}
	if c.MaxTransferDist == 0 {
		c.MaxTransferDist = 750
	}
	for i := range c.RTFeeds {
		if c.RTFeeds[i].RefreshInterval == 0 {
			c.RTFeeds[i].RefreshInterval = 30
		}
	}
}

// Validate reports every problem found in the file at once.
func (c *FileConfig) Validate() error {
	var errs []error

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch strings.ToLower(c.Env) {
	case "development", "test", "production", "prod":
	default:
		errs = append(errs, fmt.Errorf("unknown env %q", c.Env))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate-limit must not be negative"))
	}
	if strings.TrimSpace(c.GtfsURL) == "" {
		errs = append(errs, errors.New("gtfs-url is required"))
	}
	if c.ServiceDays < 1 || c.ServiceDays > 60 {
		errs = append(errs, fmt.Errorf("service-days %d out of range 1..60", c.ServiceDays))
	}
	for i, feed := range c.RTFeeds {
		if feed.TripUpdatesURL == "" {
			errs = append(errs, fmt.Errorf("realtime-feeds[%d]: trip-updates-url is required", i))
		}
		if feed.RefreshInterval < 0 {
			errs = append(errs, fmt.Errorf("realtime-feeds[%d]: refresh-interval must not be negative", i))
		}
	}
	if (c.Bikes.StationInformationURL == "") != (c.Bikes.StationStatusURL == "") {
		errs = append(errs, errors.New("bikes: station-information-url and station-status-url must be set together"))
	}

	return errors.Join(errs...)
}

func (c *FileConfig) ToAppConfig() Config {
	return Config{
		Port:          c.Port,
		Env:           EnvFlagToEnvironment(c.Env),
		ApiKeys:       c.ApiKeys,
		Verbose:       c.Verbose,
		RateLimit:     c.RateLimit,
		ExemptApiKeys: c.ExemptApiKeys,
	}
}

func (c *FileConfig) ToGtfsConfigData() GtfsConfigData {
	return GtfsConfigData{
		GtfsURL:         c.GtfsURL,
		StaticHeaders:   c.StaticHeaders,
		Timezone:        c.Timezone,
		ServiceDays:     c.ServiceDays,
		MaxTransferDist: c.MaxTransferDist,
		RTFeeds:         c.RTFeeds,
		Env:             EnvFlagToEnvironment(c.Env),
		Verbose:         c.Verbose,
	}
}

// FeedEnabled treats a missing enabled flag as true.
func (f RTFeedData) FeedEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}
