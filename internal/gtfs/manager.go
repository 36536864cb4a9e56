// Package gtfs keeps the routing snapshot fresh: it builds the transit model
// from the static feed, links shared bikes to it, feeds GTFS-RT trip updates
// into the delay model and hands out a router over the current data.
package gtfs

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"raptor.transitrouter.org/internal/clock"
	"raptor.transitrouter.org/internal/delay"
	"raptor.transitrouter.org/internal/gbfs"
	"raptor.transitrouter.org/internal/metrics"
	"raptor.transitrouter.org/internal/raptor"
	"raptor.transitrouter.org/internal/transit"
)

var ErrNoModel = errors.New("no transit model loaded")

// Options carries the optional collaborators of a Manager.
type Options struct {
	Clock      clock.Clock
	Metrics    *metrics.Metrics
	BikeLoader *gbfs.Loader
	Logger     *slog.Logger
}

type Manager struct {
	config      Config
	isLocalFile bool
	clock       clock.Clock
	metrics     *metrics.Metrics
	bikeLoader  *gbfs.Loader
	delays      *delay.Model
	logger      *slog.Logger

	staticMutex       sync.RWMutex // guards the snapshot below
	staticUpdateMutex sync.Mutex   // serializes rebuilds
	gtfsData          *gtfs.Static
	model             *transit.Model
	bikeBase          *transit.BikeModel
	bikes             *transit.BikeModel
	router            *raptor.Router
	regionBounds      *RegionBounds
	buildStats        BuildStats
	lastUpdated       time.Time
	isHealthy         bool

	realTimeMutex sync.RWMutex
	realTimeTrips map[string][]gtfs.Trip
	feedUpdated   map[string]time.Time

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

func newManager(config Config, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		config:        config,
		isLocalFile:   !strings.HasPrefix(config.GtfsURL, "http://") && !strings.HasPrefix(config.GtfsURL, "https://"),
		clock:         opts.Clock,
		metrics:       opts.Metrics,
		bikeLoader:    opts.BikeLoader,
		delays:        delay.NewModel(),
		logger:        opts.Logger.With(slog.String("component", "gtfs_manager")),
		realTimeTrips: make(map[string][]gtfs.Trip),
		feedUpdated:   make(map[string]time.Time),
		shutdownChan:  make(chan struct{}),
	}
}

// InitGTFSManager loads the static feed and starts the background updates.
// It fails when the first load fails.
func InitGTFSManager(ctx context.Context, config Config, opts Options) (*Manager, error) {
	manager := newManager(config, opts)
	if err := manager.ForceUpdate(ctx); err != nil {
		return nil, err
	}

	manager.wg.Add(1)
	go manager.updateStaticGTFS()

	for _, feed := range config.enabledFeeds() {
		manager.wg.Add(1)
		go manager.updateGTFSRealtimePeriodically(feed)
	}

	if manager.bikeLoader != nil && config.BikeStatusInterval > 0 {
		manager.wg.Add(1)
		go manager.updateBikeStatusPeriodically()
	}
	return manager, nil
}

// NewManagerFromModel wraps an already built model. Nothing is reloaded in
// the background.
func NewManagerFromModel(model *transit.Model, bikes *transit.BikeModel, opts Options) *Manager {
	manager := newManager(Config{}, opts)
	manager.publish(nil, model, nil, bikes, BuildStats{Stops: len(model.Stops()), Routes: len(model.Routes())})
	return manager
}

// publish swaps in a new snapshot and the router over it.
func (manager *Manager) publish(static *gtfs.Static, model *transit.Model, base, bikes *transit.BikeModel, stats BuildStats) {
	router := raptor.NewRouter(model, bikes, manager.delays, manager.clock,
		manager.logger.With(slog.String("component", "raptor")))
	router.Metrics = manager.metrics
	bounds := ComputeRegionBounds(model.Stops())

	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()

	manager.gtfsData = static
	manager.model = model
	manager.bikeBase = base
	manager.bikes = router.Bikes()
	manager.router = router
	manager.regionBounds = bounds
	manager.buildStats = stats
	manager.lastUpdated = manager.clock.Now()
	manager.isHealthy = true
}

// Router returns a router over the current snapshot. It stays valid after
// a reload; it just keeps answering from the data it was built with.
func (manager *Manager) Router() (*raptor.Router, error) {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	if manager.router == nil {
		return nil, ErrNoModel
	}
	return manager.router, nil
}

func (manager *Manager) Model() *transit.Model {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.model
}

func (manager *Manager) Bikes() *transit.BikeModel {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.bikes
}

func (manager *Manager) Delays() *delay.Model {
	return manager.delays
}

func (manager *Manager) BuildStats() BuildStats {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.buildStats
}

func (manager *Manager) LastUpdated() time.Time {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.lastUpdated
}

// RLock and RUnlock let callers read several parts of one snapshot
// consistently through the Get* accessors.
func (manager *Manager) RLock() {
	manager.staticMutex.RLock()
}

func (manager *Manager) RUnlock() {
	manager.staticMutex.RUnlock()
}

// GetStaticData returns the parsed feed behind the current model, or nil.
// IMPORTANT: Caller must hold manager.RLock() before calling this method.
func (manager *Manager) GetStaticData() *gtfs.Static {
	return manager.gtfsData
}

// GetRealTimeTrips returns the last trip updates of every feed.
func (manager *Manager) GetRealTimeTrips() []gtfs.Trip {
	manager.realTimeMutex.RLock()
	defer manager.realTimeMutex.RUnlock()
	var trips []gtfs.Trip
	for _, feedTrips := range manager.realTimeTrips {
		trips = append(trips, feedTrips...)
	}
	return trips
}

// FeedStatus describes one configured GTFS-RT feed. LastUpdated is zero
// until the first successful fetch.
type FeedStatus struct {
	ID          string    `json:"id"`
	LastUpdated time.Time `json:"lastUpdated"`
	Trips       int       `json:"trips"`
}

// RealtimeFeeds reports every enabled feed in configuration order.
func (manager *Manager) RealtimeFeeds() []FeedStatus {
	manager.realTimeMutex.RLock()
	defer manager.realTimeMutex.RUnlock()
	feeds := manager.config.enabledFeeds()
	out := make([]FeedStatus, 0, len(feeds))
	for _, feed := range feeds {
		out = append(out, FeedStatus{
			ID:          feed.ID,
			LastUpdated: manager.feedUpdated[feed.ID],
			Trips:       len(manager.realTimeTrips[feed.ID]),
		})
	}
	return out
}

func (manager *Manager) IsHealthy() bool {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.isHealthy
}

func (manager *Manager) MarkHealthy() {
	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()
	manager.isHealthy = true
}

func (manager *Manager) MarkUnhealthy() {
	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()
	manager.isHealthy = false
}

// Shutdown stops the background updates and waits for them to return.
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		close(manager.shutdownChan)
	})
	manager.wg.Wait()
}
