// Package metrics provides Prometheus metrics for the router service.
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Bike distance database pool
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitSecondsTotal prometheus.Counter

	// Search metrics
	SearchesTotal     *prometheus.CounterVec
	SearchDuration    *prometheus.HistogramVec
	RangeTaskFailures prometheus.Counter

	// Feed metrics
	DelayUpdatesTotal *prometheus.CounterVec
	DelayTrackedTrips prometheus.Gauge
	ModelLoadsTotal   *prometheus.CounterVec

	logger *slog.Logger

	// collectorStarted prevents spawning multiple collector goroutines
	collectorStarted atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	return NewWithLogger(nil)
}

// NewWithLogger creates metrics with a logger for error reporting.
func NewWithLogger(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "raptor_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "raptor_http_request_duration_seconds",
				Help:    "HTTP request latency distribution",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raptor_db_connections_open",
			Help: "Number of open bike distance database connections",
		}),
		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raptor_db_connections_in_use",
			Help: "Number of bike distance database connections currently in use",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raptor_db_connections_idle",
			Help: "Number of idle bike distance database connections",
		}),
		DBWaitSecondsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raptor_db_wait_seconds_total",
			Help: "Total time blocked waiting for a bike distance database connection",
		}),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "raptor_searches_total",
				Help: "Searches by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "raptor_search_duration_seconds",
				Help:    "Search latency distribution",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),
		RangeTaskFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raptor_range_task_failures_total",
			Help: "Range search departures whose search failed",
		}),
		DelayUpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "raptor_delay_updates_total",
				Help: "GTFS-RT delay feed polls by outcome",
			},
			[]string{"outcome"},
		),
		DelayTrackedTrips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raptor_delay_tracked_trips",
			Help: "Dated trips with real-time delay data",
		}),
		ModelLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "raptor_model_loads_total",
				Help: "Transit model builds by outcome",
			},
			[]string{"outcome"},
		),
		logger: logger,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBWaitSecondsTotal,
		m.SearchesTotal,
		m.SearchDuration,
		m.RangeTaskFailures,
		m.DelayUpdatesTotal,
		m.DelayTrackedTrips,
		m.ModelLoadsTotal,
	)

	return m
}

// ObserveSearch counts one search and its latency. Safe on a nil receiver.
func (m *Metrics) ObserveSearch(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(kind, outcome).Inc()
	m.SearchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) IncRangeTaskFailures() {
	if m == nil {
		return
	}
	m.RangeTaskFailures.Inc()
}

// ObserveDelayUpdate counts one realtime poll and records how many trips are
// tracked after it.
func (m *Metrics) ObserveDelayUpdate(outcome string, tracked int) {
	if m == nil {
		return
	}
	m.DelayUpdatesTotal.WithLabelValues(outcome).Inc()
	if tracked >= 0 {
		m.DelayTrackedTrips.Set(float64(tracked))
	}
}

func (m *Metrics) IncModelLoads(outcome string) {
	if m == nil {
		return
	}
	m.ModelLoadsTotal.WithLabelValues(outcome).Inc()
}

// StartDBStatsCollector starts a goroutine that periodically collects database
// connection pool statistics and updates the corresponding metrics.
// Calling it again after the first call has no effect. Call Shutdown() to
// stop the collector.
func (m *Metrics) StartDBStatsCollector(db *sql.DB, interval time.Duration) {
	if db == nil {
		return
	}

	if !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	var lastWaitDuration time.Duration

	// Add to WaitGroup BEFORE exposing cancel to avoid race with Shutdown
	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				if m.logger != nil {
					m.logger.Error("panic in DB stats collector", "error", r)
				}
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats := db.Stats()
				m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
				m.DBConnectionsInUse.Set(float64(stats.InUse))
				m.DBConnectionsIdle.Set(float64(stats.Idle))

				waitDelta := stats.WaitDuration - lastWaitDuration
				if waitDelta > 0 {
					m.DBWaitSecondsTotal.Add(waitDelta.Seconds())
				}
				lastWaitDuration = stats.WaitDuration

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the DB stats collector goroutine and waits for it to exit.
// This method is safe to call multiple times.
func (m *Metrics) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
