package raptor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"raptor.transitrouter.org/internal/clock"
	"raptor.transitrouter.org/internal/metrics"
	"raptor.transitrouter.org/internal/transit"
)

// Router answers searches over one snapshot of the transit and bike models.
// It holds no per-search state and is safe for concurrent use.
type Router struct {
	transit *transit.Model
	bikes   *transit.BikeModel
	delays  transit.DelayLookup
	clock   clock.Clock
	logger  *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

func NewRouter(tm *transit.Model, bm *transit.BikeModel, delays transit.DelayLookup, clk clock.Clock, logger *slog.Logger) *Router {
	if bm == nil {
		bm = transit.NewBikeModel(nil)
	}
	if delays == nil {
		delays = transit.NoDelays{}
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{transit: tm, bikes: bm, delays: delays, clock: clk, logger: logger}
}

func (r *Router) Transit() *transit.Model   { return r.transit }
func (r *Router) Bikes() *transit.BikeModel { return r.bikes }
func (r *Router) Clock() clock.Clock        { return r.clock }

// Query is one search in real-world terms: Src is where the rider leaves
// from and Dest where they arrive, whatever the direction. A non-nil
// coordinate makes that side a custom point whose walks lead to its stops
// and stations.
type Query struct {
	Forward  bool
	Time     time.Time
	Settings Settings

	SrcStops     []*transit.Stop
	SrcStations  []*transit.BikeStation
	DestStops    []*transit.Stop
	DestStations []*transit.BikeStation
	SrcCoords    *transit.Coordinates
	DestCoords   *transit.Coordinates

	// Alternatives also returns worse results using a different number of
	// trips.
	Alternatives bool
}

// stopListsUsable reports whether both sides have something to start or end
// the search at.
func (q Query) stopListsUsable() bool {
	if !q.Settings.UseSharedBikes {
		return len(q.SrcStops) > 0 && len(q.DestStops) > 0
	}
	return len(q.SrcStops)+len(q.SrcStations) > 0 && len(q.DestStops)+len(q.DestStations) > 0
}

// Search runs one query. A query without a connection returns no results
// and no error.
func (r *Router) Search(ctx context.Context, q Query) ([]*SearchResult, error) {
	if !q.stopListsUsable() {
		return nil, nil
	}

	searchID := uuid.NewString()
	logger := r.logger.With(slog.String("search_id", searchID))
	start := r.clock.Now()

	s := r.newSearchSession(q)
	if err := newScan(s).run(ctx); err != nil {
		return nil, fmt.Errorf("search %s: %w", searchID, err)
	}

	var results []*SearchResult
	if q.Alternatives {
		all, err := s.ExtractResultWithAlternatives()
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", searchID, err)
		}
		results = all
	} else {
		res, err := s.ExtractResult()
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", searchID, err)
		}
		if res != nil {
			results = []*SearchResult{res}
		}
	}

	logger.Debug("search finished",
		slog.Bool("forward", q.Forward),
		slog.Time("time", q.Time),
		slog.Int("results", len(results)),
		slog.Duration("took", r.clock.Now().Sub(start)))
	return results, nil
}

func (r *Router) newSearchSession(q Query) *session {
	s := newSession(r.transit, r.bikes, r.delays, r.clock.Now(), q.Settings, q.Forward, q.Time.Unix())

	var src, dest *CustomRoutePoint
	if q.SrcCoords != nil {
		src = NewCustomRoutePoint("srcId", "Source", *q.SrcCoords)
	}
	if q.DestCoords != nil {
		dest = NewCustomRoutePoint("destId", "Destination", *q.DestCoords)
	}

	if q.Forward {
		s.beginStops, s.beginStations = q.SrcStops, q.SrcStations
		s.setEnd(q.DestStops, q.DestStations)
		s.beginCustom, s.endCustom = src, dest
	} else {
		s.beginStops, s.beginStations = q.DestStops, q.DestStations
		s.setEnd(q.SrcStops, q.SrcStations)
		s.beginCustom, s.endCustom = dest, src
	}

	if src != nil {
		for _, st := range q.SrcStops {
			src.addTransfer(st, st.Index, true)
		}
		for _, b := range q.SrcStations {
			src.addTransfer(b, s.stationPoint(b), true)
		}
	}
	if dest != nil {
		for _, st := range q.DestStops {
			dest.addTransfer(st, st.Index, false)
		}
		for _, b := range q.DestStations {
			dest.addTransfer(b, s.stationPoint(b), false)
		}
	}
	return s
}
