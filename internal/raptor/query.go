package raptor

import (
	"context"
	"time"

	"raptor.transitrouter.org/internal/transit"
)

// ConnectionRequest is a connection search as clients send it. Each end is
// given either by stop name or, with the ByCoords flag, by coordinates.
type ConnectionRequest struct {
	SrcStopName         string     `json:"srcStopName,omitempty"`
	SrcLat              float64    `json:"srcLat"`
	SrcLon              float64    `json:"srcLon"`
	SrcByCoords         bool       `json:"srcByCoords"`
	DestStopName        string     `json:"destStopName,omitempty"`
	DestLat             float64    `json:"destLat"`
	DestLon             float64    `json:"destLon"`
	DestByCoords        bool       `json:"destByCoords"`
	DateTime            *time.Time `json:"dateTime"`
	ByEarliestDeparture bool       `json:"byEarliestDeparture"`
	Range               bool       `json:"range"`
	Settings            *Settings  `json:"settings"`
}

// ConnectionResponse carries either results or the reason there are none.
type ConnectionResponse struct {
	Error   ConnectionSearchError `json:"error"`
	Results []*SearchResult       `json:"results"`
}

func (req ConnectionRequest) srcCoords() transit.Coordinates {
	return transit.Coordinates{Lat: req.SrcLat, Lon: req.SrcLon}
}

func (req ConnectionRequest) destCoords() transit.Coordinates {
	return transit.Coordinates{Lat: req.DestLat, Lon: req.DestLon}
}

// Validate checks the request against the models before any search runs.
func (req ConnectionRequest) Validate(tm *transit.Model, bm *transit.BikeModel) ConnectionSearchError {
	if req.DateTime == nil || req.DateTime.IsZero() {
		return InvalidDateTime
	}
	if req.Settings == nil || req.Settings.Validate() != nil {
		return InvalidSettings
	}

	src, dest := req.srcCoords(), req.destCoords()
	if e := combine(req.SrcByCoords && !src.Valid(), req.DestByCoords && !dest.Valid(),
		InvalidSrcCoordinates, InvalidDestCoordinates, InvalidBothCoordinates); e != NoError {
		return e
	}

	maxWalk := float64(req.Settings.MaxTransferDistance())
	near := func(c transit.Coordinates) bool {
		if tm.NearStopExists(c, maxWalk) {
			return true
		}
		return req.Settings.UseSharedBikes && bm != nil && bm.NearStationExists(c, maxWalk)
	}
	if e := combine(req.SrcByCoords && !near(src), req.DestByCoords && !near(dest),
		NoStopsNearSrcCoords, NoStopsNearDestCoords, NoStopsNearBothCoords); e != NoError {
		return e
	}

	unknown := func(name string) bool { return len(tm.StopsByName(name)) == 0 }
	return combine(!req.SrcByCoords && unknown(req.SrcStopName), !req.DestByCoords && unknown(req.DestStopName),
		InvalidSrcStopName, InvalidDestStopName, InvalidBothStopNames)
}

// sameEnds reports whether both ends name the same place.
func (req ConnectionRequest) sameEnds() bool {
	switch {
	case !req.SrcByCoords && !req.DestByCoords:
		return req.SrcStopName == req.DestStopName
	case req.SrcByCoords && req.DestByCoords:
		return req.srcCoords() == req.destCoords()
	default:
		return false
	}
}

// query resolves the request's ends into a search query starting at t.
func (r *Router) query(req ConnectionRequest, t time.Time, alternatives bool) Query {
	q := Query{
		Forward:      req.ByEarliestDeparture,
		Time:         t,
		Settings:     *req.Settings,
		Alternatives: alternatives,
	}
	q.SrcStops, q.SrcStations, q.SrcCoords = r.resolveEnd(req.SrcByCoords, req.SrcStopName, req.srcCoords(), q.Settings)
	q.DestStops, q.DestStations, q.DestCoords = r.resolveEnd(req.DestByCoords, req.DestStopName, req.destCoords(), q.Settings)
	return q
}

func (r *Router) resolveEnd(byCoords bool, name string, c transit.Coordinates, settings Settings) ([]*transit.Stop, []*transit.BikeStation, *transit.Coordinates) {
	if !byCoords {
		return r.transit.StopsByName(name), nil, nil
	}
	maxWalk := float64(settings.MaxTransferDistance())
	var stations []*transit.BikeStation
	if settings.UseSharedBikes {
		stations = r.bikes.NearStations(c, maxWalk)
	}
	return r.transit.StopsByLocation(c, maxWalk), stations, &c
}

// FindConnection validates and runs a connection request. Only failures of
// the search itself are returned as errors; everything else is reported in
// the response.
func (r *Router) FindConnection(ctx context.Context, req ConnectionRequest) (ConnectionResponse, error) {
	kind := "connection"
	if req.Range {
		kind = "range"
	}
	start := r.clock.Now()

	if e := req.Validate(r.transit, r.bikes); e != NoError {
		r.Metrics.ObserveSearch(kind, "invalid", r.clock.Now().Sub(start))
		return ConnectionResponse{Error: e}, nil
	}
	if req.sameEnds() {
		r.Metrics.ObserveSearch(kind, "not_found", r.clock.Now().Sub(start))
		return ConnectionResponse{Error: NoConnectionFound}, nil
	}

	var results []*SearchResult
	var err error
	if req.Range {
		results, err = r.rangeSearch(ctx, req)
	} else {
		results, err = r.Search(ctx, r.query(req, *req.DateTime, false))
	}
	if err != nil {
		r.Metrics.ObserveSearch(kind, "error", r.clock.Now().Sub(start))
		return ConnectionResponse{}, err
	}
	if len(results) == 0 {
		r.Metrics.ObserveSearch(kind, "not_found", r.clock.Now().Sub(start))
		return ConnectionResponse{Error: NoConnectionFound}, nil
	}
	r.Metrics.ObserveSearch(kind, "ok", r.clock.Now().Sub(start))
	return ConnectionResponse{Error: NoError, Results: results}, nil
}
