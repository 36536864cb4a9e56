package models

import "raptor.transitrouter.org/internal/transit"

// StopModel is a stop as returned by the stop search.
type StopModel struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	RouteIDs []string `json:"routeIds"`
}

func NewStopModel(s *transit.Stop) StopModel {
	m := StopModel{
		ID:       s.ID,
		Name:     s.Name,
		Lat:      s.Coords.Lat,
		Lon:      s.Coords.Lon,
		RouteIDs: []string{},
	}
	seen := make(map[string]bool)
	for _, r := range s.Routes {
		if !seen[r.GTFSID] {
			seen[r.GTFSID] = true
			m.RouteIDs = append(m.RouteIDs, r.GTFSID)
		}
	}
	return m
}

// StopNameModel groups the stops sharing one searchable name.
type StopNameModel struct {
	Name  string      `json:"name"`
	Stops []StopModel `json:"stops"`
}
