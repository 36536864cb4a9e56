package gtfs

import "raptor.transitrouter.org/internal/transit"

// RegionBounds is the area covered by the model's stops.
type RegionBounds struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	LatSpan float64 `json:"latSpan"`
	LonSpan float64 `json:"lonSpan"`
}

// ComputeRegionBounds returns nil when there are no stops.
func ComputeRegionBounds(stops []*transit.Stop) *RegionBounds {
	if len(stops) == 0 {
		return nil
	}

	minLat, maxLat := stops[0].Coords.Lat, stops[0].Coords.Lat
	minLon, maxLon := stops[0].Coords.Lon, stops[0].Coords.Lon
	for _, s := range stops[1:] {
		minLat = min(minLat, s.Coords.Lat)
		maxLat = max(maxLat, s.Coords.Lat)
		minLon = min(minLon, s.Coords.Lon)
		maxLon = max(maxLon, s.Coords.Lon)
	}

	return &RegionBounds{
		Lat:     (minLat + maxLat) / 2,
		Lon:     (minLon + maxLon) / 2,
		LatSpan: maxLat - minLat,
		LonSpan: maxLon - minLon,
	}
}

func (manager *Manager) RegionBounds() *RegionBounds {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.regionBounds
}

