package transit

import (
	"sort"
	"sync/atomic"

	"github.com/tidwall/rtree"
	"raptor.transitrouter.org/internal/utils"
)

// BikeStation is a shared-bike dock. Its bike count is updated concurrently
// with searches and is only eventually consistent.
type BikeStation struct {
	Index    int
	ID       string
	Name     string
	Coords   Coordinates
	Capacity int

	bikes atomic.Int32
}

func (s *BikeStation) Identifier() string    { return s.ID }
func (s *BikeStation) DisplayName() string   { return s.Name }
func (s *BikeStation) Location() Coordinates { return s.Coords }

func (s *BikeStation) BikeCount() int {
	return int(s.bikes.Load())
}

func (s *BikeStation) SetBikeCount(n int) {
	s.bikes.Store(int32(n))
}

// BikeTransfer is a walk between a stop and a bike station. ToStation tells
// which way it goes.
type BikeTransfer struct {
	Stop      *Stop
	Station   *BikeStation
	ToStation bool
	Distance  int
	Opposite  *BikeTransfer
}

func (t *BikeTransfer) Source() RoutePoint {
	if t.ToStation {
		return t.Stop
	}
	return t.Station
}

func (t *BikeTransfer) Destination() RoutePoint {
	if t.ToStation {
		return t.Station
	}
	return t.Stop
}

// NewBikeTransferPair creates the stop to station walk and its opposite.
func NewBikeTransferPair(stop *Stop, station *BikeStation, distance int) (*BikeTransfer, *BikeTransfer) {
	toStation := &BikeTransfer{Stop: stop, Station: station, ToStation: true, Distance: distance}
	toStop := &BikeTransfer{Stop: stop, Station: station, Distance: distance, Opposite: toStation}
	toStation.Opposite = toStop
	return toStation, toStop
}

type StationDistance struct {
	Station  *BikeStation
	Distance int
}

// BikeModel is the station network: the stations, riding distances between
// them and, once linked to a transit model, walks between stations and stops.
type BikeModel struct {
	stations  []*BikeStation
	byID      map[string]*BikeStation
	distances []map[int]int
	sorted    [][]StationDistance
	transfers [][]*BikeTransfer
	index     rtree.RTreeG[*BikeStation]
}

// NewBikeModel indexes stations. Station indices are reassigned.
func NewBikeModel(stations []*BikeStation) *BikeModel {
	m := &BikeModel{
		stations:  stations,
		byID:      make(map[string]*BikeStation, len(stations)),
		distances: make([]map[int]int, len(stations)),
		sorted:    make([][]StationDistance, len(stations)),
		transfers: make([][]*BikeTransfer, len(stations)),
	}
	for i, s := range stations {
		s.Index = i
		m.byID[s.ID] = s
		m.distances[i] = make(map[int]int)
		pt := [2]float64{s.Coords.Lon, s.Coords.Lat}
		m.index.Insert(pt, pt, s)
	}
	return m
}

func (m *BikeModel) Stations() []*BikeStation {
	return m.stations
}

func (m *BikeModel) Station(id string) (*BikeStation, bool) {
	s, ok := m.byID[id]
	return s, ok
}

func (m *BikeModel) Len() int {
	return len(m.stations)
}

// SetDistance records the riding distance between a and b in both directions.
// A negative distance removes the pair.
func (m *BikeModel) SetDistance(a, b *BikeStation, distance int) {
	if a == b {
		return
	}
	if distance < 0 {
		delete(m.distances[a.Index], b.Index)
		delete(m.distances[b.Index], a.Index)
	} else {
		m.distances[a.Index][b.Index] = distance
		m.distances[b.Index][a.Index] = distance
	}
	m.sorted[a.Index] = nil
	m.sorted[b.Index] = nil
}

// DistanceBetween returns the riding distance, or -1 when the pair is not
// connected.
func (m *BikeModel) DistanceBetween(a, b *BikeStation) int {
	if d, ok := m.distances[a.Index][b.Index]; ok {
		return d
	}
	return -1
}

// DistancesFrom lists the stations reachable from s ordered by station index.
// Call Freeze before sharing the model between goroutines.
func (m *BikeModel) DistancesFrom(s *BikeStation) []StationDistance {
	if m.sorted[s.Index] == nil {
		m.sorted[s.Index] = m.buildSorted(s.Index)
	}
	return m.sorted[s.Index]
}

func (m *BikeModel) buildSorted(i int) []StationDistance {
	out := make([]StationDistance, 0, len(m.distances[i]))
	for j, d := range m.distances[i] {
		out = append(out, StationDistance{Station: m.stations[j], Distance: d})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Station.Index < out[b].Station.Index })
	return out
}

// Freeze precomputes the lookup tables so that concurrent reads do not write.
func (m *BikeModel) Freeze() {
	for i := range m.stations {
		if m.sorted[i] == nil {
			m.sorted[i] = m.buildSorted(i)
		}
	}
}

// TransfersFrom lists the walks from station s to nearby stops.
func (m *BikeModel) TransfersFrom(s *BikeStation) []*BikeTransfer {
	return m.transfers[s.Index]
}

// NearStations returns the stations within radius meters of c.
func (m *BikeModel) NearStations(c Coordinates, radius float64) []*BikeStation {
	var out []*BikeStation
	m.searchRadius(c, radius, func(s *BikeStation, _ float64) {
		out = append(out, s)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (m *BikeModel) NearStationsWithDistances(c Coordinates, radius float64) []StationDistance {
	var out []StationDistance
	m.searchRadius(c, radius, func(s *BikeStation, d float64) {
		out = append(out, StationDistance{Station: s, Distance: int(d)})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Station.Index < out[j].Station.Index })
	return out
}

func (m *BikeModel) NearStationExists(c Coordinates, radius float64) bool {
	found := false
	m.searchRadius(c, radius, func(*BikeStation, float64) { found = true })
	return found
}

func (m *BikeModel) searchRadius(c Coordinates, radius float64, fn func(*BikeStation, float64)) {
	box := utils.BoxAround(c.Lat, c.Lon, radius)
	m.index.Search(box.Min, box.Max,
		func(_, _ [2]float64, s *BikeStation) bool {
			if d := c.DistanceTo(s.Coords); d <= radius {
				fn(s, d)
			}
			return true
		})
}

// LinkStops returns a copy of the bike model whose stations are connected by
// walks to the stops of tm within maxDistance meters. tm's stops are modified,
// so this must run before tm is published.
func (m *BikeModel) LinkStops(tm *Model, maxDistance float64) *BikeModel {
	linked := &BikeModel{
		stations:  m.stations,
		byID:      m.byID,
		distances: m.distances,
		sorted:    m.sorted,
		transfers: make([][]*BikeTransfer, len(m.stations)),
		index:     m.index,
	}
	for _, station := range m.stations {
		for _, sd := range tm.StopsWithDistances(station.Coords, maxDistance) {
			toStation, toStop := NewBikeTransferPair(sd.Stop, station, sd.Distance)
			sd.Stop.BikeTransfers = append(sd.Stop.BikeTransfers, toStation)
			linked.transfers[station.Index] = append(linked.transfers[station.Index], toStop)
		}
	}
	return linked
}
