package transit

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrDuplicateStop = errors.New("duplicate stop")
	ErrUnknownStop   = errors.New("unknown stop")
)

// RouteSpec describes a route to add to a Builder.
type RouteSpec struct {
	ID        string
	GTFSID    string
	ShortName string
	LongName  string
	Color     string
	Type      VehicleType
	StopIDs   []string
}

// Builder assembles a Model. It is not safe for concurrent use and must not be
// used after Build.
type Builder struct {
	loc       *time.Location
	stops     []*Stop
	byID      map[string]*Stop
	routes    []*Route
	trips     map[string]*Trip
	transfers map[[2]int]bool
}

func NewBuilder(loc *time.Location) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{
		loc:       loc,
		byID:      make(map[string]*Stop),
		trips:     make(map[string]*Trip),
		transfers: make(map[[2]int]bool),
	}
}

func (b *Builder) AddStop(id, name string, c Coordinates) (*Stop, error) {
	if _, exists := b.byID[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateStop, id)
	}
	if !c.Valid() {
		return nil, fmt.Errorf("stop %s: invalid coordinates %s", id, c)
	}
	s := &Stop{Index: len(b.stops), ID: id, Name: name, Coords: c}
	b.stops = append(b.stops, s)
	b.byID[id] = s
	return s, nil
}

func (b *Builder) Stop(id string) (*Stop, bool) {
	s, ok := b.byID[id]
	return s, ok
}

func (b *Builder) AddRoute(spec RouteSpec) (*Route, error) {
	if len(spec.StopIDs) < 2 {
		return nil, fmt.Errorf("route %s: needs at least two stops", spec.ID)
	}
	r := &Route{
		ID:        spec.ID,
		GTFSID:    spec.GTFSID,
		ShortName: spec.ShortName,
		LongName:  spec.LongName,
		Color:     spec.Color,
		Type:      spec.Type,
		Stops:     make([]*Stop, 0, len(spec.StopIDs)),
	}
	if r.GTFSID == "" {
		r.GTFSID = spec.ID
	}
	for _, id := range spec.StopIDs {
		s, ok := b.byID[id]
		if !ok {
			return nil, fmt.Errorf("route %s: %w: %s", spec.ID, ErrUnknownStop, id)
		}
		r.Stops = append(r.Stops, s)
	}
	b.routes = append(b.routes, r)
	return r, nil
}

// AddTrip adds a trip running on service day d. Times must match the route's
// stops. A time earlier than its predecessor is taken to be past midnight and
// shifted by a day.
func (b *Builder) AddTrip(r *Route, d Date, id, headsign string, times []StopTime) (*Trip, error) {
	if len(times) != len(r.Stops) {
		return nil, fmt.Errorf("trip %s: %d stop times for %d stops", id, len(times), len(r.Stops))
	}
	normalized := make([]StopTime, len(times))
	var shift, prev int32
	for i, st := range times {
		arr, dep := st.Arrival+shift, st.Departure+shift
		if i > 0 && arr < prev {
			shift += secondsPerDay
			arr += secondsPerDay
			dep += secondsPerDay
		}
		if dep < arr {
			dep += secondsPerDay
		}
		normalized[i] = StopTime{Arrival: arr, Departure: dep}
		prev = dep
	}
	t := &Trip{ID: id, Headsign: headsign, Route: r, StopTimes: normalized}
	r.addTrip(d, t)
	if _, exists := b.trips[id]; !exists {
		b.trips[id] = t
	}
	return t, nil
}

// AddService schedules an existing trip on another service day.
func (b *Builder) AddService(t *Trip, d Date) {
	t.Route.addTrip(d, t)
}

// AddTransfer adds a walking transfer and its opposite. Adding the same pair
// twice, in either direction, is a no-op.
func (b *Builder) AddTransfer(fromID, toID string, distance int) error {
	from, ok := b.byID[fromID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStop, fromID)
	}
	to, ok := b.byID[toID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStop, toID)
	}
	b.addTransfer(from, to, distance)
	return nil
}

func (b *Builder) addTransfer(from, to *Stop, distance int) {
	if from == to || distance < 0 {
		return
	}
	key := [2]int{from.Index, to.Index}
	if key[0] > key[1] {
		key[0], key[1] = key[1], key[0]
	}
	if b.transfers[key] {
		return
	}
	b.transfers[key] = true
	there, back := NewTransferPair(from, to, distance)
	from.Transfers = append(from.Transfers, there)
	to.Transfers = append(to.Transfers, back)
}

// GenerateTransfers links stops sharing a name and stops closer than
// maxDistance meters.
func (b *Builder) GenerateTransfers(maxDistance float64) {
	byName := make(map[string][]*Stop)
	for _, s := range b.stops {
		byName[s.Name] = append(byName[s.Name], s)
	}
	for _, group := range byName {
		for i := range group {
			for j := i + 1; j < len(group); j++ {
				b.addTransfer(group[i], group[j], int(group[i].Coords.DistanceTo(group[j].Coords)))
			}
		}
	}

	if maxDistance <= 0 {
		return
	}
	tmp := &Model{}
	for _, s := range b.stops {
		pt := [2]float64{s.Coords.Lon, s.Coords.Lat}
		tmp.index.Insert(pt, pt, s)
	}
	for _, s := range b.stops {
		for _, near := range tmp.StopsWithDistances(s.Coords, maxDistance) {
			b.addTransfer(s, near.Stop, near.Distance)
		}
	}
}

// Build finalizes the model. Routes without trips are dropped.
func (b *Builder) Build() (*Model, error) {
	if len(b.stops) == 0 {
		return nil, errors.New("model has no stops")
	}
	m := &Model{
		loc:    b.loc,
		stops:  b.stops,
		byID:   b.byID,
		byName: make(map[string][]*Stop),
		trips:  b.trips,
	}
	for _, s := range b.stops {
		if len(m.byName[s.Name]) == 0 {
			m.names = append(m.names, s.Name)
		}
		m.byName[s.Name] = append(m.byName[s.Name], s)
		pt := [2]float64{s.Coords.Lon, s.Coords.Lat}
		m.index.Insert(pt, pt, s)
	}
	sort.Strings(m.names)

	for _, r := range b.routes {
		if len(r.trips) == 0 {
			continue
		}
		r.finalize(b.loc)
		m.routes = append(m.routes, r)
		seen := make(map[int]bool, len(r.Stops))
		for _, s := range r.Stops {
			if !seen[s.Index] {
				seen[s.Index] = true
				s.Routes = append(s.Routes, r)
			}
		}
	}
	return m, nil
}
