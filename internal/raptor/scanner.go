package raptor

import (
	"context"
	"sort"

	"raptor.transitrouter.org/internal/transit"
)

// pointSet is a set of dense indices that iterates in insertion order.
type pointSet struct {
	in   []bool
	list []int
}

func newPointSet(n int) *pointSet {
	return &pointSet{in: make([]bool, n)}
}

func (p *pointSet) add(i int) {
	if !p.in[i] {
		p.in[i] = true
		p.list = append(p.list, i)
	}
}

func (p *pointSet) has(i int) bool {
	return p.in[i]
}

func (p *pointSet) items() []int {
	return p.list
}

func (p *pointSet) clear() {
	for _, i := range p.list {
		p.in[i] = false
	}
	p.list = p.list[:0]
}

// boarding is the trip a route is first caught on in the current round.
type boarding struct {
	route *transit.Route
	stop  *transit.Stop
	index int
	trip  *transit.Trip
	date  transit.Date
}

// tripDelays caches the real-time delays of the trip being traversed.
type tripDelays struct {
	delays transit.TripStopDelays
	ok     bool
}

// at returns the delays at stop index i. Past the end of the known data the
// delay of the last known stop carries on.
func (d tripDelays) at(i int) (arrival, departure int64) {
	if !d.ok {
		return 0, 0
	}
	if a, dep, found := d.delays.TryGet(i); found {
		return int64(a), int64(dep)
	}
	if i >= d.delays.Len() {
		a, dep := d.delays.Last()
		return int64(a), int64(dep)
	}
	return 0, 0
}

// scan drives one session through its rounds.
type scan struct {
	*session
	round          int
	markedStops    *pointSet
	markedStations *pointSet
	forbidden      func(int) bool
}

func newScan(s *session) *scan {
	sc := &scan{
		session:        s,
		markedStops:    newPointSet(s.nStops),
		markedStations: newPointSet(s.nStations),
	}
	if s.endCustom != nil {
		// Walks may not lead straight into the destination area.
		sc.forbidden = func(point int) bool { return s.isEnd[point] }
	}
	return sc
}

func (sc *scan) run(ctx context.Context) error {
	sc.initiate()
	for sc.round < Rounds {
		if err := ctx.Err(); err != nil {
			return err
		}
		sc.round++
		sc.traverseRoutes(sc.accumulateRoutes())
		if sc.settings.UseSharedBikes {
			sc.traverseBikeRoutes()
		}
		sc.improveByTransfers(false, sc.forbidden)
	}
	return nil
}

func (sc *scan) initiate() {
	if sc.beginCustom != nil {
		for _, p := range sc.InitiateCustom() {
			sc.mark(p)
		}
		return
	}
	sc.InitiateStops()
	for _, st := range sc.beginStops {
		sc.markedStops.add(st.Index)
	}
	if sc.settings.UseSharedBikes {
		for _, b := range sc.beginStations {
			sc.markedStations.add(b.Index)
		}
	}
	sc.improveByTransfers(true, nil)
}

func (sc *scan) mark(point int) {
	if sc.isStop(point) {
		sc.markedStops.add(point)
		return
	}
	sc.markedStations.add(point - sc.nStops)
}

// boardingTime is the time a trip can be caught at point given how it was
// reached in round. Arriving by trip needs the stationary buffer.
func (sc *scan) boardingTime(point, round int) int64 {
	t := sc.store.BestInRound(point, round)
	if t != sc.cmp.WorstTime() && sc.reachedByTrip(point, round) {
		t += sc.cmp.Sign() * int64(sc.settings.StationaryTransferSeconds())
	}
	return t
}

// accumulateRoutes picks, for every route serving a marked stop, the stop
// reached first in search direction and the first trip catchable there.
func (sc *scan) accumulateRoutes() []boarding {
	stops := sc.transit.Stops()
	byRoute := make(map[*transit.Route]int)
	var out []boarding

	for _, si := range sc.markedStops.items() {
		stop := stops[si]
		for _, route := range stop.Routes {
			index, ok := route.FirstStopIndex(stop)
			if !sc.cmp.Forward {
				index, ok = route.LastStopIndex(stop)
			}
			if !ok {
				continue
			}
			k, seen := byRoute[route]
			if seen && !sc.cmp.Precedes(index, out[k].index) {
				continue
			}
			reach := sc.boardingTime(si, sc.round-1)
			if reach == sc.cmp.WorstTime() {
				continue
			}
			trip, date, found := route.FirstTransferableTrip(sc.cmp.Forward, index, reach, sc.delays)
			if !found {
				continue
			}
			b := boarding{route: route, stop: stop, index: index, trip: trip, date: date}
			if seen {
				out[k] = b
			} else {
				byRoute[route] = len(out)
				out = append(out, b)
			}
		}
	}
	sc.markedStops.clear()
	return out
}

func (sc *scan) delaysFor(trip *transit.Trip, date transit.Date) tripDelays {
	if sc.delays == nil {
		return tripDelays{}
	}
	d, ok := sc.delays.TripStopDelays(date, trip.ID)
	return tripDelays{delays: d, ok: ok}
}

func (sc *scan) traverseRoutes(boardings []boarding) {
	for _, b := range boardings {
		sc.traverseRoute(b)
	}
}

// traverseRoute rides the route from the boarding stop in search direction,
// improving every stop on the way and switching to a better trip wherever
// the previous round allows catching one.
func (sc *scan) traverseRoute(b boarding) {
	route := b.route
	loc := route.Location()
	trip, date := b.trip, b.date
	from, fromIndex := b.stop, b.index
	delays := sc.delaysFor(trip, date)
	step := sc.cmp.Step()

	for i := b.index; i >= 0 && i < len(route.Stops); i += step {
		stop := route.Stops[i]
		arrDelay, depDelay := delays.at(i)
		arrival := date.Unix(trip.StopTimes[i].Arrival, loc) + arrDelay
		departure := date.Unix(trip.StopTimes[i].Departure, loc) + depDelay
		reach, leave := arrival, departure
		if !sc.cmp.Forward {
			reach, leave = departure, arrival
		}

		if i != fromIndex && sc.TryImproveByTrip(stop, i, reach, trip, date, from, fromIndex, sc.round) {
			sc.markedStops.add(stop.Index)
		}

		if !sc.cmp.Improves(sc.store.BestInRound(stop.Index, sc.round-1), leave) {
			continue
		}
		buffered := sc.boardingTime(stop.Index, sc.round-1)
		if !sc.cmp.Improves(buffered, leave) {
			continue
		}
		next, nextDate, ok := route.FirstTransferableTrip(sc.cmp.Forward, i, buffered, sc.delays)
		if !ok {
			continue
		}
		if next != trip || nextDate != date ||
			sc.cmp.Improves(sc.store.BestReachTime(stop.Index), sc.store.BestReachTime(from.Index)) {
			trip, date = next, nextDate
			from, fromIndex = stop, i
			delays = sc.delaysFor(trip, date)
		}
	}
}

// traverseBikeRoutes rides from every marked station to every station in
// range. Stations reached by bike become the new marked stations.
func (sc *scan) traverseBikeRoutes() {
	stations := sc.bikes.Stations()
	next := newPointSet(sc.nStations)

	for _, bi := range sc.markedStations.items() {
		station := stations[bi]
		point := sc.stationPoint(station)
		if sc.cmp.Forward && station.BikeCount() == 0 {
			continue
		}
		if sc.reachedByBikeTrip(point, sc.round-1) {
			continue
		}
		base := sc.store.BestInRound(point, sc.round-1)
		if base == sc.cmp.WorstTime() {
			continue
		}
		for _, sd := range sc.bikes.DistancesFrom(station) {
			if sd.Distance < 0 {
				continue
			}
			if sc.settings.BikeMax15Minutes && sc.settings.BilledBikeTripTime(sd.Distance) > maxBilledBikeSeconds {
				continue
			}
			if !sc.cmp.Forward && sd.Station.BikeCount() == 0 {
				continue
			}
			reach := base + sc.cmp.Sign()*int64(sc.settings.AdjustedBikeTripTime(sd.Distance))
			if sc.TryImproveByBikeTrip(station, sd.Station, reach, sc.round) {
				next.add(sd.Station.Index)
			}
		}
	}
	sc.markedStations = next
}

// improveByTransfers relaxes walks from the marked stops and stations in a
// single pass ordered by their time in this round, so a point is improved by
// walks from earlier points before its own walks leave. Points improved here
// are marked for the next round but are not walked on from again.
func (sc *scan) improveByTransfers(onlyFromStops bool, forbidden func(int) bool) {
	stops := sc.transit.Stops()
	stations := sc.bikes.Stations()
	useBikes := sc.settings.UseSharedBikes

	sources := append([]int(nil), sc.markedStops.items()...)
	if useBikes && !onlyFromStops {
		for _, bi := range sc.markedStations.items() {
			sources = append(sources, sc.stationPoint(stations[bi]))
		}
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return sc.cmp.Improves(sc.store.BestInRound(sources[i], sc.round), sc.store.BestInRound(sources[j], sc.round))
	})

	sc.walkedFrom.clear()
	var newStops, newStations []int
	for _, p := range sources {
		sc.walkedFrom.add(p)
		if !sc.isStop(p) {
			for _, bt := range sc.bikes.TransfersFrom(stations[p-sc.nStops]) {
				walk := bt
				if !sc.cmp.Forward {
					walk = bt.Opposite
				}
				if sc.TryImproveByBikeTransfer(walk, sc.round, forbidden) {
					newStops = append(newStops, bt.Stop.Index)
				}
			}
			continue
		}

		stop := stops[p]
		for _, t := range stop.Transfers {
			walk := t
			if !sc.cmp.Forward {
				walk = t.Opposite
			}
			if sc.TryImproveByTransfer(walk, sc.round, forbidden) {
				newStops = append(newStops, t.To.Index)
			}
		}
		if !useBikes {
			continue
		}
		for _, bt := range stop.BikeTransfers {
			walk := bt
			if !sc.cmp.Forward {
				walk = bt.Opposite
			}
			if sc.TryImproveByBikeTransfer(walk, sc.round, forbidden) {
				newStations = append(newStations, bt.Station.Index)
			}
		}
	}
	sc.walkedFrom.clear()

	for _, si := range newStops {
		sc.markedStops.add(si)
	}
	for _, bi := range newStations {
		sc.markedStations.add(bi)
	}
}
