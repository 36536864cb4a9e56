package raptor

import (
	"fmt"
	"time"

	"raptor.transitrouter.org/internal/transit"
)

// session is the routing state of one query. Stops, bike stations and the
// two custom points share one dense index space:
//
//	stops          0 .. nStops-1
//	bike stations  nStops .. nStops+nStations-1
//	custom begin   nStops+nStations
//	custom end     nStops+nStations+1
type session struct {
	cmp      Comparator
	settings Settings
	transit  *transit.Model
	bikes    *transit.BikeModel
	delays   transit.DelayLookup
	now      time.Time

	begin   int64
	limit   int64
	bestEnd int64

	store     *Store
	nStops    int
	nStations int

	beginStops    []*transit.Stop
	endStops      []*transit.Stop
	beginStations []*transit.BikeStation
	endStations   []*transit.BikeStation
	isEnd         []bool

	// walkedFrom holds the points whose walks were relaxed in the current
	// transfer phase. Their round entries must stay as they are.
	walkedFrom *pointSet

	beginCustom *CustomRoutePoint
	endCustom   *CustomRoutePoint
}

func newSession(tm *transit.Model, bm *transit.BikeModel, delays transit.DelayLookup, now time.Time, settings Settings, forward bool, begin int64) *session {
	cmp := Comparator{Forward: forward}
	nStops, nStations := len(tm.Stops()), bm.Len()
	points := nStops + nStations + 2
	return &session{
		cmp:        cmp,
		settings:   settings,
		transit:    tm,
		bikes:      bm,
		delays:     delays,
		now:        now,
		begin:      begin,
		limit:      begin + cmp.Sign()*MaxTripLengthDays*secondsPerDay,
		bestEnd:    cmp.WorstTime(),
		store:      NewStore(points, cmp.WorstTime()),
		nStops:     nStops,
		nStations:  nStations,
		isEnd:      make([]bool, points),
		walkedFrom: newPointSet(points),
	}
}

func (s *session) setEnd(stops []*transit.Stop, stations []*transit.BikeStation) {
	s.endStops, s.endStations = stops, stations
	for _, st := range stops {
		s.isEnd[st.Index] = true
	}
	for _, b := range stations {
		s.isEnd[s.stationPoint(b)] = true
	}
}

func (s *session) stationPoint(b *transit.BikeStation) int {
	return s.nStops + b.Index
}

func (s *session) customBeginPoint() int {
	return s.nStops + s.nStations
}

func (s *session) customEndPoint() int {
	return s.nStops + s.nStations + 1
}

// pointOf maps a route point to its index.
func (s *session) pointOf(rp transit.RoutePoint) int {
	switch p := rp.(type) {
	case *transit.Stop:
		return p.Index
	case *transit.BikeStation:
		return s.stationPoint(p)
	case *CustomRoutePoint:
		if p == s.beginCustom {
			return s.customBeginPoint()
		}
		return s.customEndPoint()
	default:
		panic(fmt.Sprintf("unsupported route point %T", rp))
	}
}

// routePoint maps an index back to its route point.
func (s *session) routePoint(point int) transit.RoutePoint {
	switch {
	case point < s.nStops:
		return s.transit.Stops()[point]
	case point < s.nStops+s.nStations:
		return s.bikes.Stations()[point-s.nStops]
	case point == s.customBeginPoint():
		return s.beginCustom
	default:
		return s.endCustom
	}
}

func (s *session) isStop(point int) bool {
	return point < s.nStops
}

// improves is the single acceptance test shared by every tryImprove
// operation.
func (s *session) improves(point int, t int64) bool {
	return s.cmp.Improves(t, s.store.BestReachTime(point)) &&
		s.cmp.Improves(t, s.bestEnd) &&
		s.cmp.ImprovesOrEquals(t, s.limit)
}

// setBest records t as the best time of point and moves the best search
// end time when point ends the search.
func (s *session) setBest(point int, t int64) {
	s.store.SetBestReachTime(point, t)
	if !s.isEnd[point] {
		return
	}
	if end, ok := s.endTime(point, t); ok && s.cmp.Improves(end, s.bestEnd) {
		s.bestEnd = end
	}
}

// endTime is the search end time when point is reached at t. A custom end
// adds the walk from point to it.
func (s *session) endTime(point int, t int64) (int64, bool) {
	if s.endCustom == nil {
		return t, true
	}
	ct, ok := s.endCustom.TransferWith(point)
	if !ok {
		return 0, false
	}
	return t + s.cmp.Sign()*int64(s.settings.AdjustedWalkingTime(ct.Distance)), true
}

func (s *session) reachedByTransfer(point, round int) bool {
	e, ok := s.store.Entry(point, round)
	return ok && e.IsTransfer()
}

func (s *session) reachedByTrip(point, round int) bool {
	e, ok := s.store.Entry(point, round)
	return ok && e.Kind == EntryTrip
}

func (s *session) reachedByBikeTrip(point, round int) bool {
	e, ok := s.store.Entry(point, round)
	return ok && e.Kind == EntryBikeTrip
}

// TryImproveByTrip records that stop, at route index, is reached at reach by
// trip coming from other.
func (s *session) TryImproveByTrip(stop *transit.Stop, index int, reach int64, trip *transit.Trip, date transit.Date, other *transit.Stop, otherIndex, round int) bool {
	if !s.improves(stop.Index, reach) {
		return false
	}
	s.store.SetEntry(stop.Index, round, Entry{
		Kind:       EntryTrip,
		Time:       reach,
		Trip:       trip,
		Date:       date,
		Other:      other,
		OtherIndex: otherIndex,
		Index:      index,
	})
	s.setBest(stop.Index, reach)
	return true
}

// TryImproveByBikeTrip records that to is reached at reach by riding from
// from. Both stations are in search order.
func (s *session) TryImproveByBikeTrip(from, to *transit.BikeStation, reach int64, round int) bool {
	point := s.stationPoint(to)
	if !s.improves(point, reach) {
		return false
	}
	s.store.SetEntry(point, round, Entry{Kind: EntryBikeTrip, Time: reach, From: from, To: to})
	s.setBest(point, reach)
	return true
}

// transferCost is the duration of a walk of distance meters. Walks into a
// bike station only cost the walking time.
func (s *session) transferCost(distance int, toStation bool) int {
	if distance == 0 {
		return s.settings.StationaryTransferSeconds()
	}
	if toStation {
		return s.settings.AdjustedWalkingTime(distance)
	}
	return s.settings.TransferTime(distance)
}

// transferUsable applies the rules every walk between two route points must
// pass before its reach time is even computed.
func (s *session) transferUsable(from, to int, distance int, sameName bool, round int, forbidden func(int) bool) bool {
	if distance > s.settings.MaxTransferDistance() && !sameName {
		return false
	}
	if forbidden != nil && forbidden(to) {
		return false
	}
	return !s.reachedByTransfer(from, round)
}

func (s *session) tryImproveByWalk(from, to, distance int, round int, e Entry) bool {
	// Walks that already left to in this round rely on its entry.
	if s.walkedFrom.has(to) {
		return false
	}
	base := s.store.BestInRound(from, round)
	if base == s.cmp.WorstTime() {
		return false
	}
	reach := base + s.cmp.Sign()*int64(s.transferCost(distance, !s.isStop(to)))
	if !s.improves(to, reach) {
		return false
	}
	e.Time = reach
	s.store.SetEntry(to, round, e)
	s.setBest(to, reach)
	return true
}

// TryImproveByTransfer relaxes a stop to stop transfer given in its
// real-world direction.
func (s *session) TryImproveByTransfer(t *transit.Transfer, round int, forbidden func(int) bool) bool {
	from, to := t.From.Index, t.To.Index
	if !s.cmp.Forward {
		from, to = to, from
	}
	if !s.transferUsable(from, to, t.Distance, t.SameName(), round, forbidden) {
		return false
	}
	return s.tryImproveByWalk(from, to, t.Distance, round, Entry{Kind: EntryTransfer, Transfer: t})
}

// TryImproveByBikeTransfer relaxes a walk between a stop and a bike
// station given in its real-world direction.
func (s *session) TryImproveByBikeTransfer(t *transit.BikeTransfer, round int, forbidden func(int) bool) bool {
	from, to := s.pointOf(t.Source()), s.pointOf(t.Destination())
	if !s.cmp.Forward {
		from, to = to, from
	}
	sameName := t.Stop.Name == t.Station.Name
	if !s.transferUsable(from, to, t.Distance, sameName, round, forbidden) {
		return false
	}
	return s.tryImproveByWalk(from, to, t.Distance, round, Entry{Kind: EntryBikeTransfer, BikeTransfer: t})
}

// InitiateStops seeds round 0 with the begin stops, and the begin stations
// when bikes are allowed.
func (s *session) InitiateStops() {
	for _, st := range s.beginStops {
		s.store.SetEntry(st.Index, 0, Entry{Kind: EntryStart, Time: s.begin})
		s.setBest(st.Index, s.begin)
	}
	if !s.settings.UseSharedBikes {
		return
	}
	for _, b := range s.beginStations {
		p := s.stationPoint(b)
		s.store.SetEntry(p, 0, Entry{Kind: EntryStart, Time: s.begin})
		s.setBest(p, s.begin)
	}
}

// InitiateCustom seeds round 0 with every point within walking distance of
// the custom begin point and returns the seeded points.
func (s *session) InitiateCustom() []int {
	var seeded []int
	for _, ct := range s.beginCustom.Transfers() {
		if ct.Distance > s.settings.MaxTransferDistance() {
			continue
		}
		if !s.isStop(ct.point) && !s.settings.UseSharedBikes {
			continue
		}
		t := s.begin + s.cmp.Sign()*int64(s.settings.AdjustedWalkingTime(ct.Distance))
		s.store.SetEntry(ct.point, 0, Entry{Kind: EntryCustomTransfer, Time: t, Custom: ct})
		s.setBest(ct.point, t)
		seeded = append(seeded, ct.point)
	}
	return seeded
}
