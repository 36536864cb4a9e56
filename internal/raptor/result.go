package raptor

import (
	"fmt"
	"time"

	"github.com/twpayne/go-polyline"
	"raptor.transitrouter.org/internal/transit"
)

type SegmentType int

const (
	SegmentTransfer SegmentType = 0
	SegmentTrip     SegmentType = 1
	SegmentBike     SegmentType = 2
)

func (t SegmentType) String() string {
	switch t {
	case SegmentTransfer:
		return "transfer"
	case SegmentTrip:
		return "trip"
	case SegmentBike:
		return "bike"
	default:
		return fmt.Sprintf("SegmentType(%d)", int(t))
	}
}

type StopInfo struct {
	Name string  `json:"name"`
	ID   string  `json:"id"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func newStopInfo(p transit.RoutePoint) StopInfo {
	c := p.Location()
	return StopInfo{Name: p.DisplayName(), ID: p.Identifier(), Lat: c.Lat, Lon: c.Lon}
}

// StopPass is one scheduled call of a trip.
type StopPass struct {
	Name          string    `json:"name"`
	ID            string    `json:"id"`
	ArrivalTime   time.Time `json:"arrivalTime"`
	DepartureTime time.Time `json:"departureTime"`
}

// UsedTrip is a ride on one trip, with every stop of the trip listed and the
// boarding and alighting stops given by index. Delays are in seconds.
type UsedTrip struct {
	StopPasses       []StopPass          `json:"stopPasses"`
	GetOnStopIndex   int                 `json:"getOnStopIndex"`
	GetOffStopIndex  int                 `json:"getOffStopIndex"`
	RouteName        string              `json:"routeName"`
	Color            string              `json:"color"`
	VehicleType      transit.VehicleType `json:"vehicleType"`
	TripID           string              `json:"tripId"`
	TripDate         string              `json:"tripDate"`
	HasDelayInfo     bool                `json:"hasDelayInfo"`
	DelayWhenBoarded int                 `json:"delayWhenBoarded"`
	CurrentDelay     int                 `json:"currentDelay"`
}

func newUsedTrip(trip *transit.Trip, date transit.Date, on, off int) UsedTrip {
	route := trip.Route
	loc := route.Location()
	passes := make([]StopPass, len(route.Stops))
	for i, st := range route.Stops {
		passes[i] = StopPass{
			Name:          st.Name,
			ID:            st.ID,
			ArrivalTime:   date.At(trip.StopTimes[i].Arrival, loc),
			DepartureTime: date.At(trip.StopTimes[i].Departure, loc),
		}
	}
	return UsedTrip{
		StopPasses:      passes,
		GetOnStopIndex:  on,
		GetOffStopIndex: off,
		RouteName:       route.Name(),
		Color:           route.Color,
		VehicleType:     route.Type,
		TripID:          trip.ID,
		TripDate:        date.String(),
	}
}

type UsedTransfer struct {
	SrcStopInfo  StopInfo `json:"srcStopInfo"`
	DestStopInfo StopInfo `json:"destStopInfo"`
	Time         int      `json:"time"`
	Distance     int      `json:"distance"`
}

// UsedBikeTrip is a shared-bike ride. Time is the riding time alone,
// TotalTime adds the buffer and unlocking and locking.
type UsedBikeTrip struct {
	SrcStationInfo  StopInfo `json:"srcStationInfo"`
	DestStationInfo StopInfo `json:"destStationInfo"`
	Distance        int      `json:"distance"`
	Time            int      `json:"time"`
	TotalTime       int      `json:"totalTime"`
}

// TripAlternatives lists trips interchangeable with a used trip. CurrIndex
// points at the one the result uses.
type TripAlternatives struct {
	Count        int        `json:"count"`
	CurrIndex    int        `json:"currIndex"`
	Alternatives []UsedTrip `json:"alternatives"`
}

type SearchResult struct {
	UsedTrips              []UsedTrip         `json:"usedTrips"`
	UsedTransfers          []UsedTransfer     `json:"usedTransfers"`
	UsedBikeTrips          []UsedBikeTrip     `json:"usedBikeTrips"`
	UsedSegmentTypes       []SegmentType      `json:"usedSegmentTypes"`
	UsedTripAlternatives   []TripAlternatives `json:"usedTripAlternatives"`
	SecondsBeforeFirstTrip int                `json:"secondsBeforeFirstTrip"`
	SecondsAfterLastTrip   int                `json:"secondsAfterLastTrip"`
	DepartureDateTime      time.Time          `json:"departureDateTime"`
	ArrivalDateTime        time.Time          `json:"arrivalDateTime"`
	TripCount              int                `json:"tripCount"`
	TransferCount          int                `json:"transferCount"`
	BikeTripCount          int                `json:"bikeTripCount"`
	Shape                  string             `json:"shape"`
}

// segment is one leg collected while walking the routing state back from
// the search end.
type segment struct {
	kind     SegmentType
	trip     *UsedTrip
	transfer *UsedTransfer
	bike     *UsedBikeTrip

	// actual boarding and alighting instants of a trip
	board, alight int64
	// coordinates passed, in real-world order
	path []transit.Coordinates
}

func (s *segment) seconds() int {
	switch s.kind {
	case SegmentTransfer:
		return s.transfer.Time
	case SegmentBike:
		return s.bike.TotalTime
	default:
		return 0
	}
}

// newSearchResult assembles segments given in real-world order. begin is
// the requested instant, used when no trip is involved.
func newSearchResult(segs []segment, forward bool, begin int64, loc *time.Location) *SearchResult {
	r := &SearchResult{
		UsedTrips:            []UsedTrip{},
		UsedTransfers:        []UsedTransfer{},
		UsedBikeTrips:        []UsedBikeTrip{},
		UsedSegmentTypes:     make([]SegmentType, 0, len(segs)),
		UsedTripAlternatives: []TripAlternatives{},
	}
	firstTrip, lastTrip := -1, -1
	for i := range segs {
		seg := &segs[i]
		r.UsedSegmentTypes = append(r.UsedSegmentTypes, seg.kind)
		switch seg.kind {
		case SegmentTransfer:
			r.UsedTransfers = append(r.UsedTransfers, *seg.transfer)
			r.TransferCount++
		case SegmentTrip:
			r.UsedTrips = append(r.UsedTrips, *seg.trip)
			r.TripCount++
			if firstTrip < 0 {
				firstTrip = i
			}
			lastTrip = i
		case SegmentBike:
			r.UsedBikeTrips = append(r.UsedBikeTrips, *seg.bike)
			r.BikeTripCount++
		default:
			panic(fmt.Sprintf("unsupported segment type %d", seg.kind))
		}
	}

	if firstTrip < 0 {
		total := 0
		for i := range segs {
			total += segs[i].seconds()
		}
		r.SecondsBeforeFirstTrip = total
		dep, arr := begin, begin+int64(total)
		if !forward {
			dep, arr = begin-int64(total), begin
		}
		r.DepartureDateTime = time.Unix(dep, 0).In(loc)
		r.ArrivalDateTime = time.Unix(arr, 0).In(loc)
	} else {
		for i := 0; i < firstTrip; i++ {
			r.SecondsBeforeFirstTrip += segs[i].seconds()
		}
		for i := lastTrip + 1; i < len(segs); i++ {
			r.SecondsAfterLastTrip += segs[i].seconds()
		}
		r.DepartureDateTime = time.Unix(segs[firstTrip].board-int64(r.SecondsBeforeFirstTrip), 0).In(loc)
		r.ArrivalDateTime = time.Unix(segs[lastTrip].alight+int64(r.SecondsAfterLastTrip), 0).In(loc)
	}

	r.Shape = encodeShape(segs)
	r.initializeAlternatives()
	return r
}

// initializeAlternatives offers every used trip as its only alternative.
func (r *SearchResult) initializeAlternatives() {
	r.UsedTripAlternatives = make([]TripAlternatives, len(r.UsedTrips))
	for i, t := range r.UsedTrips {
		r.UsedTripAlternatives[i] = TripAlternatives{Count: 1, CurrIndex: 0, Alternatives: []UsedTrip{t}}
	}
}

// encodeShape draws the result as a Google encoded polyline through every
// point passed.
func encodeShape(segs []segment) string {
	var coords [][]float64
	for i := range segs {
		for _, c := range segs[i].path {
			if n := len(coords); n > 0 && coords[n-1][0] == c.Lat && coords[n-1][1] == c.Lon {
				continue
			}
			coords = append(coords, []float64{c.Lat, c.Lon})
		}
	}
	if len(coords) == 0 {
		return ""
	}
	return string(polyline.EncodeCoords(coords))
}
