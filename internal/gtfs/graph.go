package gtfs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"raptor.transitrouter.org/internal/transit"
)

// GTFS transfer_type values that describe a usable connection.
const (
	transferTimed        = 1
	transferRequiresTime = 2
)

// BuildStats counts what went into a model and what had to be skipped.
type BuildStats struct {
	Stops        int
	Routes       int
	Trips        int
	SkippedStops int
	SkippedTrips int
}

// ModelLocation picks the timezone of the feed: the override when given,
// otherwise the first agency's, otherwise UTC.
func ModelLocation(static *gtfs.Static, override string) (*time.Location, error) {
	name := override
	if name == "" && len(static.Agencies) > 0 {
		name = static.Agencies[0].Timezone
	}
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// BuildModel turns a parsed static feed into a transit model whose trips run
// on the service days first through last. Trips visiting the same stops in
// the same order on one GTFS route share a transit route.
func BuildModel(static *gtfs.Static, loc *time.Location, first, last transit.Date, maxTransferDistance float64) (*transit.Model, BuildStats, error) {
	var stats BuildStats
	if static == nil {
		return nil, stats, errors.New("no static data")
	}
	b := transit.NewBuilder(loc)

	for _, s := range static.Stops {
		// Stations, entrances and nodes are not boarding points.
		if s.Latitude == nil || s.Longitude == nil || int(s.Type) != 0 {
			stats.SkippedStops++
			continue
		}
		name := s.Name
		if name == "" && s.Parent != nil {
			name = s.Parent.Name
		}
		if _, err := b.AddStop(s.Id, name, transit.Coordinates{Lat: *s.Latitude, Lon: *s.Longitude}); err != nil {
			stats.SkippedStops++
			continue
		}
		stats.Stops++
	}

	days := serviceDays(static.Services, first, last)
	patterns := make(map[string]*transit.Route)
	perRoute := make(map[string]int)

	for i := range static.Trips {
		trip := &static.Trips[i]
		if trip.Route == nil || trip.Service == nil || len(trip.StopTimes) < 2 {
			stats.SkippedTrips++
			continue
		}
		running := days[trip.Service.Id]
		if len(running) == 0 {
			continue
		}

		stopTimes := make([]gtfs.ScheduledStopTime, len(trip.StopTimes))
		copy(stopTimes, trip.StopTimes)
		sort.SliceStable(stopTimes, func(a, c int) bool { return stopTimes[a].StopSequence < stopTimes[c].StopSequence })

		stopIDs := make([]string, 0, len(stopTimes))
		for _, st := range stopTimes {
			if st.Stop == nil {
				break
			}
			if _, ok := b.Stop(st.Stop.Id); !ok {
				break
			}
			stopIDs = append(stopIDs, st.Stop.Id)
		}
		if len(stopIDs) != len(stopTimes) {
			stats.SkippedTrips++
			continue
		}

		key := trip.Route.Id + "|" + strings.Join(stopIDs, "|")
		route, ok := patterns[key]
		if !ok {
			perRoute[trip.Route.Id]++
			var err error
			route, err = b.AddRoute(transit.RouteSpec{
				ID:        fmt.Sprintf("%s-%d", trip.Route.Id, perRoute[trip.Route.Id]),
				GTFSID:    trip.Route.Id,
				ShortName: trip.Route.ShortName,
				LongName:  trip.Route.LongName,
				Color:     trip.Route.Color,
				Type:      transit.VehicleTypeFromGTFS(int(trip.Route.Type)),
				StopIDs:   stopIDs,
			})
			if err != nil {
				return nil, stats, fmt.Errorf("failed to add route %s: %w", trip.Route.Id, err)
			}
			patterns[key] = route
			stats.Routes++
		}

		times := make([]transit.StopTime, len(stopTimes))
		sequences := make([]uint32, len(stopTimes))
		for k, st := range stopTimes {
			times[k] = transit.StopTime{
				Arrival:   int32(st.ArrivalTime / time.Second),
				Departure: int32(st.DepartureTime / time.Second),
			}
			sequences[k] = uint32(st.StopSequence)
		}

		added, err := b.AddTrip(route, running[0], trip.ID, trip.Headsign, times)
		if err != nil {
			return nil, stats, fmt.Errorf("failed to add trip %s: %w", trip.ID, err)
		}
		added.Sequences = sequences
		for _, d := range running[1:] {
			b.AddService(added, d)
		}
		stats.Trips++
	}

	for _, tr := range static.Transfers {
		if tr.From == nil || tr.To == nil || tr.From.Id == tr.To.Id {
			continue
		}
		if kind := int(tr.Type); kind != transferTimed && kind != transferRequiresTime {
			continue
		}
		// Transfers between stations rather than their platforms are not
		// part of the model.
		_ = b.AddTransfer(tr.From.Id, tr.To.Id, 0)
	}
	b.GenerateTransfers(maxTransferDistance)

	model, err := b.Build()
	if err != nil {
		return nil, stats, err
	}
	return model, stats, nil
}

// serviceDays lists, per service ID, the days between first and last on
// which the service runs, ascending.
func serviceDays(services []gtfs.Service, first, last transit.Date) map[string][]transit.Date {
	out := make(map[string][]transit.Date, len(services))
	for i := range services {
		s := &services[i]
		for d := first; d <= last; d = d.AddDays(1) {
			if serviceRunsOn(s, d) {
				out[s.Id] = append(out[s.Id], d)
			}
		}
	}
	return out
}

func serviceRunsOn(s *gtfs.Service, d transit.Date) bool {
	for _, added := range s.AddedDates {
		if dateOf(added) == d {
			return true
		}
	}
	for _, removed := range s.RemovedDates {
		if dateOf(removed) == d {
			return false
		}
	}
	if s.StartDate.IsZero() || d < dateOf(s.StartDate) || d > dateOf(s.EndDate) {
		return false
	}
	year, month, day := d.Civil()
	switch time.Date(year, month, day, 12, 0, 0, 0, time.UTC).Weekday() {
	case time.Monday:
		return s.Monday
	case time.Tuesday:
		return s.Tuesday
	case time.Wednesday:
		return s.Wednesday
	case time.Thursday:
		return s.Thursday
	case time.Friday:
		return s.Friday
	case time.Saturday:
		return s.Saturday
	default:
		return s.Sunday
	}
}

// dateOf reads the calendar day of a feed date without any zone shift.
func dateOf(t time.Time) transit.Date {
	return transit.NewDate(t.Year(), t.Month(), t.Day())
}
