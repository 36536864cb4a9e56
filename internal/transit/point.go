// Package transit is the immutable, in-memory transit graph the router
// searches: stops, routes with their dated trips, walking transfers and the
// shared-bike station network.
package transit

import (
	"fmt"

	"raptor.transitrouter.org/internal/utils"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether c lies within WGS84 bounds.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// DistanceTo returns the distance in meters.
func (c Coordinates) DistanceTo(o Coordinates) float64 {
	return utils.Distance(c.Lat, c.Lon, o.Lat, o.Lon)
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// RoutePoint is anything a search can reach or leave from.
type RoutePoint interface {
	Identifier() string
	DisplayName() string
	Location() Coordinates
}

type VehicleType int

const (
	Tram       VehicleType = 0
	Metro      VehicleType = 1
	Rail       VehicleType = 2
	Bus        VehicleType = 3
	Ferry      VehicleType = 4
	CableTram  VehicleType = 5
	AerialLift VehicleType = 6
	Funicular  VehicleType = 7
	Trolleybus VehicleType = 11
	Monorail   VehicleType = 12
)

func (v VehicleType) String() string {
	switch v {
	case Tram:
		return "TRAM"
	case Metro:
		return "METRO"
	case Rail:
		return "RAIL"
	case Bus:
		return "BUS"
	case Ferry:
		return "FERRY"
	case CableTram:
		return "CABLE_TRAM"
	case AerialLift:
		return "AERIAL_LIFT"
	case Funicular:
		return "FUNICULAR"
	case Trolleybus:
		return "TROLLEYBUS"
	case Monorail:
		return "MONORAIL"
	default:
		return fmt.Sprintf("VehicleType(%d)", int(v))
	}
}

// VehicleTypeFromGTFS maps basic and extended GTFS route_type values.
func VehicleTypeFromGTFS(routeType int) VehicleType {
	switch {
	case routeType >= 0 && routeType <= 7, routeType == 11, routeType == 12:
		return VehicleType(routeType)
	case routeType >= 100 && routeType < 200:
		return Rail
	case routeType >= 200 && routeType < 300:
		return Bus
	case routeType >= 400 && routeType < 500:
		return Metro
	case routeType >= 700 && routeType < 800:
		return Bus
	case routeType == 800:
		return Trolleybus
	case routeType >= 900 && routeType < 1000:
		return Tram
	case routeType >= 1000 && routeType < 1300:
		return Ferry
	case routeType == 1300:
		return AerialLift
	case routeType == 1400:
		return Funicular
	default:
		return Bus
	}
}
