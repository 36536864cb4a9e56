package raptor

import (
	"raptor.transitrouter.org/internal/transit"
)

// CustomRoutePoint is a query location given by coordinates. It only lives
// for one search.
type CustomRoutePoint struct {
	ID     string
	Name   string
	Coords transit.Coordinates

	transfers []*CustomTransfer
	byPoint   map[int]*CustomTransfer
}

func NewCustomRoutePoint(id, name string, c transit.Coordinates) *CustomRoutePoint {
	return &CustomRoutePoint{ID: id, Name: name, Coords: c, byPoint: make(map[int]*CustomTransfer)}
}

func (c *CustomRoutePoint) Identifier() string            { return c.ID }
func (c *CustomRoutePoint) DisplayName() string           { return c.Name }
func (c *CustomRoutePoint) Location() transit.Coordinates { return c.Coords }

// Transfers lists the walks to or from the point, in the order added.
func (c *CustomRoutePoint) Transfers() []*CustomTransfer {
	return c.transfers
}

// TransferWith returns the walk between c and the point with the given
// search index.
func (c *CustomRoutePoint) TransferWith(point int) (*CustomTransfer, bool) {
	t, ok := c.byPoint[point]
	return t, ok
}

func (c *CustomRoutePoint) addTransfer(p transit.RoutePoint, point int, fromCustom bool) *CustomTransfer {
	t := &CustomTransfer{
		Custom:     c,
		Point:      p,
		Distance:   int(c.Coords.DistanceTo(p.Location())),
		FromCustom: fromCustom,
		point:      point,
	}
	c.transfers = append(c.transfers, t)
	c.byPoint[point] = t
	return t
}

// CustomTransfer is a walk between a custom point and a stop or station.
// FromCustom is true when the walk leaves the custom point.
type CustomTransfer struct {
	Custom     *CustomRoutePoint
	Point      transit.RoutePoint
	Distance   int
	FromCustom bool

	point int
}

func (t *CustomTransfer) Source() transit.RoutePoint {
	if t.FromCustom {
		return t.Custom
	}
	return t.Point
}

func (t *CustomTransfer) Destination() transit.RoutePoint {
	if t.FromCustom {
		return t.Point
	}
	return t.Custom
}
