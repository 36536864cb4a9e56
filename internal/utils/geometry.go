// Package utils holds the spherical geometry behind the stop and bike
// station indexes.
package utils

import "math"

// RadiusOfEarthInMeters is the mean radius used for every distance.
const RadiusOfEarthInMeters = 6371010.0

// shortSpan is the coordinate difference, in degrees, below which the flat
// approximation stays within a few centimeters.
const shortSpan = 0.2

// Box is a lon/lat rectangle with corners in the [lon, lat] order of the
// rtree indexes.
type Box struct {
	Min [2]float64
	Max [2]float64
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Distance returns the great-circle distance in meters. Nearby points, which
// is nearly every walk or ride, take an equirectangular shortcut.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	if math.Abs(lat2-lat1) < shortSpan && math.Abs(lon2-lon1) < shortSpan {
		x := dLon * math.Cos(radians(lat1+lat2)/2)
		return RadiusOfEarthInMeters * math.Hypot(x, dLat)
	}

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(radians(lat1))*math.Cos(radians(lat2))*sinLon*sinLon
	return 2 * RadiusOfEarthInMeters * math.Asin(math.Sqrt(min(h, 1)))
}

// BoxAround returns a box holding every point within radius meters of
// lat, lon. Near the poles the longitude range widens to the full circle.
func BoxAround(lat, lon, radius float64) Box {
	latOffset := degrees(radius / RadiusOfEarthInMeters)

	lonOffset := 180.0
	if cos := math.Cos(radians(lat)); cos > 1e-9 {
		lonOffset = min(degrees(radius/(RadiusOfEarthInMeters*cos)), 180)
	}

	return Box{
		Min: [2]float64{lon - lonOffset, lat - latOffset},
		Max: [2]float64{lon + lonOffset, lat + latOffset},
	}
}

// Contains reports whether the point lies in b, edges included.
func (b Box) Contains(lat, lon float64) bool {
	return lon >= b.Min[0] && lon <= b.Max[0] && lat >= b.Min[1] && lat <= b.Max[1]
}
