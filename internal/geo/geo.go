// Package geo holds the coordinate type and the distance math used to rank
// bathrooms around a user's position.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// Coordinate is a WGS84 point in degrees. Values are not range-checked.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" firestore:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude" firestore:"longitude"`
}

// IsFinite reports whether both components are finite numbers.
func (c Coordinate) IsFinite() bool {
	return !math.IsNaN(c.Latitude) && !math.IsInf(c.Latitude, 0) &&
		!math.IsNaN(c.Longitude) && !math.IsInf(c.Longitude, 0)
}

// DistanceKm returns the haversine great-circle distance between a and b in
// kilometers. Out-of-range inputs are not rejected; non-finite inputs yield a
// non-finite result.
func DistanceKm(a, b Coordinate) float64 {
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(radians(a.Latitude))*math.Cos(radians(b.Latitude))*sinLon*sinLon

	// Rounding can push h a hair outside [0, 1] for antipodal points.
	if h > 1 {
		h = 1
	} else if h < 0 {
		h = 0
	}

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
