package geo

import (
	"fmt"
	"math"
)

// BBox is a latitude/longitude bounding box.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// kmPerDegreeLat is the length of one degree of latitude on the haversine sphere.
const kmPerDegreeLat = EarthRadiusKm * math.Pi / 180

// BoundingBox returns an approximate box that contains every point within
// radiusKm of center. Near the poles the longitude span is widened to the
// full range.
func BoundingBox(center Coordinate, radiusKm float64) BBox {
	dLat := radiusKm / kmPerDegreeLat

	cosLat := math.Cos(radians(center.Latitude))
	dLng := 180.0
	if cosLat > 1e-9 {
		dLng = math.Min(180, radiusKm/(kmPerDegreeLat*cosLat))
	}

	return BBox{
		MinLat: math.Max(-90, center.Latitude-dLat),
		MinLng: math.Max(-180, center.Longitude-dLng),
		MaxLat: math.Min(90, center.Latitude+dLat),
		MaxLng: math.Min(180, center.Longitude+dLng),
	}
}

// Contains reports whether c lies inside the box (edges inclusive).
func (b BBox) Contains(c Coordinate) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLng && c.Longitude <= b.MaxLng
}

// OverpassString formats the box in Overpass QL order: south,west,north,east.
func (b BBox) OverpassString() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.MinLat, b.MinLng, b.MaxLat, b.MaxLng)
}
