package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is the spatial reference used for stored points (WGS84).
const SRID = 4326

// EncodePoint converts a coordinate to little-endian EWKB with SRID 4326,
// suitable for a PostGIS geometry(Point, 4326) column.
func EncodePoint(c Coordinate) ([]byte, error) {
	p := geom.NewPointFlat(geom.XY, []float64{c.Longitude, c.Latitude}).SetSRID(SRID)
	data, err := ewkb.Marshal(p, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode point")
	}
	return data, nil
}

// DecodePoint parses EWKB point bytes back into a coordinate.
func DecodePoint(data []byte) (Coordinate, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return Coordinate{}, eris.Wrap(err, "geo: decode point")
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return Coordinate{}, eris.Errorf("geo: expected point, got %T", g)
	}
	return Coordinate{Latitude: p.Y(), Longitude: p.X()}, nil
}
