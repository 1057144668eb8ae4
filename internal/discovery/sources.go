package discovery

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/pkg/google"
	"github.com/sells-group/bathroom-finder/pkg/overpass"
)

// GoogleSource finds businesses through Places Nearby Search.
type GoogleSource struct {
	client google.Client
	types  []string
}

// NewGoogleSource wraps a Places client. Empty types use google.DefaultTypes.
func NewGoogleSource(client google.Client, types ...string) *GoogleSource {
	return &GoogleSource{client: client, types: types}
}

func (s *GoogleSource) Name() string { return "google" }

func (s *GoogleSource) Nearby(ctx context.Context, center geo.Coordinate, radiusM int) ([]Candidate, error) {
	resp, err := s.client.NearbySearch(ctx, google.NearbySearchRequest{
		Location: google.LatLng{Lat: center.Latitude, Lng: center.Longitude},
		RadiusM:  radiusM,
		Types:    s.types,
	})
	if err != nil {
		return nil, eris.Wrap(err, "discovery: google nearby")
	}

	out := make([]Candidate, 0, len(resp.Results))
	for _, p := range resp.Results {
		out = append(out, Candidate{
			PlaceID:    p.PlaceID,
			Name:       p.Name,
			Address:    p.Vicinity,
			Coordinate: geo.Coordinate{Latitude: p.Geometry.Location.Lat, Longitude: p.Geometry.Location.Lng},
			Types:      p.Types,
			Source:     s.Name(),
		})
	}
	return out, nil
}

// OverpassSource finds mapped public toilets in OpenStreetMap.
type OverpassSource struct {
	client overpass.Client
}

// NewOverpassSource wraps an Overpass client.
func NewOverpassSource(client overpass.Client) *OverpassSource {
	return &OverpassSource{client: client}
}

func (s *OverpassSource) Name() string { return "osm" }

func (s *OverpassSource) Nearby(ctx context.Context, center geo.Coordinate, radiusM int) ([]Candidate, error) {
	toilets, err := s.client.Toilets(ctx, geo.BoundingBox(center, float64(radiusM)/1000))
	if err != nil {
		return nil, eris.Wrap(err, "discovery: overpass toilets")
	}

	out := make([]Candidate, 0, len(toilets))
	for _, t := range toilets {
		out = append(out, Candidate{
			PlaceID:    "osm:" + t.ID,
			Name:       t.Name,
			Coordinate: t.Coordinate,
			Types:      []string{"toilets"},
			Amenities:  t.Amenities,
			Source:     s.Name(),
		})
	}
	return out, nil
}
