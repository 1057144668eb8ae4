// Package overpass finds public toilets in OpenStreetMap through the
// Overpass API.
package overpass

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	overpassapi "github.com/serjvanilla/go-overpass"

	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/model"
)

const defaultEndpoint = "https://overpass-api.de/api/interpreter"

// DefaultName labels toilets that carry no name tag.
const DefaultName = "Public Toilet"

// Toilet is an OSM element tagged amenity=toilets.
type Toilet struct {
	// ID is "node/<id>" or "way/<id>".
	ID         string
	Name       string
	Coordinate geo.Coordinate
	Amenities  model.AmenitySet
	Tags       map[string]string
}

// Client queries Overpass for toilets.
type Client interface {
	Toilets(ctx context.Context, bbox geo.BBox) ([]Toilet, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithEndpoint overrides the interpreter URL.
func WithEndpoint(endpoint string) Option {
	return func(c *httpClient) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	endpoint string
	http     *http.Client
}

// NewClient creates an Overpass client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: 25 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// contextPoster adapts an http.Client to go-overpass's PostForm contract
// while carrying the caller's context.
type contextPoster struct {
	ctx context.Context
	hc  *http.Client
}

func (p contextPoster) PostForm(u string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(p.ctx, http.MethodPost, u, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return p.hc.Do(req)
}

// Query builds the Overpass QL for toilets inside bbox.
func Query(bbox geo.BBox) string {
	b := bbox.OverpassString()
	return fmt.Sprintf(`[out:json][timeout:25];
(
	node["amenity"="toilets"](%s);
	way["amenity"="toilets"](%s);
);
out body;
>;
out skel qt;`, b, b)
}

func (c *httpClient) Toilets(ctx context.Context, bbox geo.BBox) ([]Toilet, error) {
	api := overpassapi.NewWithSettings(c.endpoint, 1, contextPoster{ctx: ctx, hc: c.http})
	result, err := api.Query(Query(bbox))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: query toilets")
	}
	return convert(&result), nil
}

func convert(result *overpassapi.Result) []Toilet {
	var out []Toilet

	// Way member nodes come back untagged and are skipped here.
	for _, n := range result.Nodes {
		if !isPublicToilet(n.Tags) {
			continue
		}
		out = append(out, newToilet(fmt.Sprintf("node/%d", n.ID), geo.Coordinate{Latitude: n.Lat, Longitude: n.Lon}, n.Tags))
	}

	for _, w := range result.Ways {
		if !isPublicToilet(w.Tags) || len(w.Nodes) == 0 {
			continue
		}
		var lat, lon float64
		for _, n := range w.Nodes {
			lat += n.Lat
			lon += n.Lon
		}
		count := float64(len(w.Nodes))
		out = append(out, newToilet(fmt.Sprintf("way/%d", w.ID), geo.Coordinate{Latitude: lat / count, Longitude: lon / count}, w.Tags))
	}
	return out
}

func isPublicToilet(tags map[string]string) bool {
	if tags["amenity"] != "toilets" {
		return false
	}
	switch tags["access"] {
	case "private", "no", "customers":
		return false
	}
	return true
}

func newToilet(id string, c geo.Coordinate, tags map[string]string) Toilet {
	name := strings.TrimSpace(tags["name"])
	if name == "" {
		name = DefaultName
	}
	return Toilet{
		ID:         id,
		Name:       name,
		Coordinate: c,
		Amenities:  Amenities(tags),
		Tags:       tags,
	}
}

// Amenities maps OSM tags onto known amenities.
func Amenities(tags map[string]string) model.AmenitySet {
	set := model.AmenitySet{}
	if tags["wheelchair"] == "yes" {
		set.Add(model.AmenityWheelchairAccessible)
	}
	if tags["changing_table"] == "yes" {
		set.Add(model.AmenityBabyChanging)
	}
	if tags["fee"] == "no" {
		set.Add(model.AmenityFree)
	}
	if tags["lit"] == "yes" {
		set.Add(model.AmenityWellLit)
	}
	return set
}
