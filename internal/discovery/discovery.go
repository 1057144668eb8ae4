// Package discovery finds places near a user where a bathroom is likely,
// merging results from several upstream sources.
package discovery

import (
	"context"
	"errors"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/model"
	"github.com/sells-group/bathroom-finder/internal/resilience"
)

// DefaultRadiusM is the search radius used when none is given.
const DefaultRadiusM = 500

// Candidate is a place a user may pick when reviewing a bathroom.
type Candidate struct {
	PlaceID    string           `json:"place_id"`
	Name       string           `json:"name"`
	Address    string           `json:"address,omitempty"`
	Coordinate geo.Coordinate   `json:"coordinate"`
	Types      []string         `json:"types,omitempty"`
	Amenities  model.AmenitySet `json:"amenities"`
	Source     string           `json:"source"`
	DistanceKm float64          `json:"distance_km"`
}

// Source looks up candidates around a point.
type Source interface {
	Name() string
	Nearby(ctx context.Context, center geo.Coordinate, radiusM int) ([]Candidate, error)
}

// Finder queries all sources concurrently and merges their results.
type Finder struct {
	sources  []Source
	breakers []*resilience.Breaker
	radiusM  int
}

// Option configures a Finder.
type Option func(*finderOptions)

type finderOptions struct {
	radiusM int
	breaker resilience.BreakerConfig
}

// WithRadius sets the default search radius in meters.
func WithRadius(m int) Option {
	return func(o *finderOptions) {
		if m > 0 {
			o.radiusM = m
		}
	}
}

// WithBreaker sets the circuit breaker used for each source.
func WithBreaker(cfg resilience.BreakerConfig) Option {
	return func(o *finderOptions) {
		o.breaker = cfg
	}
}

// NewFinder creates a Finder over sources. Each source gets its own breaker.
func NewFinder(sources []Source, opts ...Option) *Finder {
	o := finderOptions{radiusM: DefaultRadiusM, breaker: resilience.DefaultBreakerConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	f := &Finder{sources: sources, radiusM: o.radiusM}
	for _, s := range sources {
		f.breakers = append(f.breakers, resilience.NewBreaker(s.Name(), o.breaker))
	}
	return f
}

// RadiusM returns the default radius.
func (f *Finder) RadiusM() int { return f.radiusM }

// Nearby returns candidates within radiusM of center, closest first. A
// failing source is logged and skipped; an error is returned only when
// every source fails.
func (f *Finder) Nearby(ctx context.Context, center geo.Coordinate, radiusM int) ([]Candidate, error) {
	if radiusM <= 0 {
		radiusM = f.radiusM
	}

	results := make([][]Candidate, len(f.sources))
	errs := make([]error, len(f.sources))

	var g errgroup.Group
	for i, src := range f.sources {
		g.Go(func() error {
			found, err := resilience.Execute(ctx, f.breakers[i], func(ctx context.Context) ([]Candidate, error) {
				return src.Nearby(ctx, center, radiusM)
			})
			if err != nil {
				zap.L().Warn("discovery: source failed",
					zap.String("source", src.Name()),
					zap.Error(err),
				)
				errs[i] = eris.Wrapf(err, "discovery: %s", src.Name())
				return nil
			}
			results[i] = found
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if len(f.sources) > 0 && failed == len(f.sources) {
		return nil, eris.Wrap(errors.Join(errs...), "discovery: all sources failed")
	}

	return merge(results, center, float64(radiusM)/1000), nil
}

// merge de-duplicates by place ID, keeping the first source's entry, drops
// anything outside radiusKm and sorts by distance.
func merge(results [][]Candidate, center geo.Coordinate, radiusKm float64) []Candidate {
	seen := make(map[string]struct{})
	out := []Candidate{}
	for _, batch := range results {
		for _, c := range batch {
			if _, dup := seen[c.PlaceID]; dup {
				continue
			}
			seen[c.PlaceID] = struct{}{}

			c.DistanceKm = geo.DistanceKm(center, c.Coordinate)
			if !(c.DistanceKm <= radiusKm) {
				continue
			}
			if c.Amenities == nil {
				c.Amenities = model.AmenitySet{}
			}
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}
