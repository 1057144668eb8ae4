// Package pipeline turns raw bathroom records and a user position into the
// filtered, ranked list the map and list views render.
package pipeline

import (
	"math"
	"sort"

	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/model"
	"github.com/sells-group/bathroom-finder/internal/rating"
)

// BuildView derives every location relative to position, keeps those that
// satisfy filters and orders them by key. Inputs are never modified and an
// empty input yields an empty, non-nil result.
func BuildView(locations []model.Location, position geo.Coordinate, filters model.FilterCriteria, key model.SortKey) []model.DerivedLocation {
	derived := make([]model.DerivedLocation, 0, len(locations))
	for _, loc := range locations {
		derived = append(derived, Derive(loc, position))
	}

	view := Filter(derived, filters)
	Sort(view, key)
	return view
}

// Derive computes the view of a single location for position.
func Derive(loc model.Location, position geo.Coordinate) model.DerivedLocation {
	sum := rating.Aggregate(loc.Reviews)
	return model.DerivedLocation{
		Location:           loc,
		AverageRating:      sum.AverageRating,
		AverageCleanliness: sum.AverageCleanliness,
		ReviewCount:        sum.ReviewCount,
		DistanceKm:         geo.DistanceKm(position, loc.Coordinate),
	}
}

// Filter returns the members of in that pass every criterion, preserving
// order. The input slice is not modified.
func Filter(in []model.DerivedLocation, filters model.FilterCriteria) []model.DerivedLocation {
	out := make([]model.DerivedLocation, 0, len(in))
	for _, d := range in {
		if Matches(d, filters) {
			out = append(out, d)
		}
	}
	return out
}

// Matches reports whether d satisfies all of filters. A zero MinRating
// admits unreviewed locations. A NaN distance never satisfies a distance
// limit.
func Matches(d model.DerivedLocation, filters model.FilterCriteria) bool {
	if d.AverageRating < filters.MinRating {
		return false
	}
	if filters.HasDistanceLimit() && !(d.DistanceKm <= filters.MaxDistanceKm) {
		return false
	}
	return d.Amenities.ContainsAll(filters.RequiredAmenities)
}

// Sort orders view in place by key using a stable sort. Unknown keys leave
// the order unchanged.
func Sort(view []model.DerivedLocation, key model.SortKey) {
	var less func(a, b *model.DerivedLocation) bool

	switch key {
	case model.SortDistance:
		less = func(a, b *model.DerivedLocation) bool {
			af, bf := isFinite(a.DistanceKm), isFinite(b.DistanceKm)
			if af != bf {
				return af
			}
			if !af {
				return false
			}
			return a.DistanceKm < b.DistanceKm
		}
	case model.SortRating:
		less = func(a, b *model.DerivedLocation) bool {
			return a.AverageRating > b.AverageRating
		}
	case model.SortNewest:
		less = func(a, b *model.DerivedLocation) bool {
			return a.CreatedAt.After(b.CreatedAt)
		}
	default:
		return
	}

	sort.SliceStable(view, func(i, j int) bool {
		return less(&view[i], &view[j])
	})
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
