package model

import (
	"math"

	"github.com/rotisserie/eris"
)

// AnyDistance is the MaxDistanceKm sentinel meaning "no distance limit".
var AnyDistance = math.Inf(1)

// FilterCriteria narrows a result list. Use DefaultFilters for the "show
// everything" state; the zero value limits distance to 0 km.
type FilterCriteria struct {
	MinRating         float64    `json:"min_rating"`
	MaxDistanceKm     float64    `json:"max_distance_km"`
	RequiredAmenities AmenitySet `json:"required_amenities"`
}

// DefaultFilters returns criteria that accept every location.
func DefaultFilters() FilterCriteria {
	return FilterCriteria{
		MinRating:         0,
		MaxDistanceKm:     AnyDistance,
		RequiredAmenities: AmenitySet{},
	}
}

// HasDistanceLimit reports whether MaxDistanceKm is a real bound.
func (f FilterCriteria) HasDistanceLimit() bool {
	return !math.IsInf(f.MaxDistanceKm, 1)
}

// IsActive reports whether any criterion differs from the defaults.
func (f FilterCriteria) IsActive() bool {
	return f.MinRating > 0 || f.HasDistanceLimit() || len(f.RequiredAmenities) > 0
}

// SortKey selects the result ordering.
type SortKey string

const (
	SortDistance SortKey = "distance"
	SortRating   SortKey = "rating"
	SortNewest   SortKey = "newest"
)

// ParseSortKey parses a sort key. The empty string selects SortDistance.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "", SortDistance:
		return SortDistance, nil
	case SortRating:
		return SortRating, nil
	case SortNewest:
		return SortNewest, nil
	default:
		return "", eris.Errorf("model: unknown sort key %q", s)
	}
}
