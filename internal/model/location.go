package model

import (
	"time"

	"github.com/sells-group/bathroom-finder/internal/geo"
)

// Review is a single user review of a bathroom. Reviews are immutable once
// stored.
type Review struct {
	ID          string     `json:"id"`
	LocationID  string     `json:"location_id"`
	Rating      int        `json:"rating"`
	Cleanliness int        `json:"cleanliness"`
	Amenities   AmenitySet `json:"amenities"`
	Description *string    `json:"description,omitempty"`
	Photos      []string   `json:"photos,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Location is a stored bathroom record with its reviews. Amenities is the
// location-level snapshot and is independent of per-review amenities.
type Location struct {
	ID          string         `json:"id"`
	PlaceID     string         `json:"place_id,omitempty"`
	Name        string         `json:"name"`
	Coordinate  geo.Coordinate `json:"coordinate"`
	Amenities   AmenitySet     `json:"amenities"`
	Reviews     []Review       `json:"reviews"`
	Address     *string        `json:"address,omitempty"`
	Description *string        `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Clone returns a copy whose reviews slice and amenity sets are not shared
// with l.
func (l Location) Clone() Location {
	out := l
	out.Amenities = l.Amenities.Clone()
	if l.Reviews != nil {
		out.Reviews = make([]Review, len(l.Reviews))
		for i, r := range l.Reviews {
			r.Amenities = r.Amenities.Clone()
			if r.Photos != nil {
				r.Photos = append([]string(nil), r.Photos...)
			}
			out.Reviews[i] = r
		}
	}
	return out
}

// DerivedLocation is the computed view of a Location for one user position.
// It is rebuilt on every pipeline run and never persisted.
type DerivedLocation struct {
	Location
	AverageRating      float64 `json:"average_rating"`
	AverageCleanliness float64 `json:"average_cleanliness"`
	ReviewCount        int     `json:"review_count"`
	DistanceKm         float64 `json:"distance_km"`
}
