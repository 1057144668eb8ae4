package store

import (
	"context"
	"errors"

	"github.com/sells-group/bathroom-finder/internal/model"
)

// ErrNotFound is returned when a requested bathroom does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned when a bathroom's place ID is already stored.
var ErrDuplicate = errors.New("store: duplicate place id")

// Store persists bathrooms and their reviews. Writes are last-write-wins;
// there is no concurrency control beyond what the backend provides.
type Store interface {
	// Reads
	ListLocations(ctx context.Context) ([]model.Location, error)
	GetLocation(ctx context.Context, id string) (*model.Location, error)
	FindLocationByPlaceID(ctx context.Context, placeID string) (*model.Location, error)
	FindLocationByName(ctx context.Context, name string) (*model.Location, error)

	// Writes
	CreateLocation(ctx context.Context, loc model.Location) (*model.Location, error)
	AddReview(ctx context.Context, review model.Review) (*model.Review, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// attachReviews groups reviews onto their locations by ID, preserving the
// order of both slices.
func attachReviews(locs []model.Location, reviews []model.Review) {
	idx := make(map[string]int, len(locs))
	for i := range locs {
		idx[locs[i].ID] = i
	}
	for _, r := range reviews {
		if i, ok := idx[r.LocationID]; ok {
			locs[i].Reviews = append(locs[i].Reviews, r)
		}
	}
}
