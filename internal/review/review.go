// Package review implements the write path: submitting reviews and adding
// bathrooms, with change notification after each successful commit.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/model"
	"github.com/sells-group/bathroom-finder/internal/store"
)

// Publisher is the subset of notify.Notifier the service needs.
type Publisher interface {
	Publish(event model.Event, payload any)
}

// ValidationError reports a rejected field in a submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("review: invalid %s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Submission is a user review, optionally for a bathroom not yet stored.
type Submission struct {
	PlaceID     string         `json:"place_id" yaml:"place_id"`
	Name        string         `json:"name" yaml:"name"`
	Coordinate  geo.Coordinate `json:"coordinate" yaml:"coordinate"`
	Address     *string        `json:"address,omitempty" yaml:"address,omitempty"`
	Rating      int            `json:"rating" yaml:"rating"`
	Cleanliness int            `json:"cleanliness" yaml:"cleanliness"`
	Amenities   []string       `json:"amenities" yaml:"amenities"`
	Description *string        `json:"description,omitempty" yaml:"description,omitempty"`
	Photos      []string       `json:"photos,omitempty" yaml:"photos,omitempty"`
}

// NewBathroom is a manually added bathroom without a review.
type NewBathroom struct {
	Name        string         `json:"name" yaml:"name"`
	Coordinate  geo.Coordinate `json:"coordinate" yaml:"coordinate"`
	Address     *string        `json:"address,omitempty" yaml:"address,omitempty"`
	Description *string        `json:"description,omitempty" yaml:"description,omitempty"`
	Amenities   []string       `json:"amenities" yaml:"amenities"`
}

// Result describes a committed submission.
type Result struct {
	Location *model.Location `json:"location"`
	Review   *model.Review   `json:"review"`
	Created  bool            `json:"created"`
}

// Service validates and commits writes.
type Service struct {
	store store.Store
	pub   Publisher
}

// NewService creates a Service.
func NewService(st store.Store, pub Publisher) *Service {
	return &Service{store: st, pub: pub}
}

// NormalizeName canonicalizes a bathroom name for matching: NFC with
// surrounding whitespace removed.
func NormalizeName(name string) string {
	return strings.TrimSpace(norm.NFC.String(name))
}

func validScore(v int) bool { return v >= 1 && v <= 5 }

func validCoordinate(c geo.Coordinate) bool {
	return c.IsFinite() && c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Validate checks a submission without touching the store.
func (s Submission) Validate() error {
	if !validScore(s.Rating) {
		return invalid("rating", "must be between 1 and 5")
	}
	if !validScore(s.Cleanliness) {
		return invalid("cleanliness", "must be between 1 and 5")
	}
	if strings.TrimSpace(s.PlaceID) == "" && NormalizeName(s.Name) == "" {
		return invalid("name", "place_id or name is required")
	}
	return nil
}

// Validate checks a manual bathroom entry.
func (b NewBathroom) Validate() error {
	if NormalizeName(b.Name) == "" {
		return invalid("name", "is required")
	}
	if !validCoordinate(b.Coordinate) {
		return invalid("coordinate", "must be a valid latitude/longitude")
	}
	return nil
}

// Submit stores a review, creating its bathroom first when no stored
// bathroom matches. The place ID is the canonical key; the normalized name
// is used only when no place ID is given. Events are published after the
// review is committed and never on failure.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Result, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	placeID := strings.TrimSpace(sub.PlaceID)
	name := NormalizeName(sub.Name)

	loc, err := s.resolve(ctx, placeID, name)
	if err != nil {
		return nil, err
	}

	created := false
	if loc == nil {
		if name == "" {
			return nil, invalid("name", "is required for a new bathroom")
		}
		if !validCoordinate(sub.Coordinate) {
			return nil, invalid("coordinate", "must be a valid latitude/longitude")
		}
		loc, created, err = s.create(ctx, placeID, name, sub)
		if err != nil {
			return nil, err
		}
	}

	rev, err := s.store.AddReview(ctx, model.Review{
		LocationID:  loc.ID,
		Rating:      sub.Rating,
		Cleanliness: sub.Cleanliness,
		Amenities:   model.NewAmenitySet(sub.Amenities...),
		Description: sub.Description,
		Photos:      sub.Photos,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "review: add review to %s", loc.ID)
	}
	loc.Reviews = append(loc.Reviews, *rev)

	zap.L().Info("review: committed",
		zap.String("location_id", loc.ID),
		zap.String("review_id", rev.ID),
		zap.Bool("created", created),
	)

	if created {
		s.pub.Publish(model.EventBathroomAdded, model.BathroomAddedPayload{LocationID: loc.ID})
	}
	s.pub.Publish(model.EventReviewAdded, model.ReviewAddedPayload{LocationID: loc.ID, ReviewID: rev.ID})

	return &Result{Location: loc, Review: rev, Created: created}, nil
}

// AddBathroom stores a bathroom entered by hand.
func (s *Service) AddBathroom(ctx context.Context, nb NewBathroom) (*model.Location, error) {
	if err := nb.Validate(); err != nil {
		return nil, err
	}

	loc, err := s.store.CreateLocation(ctx, model.Location{
		Name:        NormalizeName(nb.Name),
		Coordinate:  nb.Coordinate,
		Amenities:   model.NewAmenitySet(nb.Amenities...),
		Address:     nb.Address,
		Description: nb.Description,
	})
	if err != nil {
		return nil, eris.Wrap(err, "review: add bathroom")
	}

	zap.L().Info("review: bathroom added", zap.String("location_id", loc.ID))
	s.pub.Publish(model.EventBathroomAdded, model.BathroomAddedPayload{LocationID: loc.ID})
	return loc, nil
}

// create stores the bathroom for a first review. When a concurrent writer
// stored the same place ID first, the review attaches to that bathroom
// instead and created is false.
func (s *Service) create(ctx context.Context, placeID, name string, sub Submission) (*model.Location, bool, error) {
	loc, err := s.store.CreateLocation(ctx, model.Location{
		PlaceID:    placeID,
		Name:       name,
		Coordinate: sub.Coordinate,
		Amenities:  model.NewAmenitySet(sub.Amenities...),
		Address:    sub.Address,
	})
	if err == nil {
		return loc, true, nil
	}
	if placeID == "" || !errors.Is(err, store.ErrDuplicate) {
		return nil, false, eris.Wrap(err, "review: create bathroom")
	}

	existing, ferr := s.store.FindLocationByPlaceID(ctx, placeID)
	if ferr != nil {
		return nil, false, eris.Wrap(ferr, "review: find by place id after conflict")
	}
	if existing == nil {
		return nil, false, eris.Wrapf(err, "review: place %s conflicted but is missing", placeID)
	}
	zap.L().Debug("review: place id stored concurrently", zap.String("place_id", placeID))
	return existing, false, nil
}

// resolve returns nil, nil when no stored bathroom matches.
func (s *Service) resolve(ctx context.Context, placeID, name string) (*model.Location, error) {
	if placeID != "" {
		loc, err := s.store.FindLocationByPlaceID(ctx, placeID)
		if err != nil {
			return nil, eris.Wrap(err, "review: find by place id")
		}
		return loc, nil
	}
	loc, err := s.store.FindLocationByName(ctx, name)
	if err != nil {
		return nil, eris.Wrap(err, "review: find by name")
	}
	return loc, nil
}
