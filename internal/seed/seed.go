// Package seed imports bathrooms and reviews from a YAML file through the
// regular write path, so subscribers see seeded data as ordinary writes.
package seed

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/model"
	"github.com/sells-group/bathroom-finder/internal/review"
)

// File is the on-disk seed document.
type File struct {
	Bathrooms []Entry `yaml:"bathrooms"`
}

// Entry is one bathroom with its optional reviews.
type Entry struct {
	PlaceID     string        `yaml:"place_id"`
	Name        string        `yaml:"name"`
	Latitude    float64       `yaml:"latitude"`
	Longitude   float64       `yaml:"longitude"`
	Address     *string       `yaml:"address"`
	Description *string       `yaml:"description"`
	Amenities   []string      `yaml:"amenities"`
	Reviews     []ReviewEntry `yaml:"reviews"`
}

// ReviewEntry is a seeded review. Amenities default to the bathroom's.
type ReviewEntry struct {
	Rating      int      `yaml:"rating"`
	Cleanliness int      `yaml:"cleanliness"`
	Amenities   []string `yaml:"amenities"`
	Description *string  `yaml:"description"`
	Photos      []string `yaml:"photos"`
}

// Writer is the subset of review.Service used by Apply.
type Writer interface {
	Submit(ctx context.Context, sub review.Submission) (*review.Result, error)
	AddBathroom(ctx context.Context, nb review.NewBathroom) (*model.Location, error)
}

// Summary counts what Apply wrote.
type Summary struct {
	Bathrooms int
	Reviews   int
}

// Load reads and parses a seed file.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "seed: read %s", path)
	}
	return Parse(data)
}

// Parse decodes a seed document.
func Parse(data []byte) ([]Entry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "seed: parse yaml")
	}
	for i, e := range f.Bathrooms {
		if strings.TrimSpace(e.Name) == "" && strings.TrimSpace(e.PlaceID) == "" {
			return nil, eris.Errorf("seed: entry %d has neither name nor place_id", i)
		}
	}
	return f.Bathrooms, nil
}

func (e Entry) coordinate() geo.Coordinate {
	return geo.Coordinate{Latitude: e.Latitude, Longitude: e.Longitude}
}

// Apply writes entries in order. Entries with reviews go through Submit,
// which reuses an existing bathroom with the same place ID or name; entries
// without reviews are added as new bathrooms. Apply stops at the first
// failure and reports what was written before it.
func Apply(ctx context.Context, w Writer, entries []Entry) (Summary, error) {
	var sum Summary
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return sum, eris.Wrap(err, "seed: apply")
		}

		if len(e.Reviews) == 0 {
			if _, err := w.AddBathroom(ctx, review.NewBathroom{
				Name:        e.Name,
				Coordinate:  e.coordinate(),
				Address:     e.Address,
				Description: e.Description,
				Amenities:   e.Amenities,
			}); err != nil {
				return sum, eris.Wrapf(err, "seed: entry %d (%s)", i, e.Name)
			}
			sum.Bathrooms++
			continue
		}

		for j, r := range e.Reviews {
			amenities := r.Amenities
			if amenities == nil {
				amenities = e.Amenities
			}
			res, err := w.Submit(ctx, review.Submission{
				PlaceID:     e.PlaceID,
				Name:        e.Name,
				Coordinate:  e.coordinate(),
				Address:     e.Address,
				Rating:      r.Rating,
				Cleanliness: r.Cleanliness,
				Amenities:   amenities,
				Description: r.Description,
				Photos:      r.Photos,
			})
			if err != nil {
				return sum, eris.Wrapf(err, "seed: entry %d (%s) review %d", i, e.Name, j)
			}
			if res.Created {
				sum.Bathrooms++
			}
			sum.Reviews++
		}
	}

	zap.L().Info("seed: applied",
		zap.Int("entries", len(entries)),
		zap.Int("bathrooms", sum.Bathrooms),
		zap.Int("reviews", sum.Reviews),
	)
	return sum, nil
}
