package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/model"
)

const (
	bathroomsCollection = "bathrooms"
	reviewsCollection   = "reviews"
)

// FirestoreStore implements Store on Cloud Firestore. Each bathroom is a
// document in "bathrooms" with its reviews in a "reviews" subcollection.
type FirestoreStore struct {
	client *firestore.Client
}

// FirestoreConfig configures the Firebase app backing a FirestoreStore.
type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id" mapstructure:"project_id"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
}

// NewFirestore initializes a Firebase app and opens its Firestore client.
func NewFirestore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var appCfg *firebase.Config
	if cfg.ProjectID != "" {
		appCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appCfg, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "firestore: init app")
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "firestore: open client")
	}
	return &FirestoreStore{client: client}, nil
}

type bathroomDoc struct {
	PlaceID     string    `firestore:"place_id"`
	Name        string    `firestore:"name"`
	Latitude    float64   `firestore:"latitude"`
	Longitude   float64   `firestore:"longitude"`
	Amenities   []string  `firestore:"amenities"`
	Address     *string   `firestore:"address"`
	Description *string   `firestore:"description"`
	CreatedAt   time.Time `firestore:"created_at"`
}

type reviewDoc struct {
	Rating      int       `firestore:"rating"`
	Cleanliness int       `firestore:"cleanliness"`
	Amenities   []string  `firestore:"amenities"`
	Description *string   `firestore:"description"`
	Photos      []string  `firestore:"photos"`
	CreatedAt   time.Time `firestore:"created_at"`
}

func toBathroomDoc(l model.Location) bathroomDoc {
	return bathroomDoc{
		PlaceID:     l.PlaceID,
		Name:        l.Name,
		Latitude:    l.Coordinate.Latitude,
		Longitude:   l.Coordinate.Longitude,
		Amenities:   l.Amenities.Strings(),
		Address:     l.Address,
		Description: l.Description,
		CreatedAt:   l.CreatedAt,
	}
}

func fromBathroomDoc(id string, d bathroomDoc) model.Location {
	return model.Location{
		ID:          id,
		PlaceID:     d.PlaceID,
		Name:        d.Name,
		Coordinate:  geo.Coordinate{Latitude: d.Latitude, Longitude: d.Longitude},
		Amenities:   model.NewAmenitySet(d.Amenities...),
		Address:     d.Address,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	}
}

func toReviewDoc(r model.Review) reviewDoc {
	return reviewDoc{
		Rating:      r.Rating,
		Cleanliness: r.Cleanliness,
		Amenities:   r.Amenities.Strings(),
		Description: r.Description,
		Photos:      nonNilStrings(r.Photos),
		CreatedAt:   r.CreatedAt,
	}
}

func fromReviewDoc(id, locationID string, d reviewDoc) model.Review {
	return model.Review{
		ID:          id,
		LocationID:  locationID,
		Rating:      d.Rating,
		Cleanliness: d.Cleanliness,
		Amenities:   model.NewAmenitySet(d.Amenities...),
		Description: d.Description,
		Photos:      d.Photos,
		CreatedAt:   d.CreatedAt,
	}
}

func (s *FirestoreStore) Migrate(context.Context) error { return nil }

func (s *FirestoreStore) Close() error {
	return eris.Wrap(s.client.Close(), "firestore: close")
}

func (s *FirestoreStore) ListLocations(ctx context.Context) ([]model.Location, error) {
	snaps, err := s.client.Collection(bathroomsCollection).OrderBy("created_at", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, eris.Wrap(err, "firestore: list bathrooms")
	}

	locs := make([]model.Location, len(snaps))
	for i, snap := range snaps {
		var d bathroomDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, eris.Wrapf(err, "firestore: decode bathroom %s", snap.Ref.ID)
		}
		locs[i] = fromBathroomDoc(snap.Ref.ID, d)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range locs {
		g.Go(func() error {
			reviews, err := s.reviews(gctx, locs[i].ID)
			if err != nil {
				return err
			}
			locs[i].Reviews = reviews
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return locs, nil
}

func (s *FirestoreStore) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	snap, err := s.client.Collection(bathroomsCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, eris.Wrapf(ErrNotFound, "firestore: bathroom %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "firestore: get bathroom %s", id)
	}
	return s.withReviews(ctx, snap)
}

func (s *FirestoreStore) FindLocationByPlaceID(ctx context.Context, placeID string) (*model.Location, error) {
	return s.findOne(ctx, s.client.Collection(bathroomsCollection).Where("place_id", "==", placeID).Limit(1))
}

func (s *FirestoreStore) FindLocationByName(ctx context.Context, name string) (*model.Location, error) {
	return s.findOne(ctx, s.client.Collection(bathroomsCollection).Where("name", "==", name).Limit(1))
}

func (s *FirestoreStore) CreateLocation(ctx context.Context, loc model.Location) (*model.Location, error) {
	ref := docRef(s.client.Collection(bathroomsCollection), loc.ID)
	loc.ID = ref.ID
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC()
	}
	if loc.Amenities == nil {
		loc.Amenities = model.AmenitySet{}
	}

	if _, err := ref.Create(ctx, toBathroomDoc(loc)); err != nil {
		return nil, eris.Wrap(err, "firestore: create bathroom")
	}
	loc.Reviews = nil
	return &loc, nil
}

func (s *FirestoreStore) AddReview(ctx context.Context, review model.Review) (*model.Review, error) {
	parent := s.client.Collection(bathroomsCollection).Doc(review.LocationID)
	if _, err := parent.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, eris.Wrapf(ErrNotFound, "firestore: bathroom %s", review.LocationID)
		}
		return nil, eris.Wrap(err, "firestore: check bathroom")
	}

	ref := docRef(parent.Collection(reviewsCollection), review.ID)
	review.ID = ref.ID
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	if review.Amenities == nil {
		review.Amenities = model.AmenitySet{}
	}

	if _, err := ref.Create(ctx, toReviewDoc(review)); err != nil {
		return nil, eris.Wrapf(err, "firestore: insert review for %s", review.LocationID)
	}
	return &review, nil
}

// docRef addresses id in coll, or a new auto-ID document when id is empty.
func docRef(coll *firestore.CollectionRef, id string) *firestore.DocumentRef {
	if id == "" {
		return coll.NewDoc()
	}
	return coll.Doc(id)
}

// findOne returns nil, nil when the query yields no document.
func (s *FirestoreStore) findOne(ctx context.Context, q firestore.Query) (*model.Location, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "firestore: query bathroom")
	}
	return s.withReviews(ctx, snap)
}

func (s *FirestoreStore) withReviews(ctx context.Context, snap *firestore.DocumentSnapshot) (*model.Location, error) {
	var d bathroomDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, eris.Wrapf(err, "firestore: decode bathroom %s", snap.Ref.ID)
	}
	l := fromBathroomDoc(snap.Ref.ID, d)

	reviews, err := s.reviews(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	l.Reviews = reviews
	return &l, nil
}

func (s *FirestoreStore) reviews(ctx context.Context, locationID string) ([]model.Review, error) {
	iter := s.client.Collection(bathroomsCollection).Doc(locationID).
		Collection(reviewsCollection).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []model.Review
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "firestore: list reviews for %s", locationID)
		}
		var d reviewDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, eris.Wrapf(err, "firestore: decode review %s", snap.Ref.ID)
		}
		out = append(out, fromReviewDoc(snap.Ref.ID, locationID, d))
	}
	return out, nil
}
