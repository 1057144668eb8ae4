package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func ptr(s string) *string { return &s }

func TestSQLite_CreateAndGetLocation(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateLocation(ctx, model.Location{
		PlaceID:     "place-1",
		Name:        "Central Library",
		Coordinate:  geo.Coordinate{Latitude: 30.2672, Longitude: -97.7431},
		Amenities:   model.NewAmenitySet("free", "well_lit"),
		Address:     ptr("710 W Cesar Chavez St"),
		Description: ptr("Second floor"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := st.GetLocation(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "place-1", got.PlaceID)
	assert.Equal(t, "Central Library", got.Name)
	assert.InDelta(t, 30.2672, got.Coordinate.Latitude, 1e-9)
	assert.InDelta(t, -97.7431, got.Coordinate.Longitude, 1e-9)
	assert.Equal(t, []string{"free", "well_lit"}, got.Amenities.Strings())
	require.NotNil(t, got.Address)
	assert.Equal(t, "710 W Cesar Chavez St", *got.Address)
	require.NotNil(t, got.Description)
	assert.Equal(t, "Second floor", *got.Description)
	assert.Empty(t, got.Reviews)
}

func TestSQLite_GetLocation_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetLocation(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_FindLocationByPlaceID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	miss, err := st.FindLocationByPlaceID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, miss)

	created, err := st.CreateLocation(ctx, model.Location{PlaceID: "abc", Name: "Cafe"})
	require.NoError(t, err)

	hit, err := st.FindLocationByPlaceID(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, created.ID, hit.ID)
}

func TestSQLite_FindLocationByName(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	miss, err := st.FindLocationByName(ctx, "Cafe")
	require.NoError(t, err)
	assert.Nil(t, miss)

	created, err := st.CreateLocation(ctx, model.Location{Name: "Cafe"})
	require.NoError(t, err)

	hit, err := st.FindLocationByName(ctx, "Cafe")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, created.ID, hit.ID)
	assert.Empty(t, hit.PlaceID)
}

func TestSQLite_DuplicatePlaceIDRejected(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateLocation(ctx, model.Location{PlaceID: "dup", Name: "A"})
	require.NoError(t, err)
	_, err = st.CreateLocation(ctx, model.Location{PlaceID: "dup", Name: "B"})
	assert.ErrorIs(t, err, ErrDuplicate)

	// Locations without a place ID never collide.
	_, err = st.CreateLocation(ctx, model.Location{Name: "C"})
	require.NoError(t, err)
	_, err = st.CreateLocation(ctx, model.Location{Name: "D"})
	require.NoError(t, err)
}

func TestSQLite_AddReview(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	loc, err := st.CreateLocation(ctx, model.Location{Name: "Park"})
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	_, err = st.AddReview(ctx, model.Review{
		LocationID:  loc.ID,
		Rating:      4,
		Cleanliness: 3,
		Amenities:   model.NewAmenitySet("baby_changing"),
		Description: ptr("fine"),
		Photos:      []string{"a.jpg"},
		CreatedAt:   base,
	})
	require.NoError(t, err)
	_, err = st.AddReview(ctx, model.Review{
		LocationID:  loc.ID,
		Rating:      2,
		Cleanliness: 1,
		CreatedAt:   base.Add(time.Hour),
	})
	require.NoError(t, err)

	got, err := st.GetLocation(ctx, loc.ID)
	require.NoError(t, err)
	require.Len(t, got.Reviews, 2)
	assert.Equal(t, 4, got.Reviews[0].Rating)
	assert.Equal(t, []string{"baby_changing"}, got.Reviews[0].Amenities.Strings())
	assert.Equal(t, []string{"a.jpg"}, got.Reviews[0].Photos)
	require.NotNil(t, got.Reviews[0].Description)
	assert.Equal(t, "fine", *got.Reviews[0].Description)
	assert.Equal(t, 2, got.Reviews[1].Rating)
	assert.Nil(t, got.Reviews[1].Description)
	assert.True(t, got.Reviews[0].CreatedAt.Equal(base))
}

func TestSQLite_AddReview_UnknownLocation(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.AddReview(context.Background(), model.Review{LocationID: "ghost", Rating: 3, Cleanliness: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_AddReview_OutOfRangeRejected(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	loc, err := st.CreateLocation(ctx, model.Location{Name: "Mall"})
	require.NoError(t, err)

	_, err = st.AddReview(ctx, model.Review{LocationID: loc.ID, Rating: 6, Cleanliness: 3})
	assert.Error(t, err)
}

func TestSQLite_ListLocations(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	empty, err := st.ListLocations(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a, err := st.CreateLocation(ctx, model.Location{Name: "A", CreatedAt: base})
	require.NoError(t, err)
	b, err := st.CreateLocation(ctx, model.Location{Name: "B", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)

	_, err = st.AddReview(ctx, model.Review{LocationID: b.ID, Rating: 5, Cleanliness: 5})
	require.NoError(t, err)

	locs, err := st.ListLocations(ctx)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, a.ID, locs[0].ID)
	assert.Empty(t, locs[0].Reviews)
	assert.Equal(t, b.ID, locs[1].ID)
	require.Len(t, locs[1].Reviews, 1)
	assert.Equal(t, b.ID, locs[1].Reviews[0].LocationID)
}

func TestAttachReviews_IgnoresOrphans(t *testing.T) {
	locs := []model.Location{{ID: "a"}, {ID: "b"}}
	attachReviews(locs, []model.Review{
		{ID: "r1", LocationID: "b"},
		{ID: "r2", LocationID: "zzz"},
		{ID: "r3", LocationID: "b"},
	})
	assert.Empty(t, locs[0].Reviews)
	require.Len(t, locs[1].Reviews, 2)
	assert.Equal(t, "r1", locs[1].Reviews[0].ID)
	assert.Equal(t, "r3", locs[1].Reviews[1].ID)
}
