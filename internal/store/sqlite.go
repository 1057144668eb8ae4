package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sells-group/bathroom-finder/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS bathrooms (
	id          TEXT PRIMARY KEY,
	place_id    TEXT,
	name        TEXT NOT NULL,
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	amenities   TEXT NOT NULL DEFAULT '[]',
	address     TEXT,
	description TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reviews (
	id          TEXT PRIMARY KEY,
	bathroom_id TEXT NOT NULL REFERENCES bathrooms(id),
	rating      INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	cleanliness INTEGER NOT NULL CHECK (cleanliness BETWEEN 1 AND 5),
	amenities   TEXT NOT NULL DEFAULT '[]',
	description TEXT,
	photos      TEXT NOT NULL DEFAULT '[]',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_bathrooms_place_id ON bathrooms(place_id) WHERE place_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_bathrooms_name ON bathrooms(name);
CREATE INDEX IF NOT EXISTS idx_reviews_bathroom_id ON reviews(bathroom_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteSelectBathroom = `SELECT id, place_id, name, latitude, longitude, amenities, address, description, created_at FROM bathrooms`

func (s *SQLiteStore) ListLocations(ctx context.Context) ([]model.Location, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectBathroom+` ORDER BY created_at, id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list bathrooms")
	}
	defer rows.Close()

	locs := []model.Location{}
	for rows.Next() {
		l, err := scanSQLiteLocation(rows)
		if err != nil {
			return nil, err
		}
		locs = append(locs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list bathrooms iterate")
	}

	reviews, err := s.queryReviews(ctx, `SELECT id, bathroom_id, rating, cleanliness, amenities, description, photos, created_at FROM reviews ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	attachReviews(locs, reviews)
	return locs, nil
}

func (s *SQLiteStore) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	row := s.db.QueryRowContext(ctx, sqliteSelectBathroom+` WHERE id = ?`, id)
	l, err := scanSQLiteLocation(row)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: bathroom %s", id)
	}
	return s.withReviews(ctx, l)
}

func (s *SQLiteStore) FindLocationByPlaceID(ctx context.Context, placeID string) (*model.Location, error) {
	row := s.db.QueryRowContext(ctx, sqliteSelectBathroom+` WHERE place_id = ? LIMIT 1`, placeID)
	l, err := scanSQLiteLocation(row)
	if err != nil || l == nil {
		return nil, err
	}
	return s.withReviews(ctx, l)
}

func (s *SQLiteStore) FindLocationByName(ctx context.Context, name string) (*model.Location, error) {
	row := s.db.QueryRowContext(ctx, sqliteSelectBathroom+` WHERE name = ? ORDER BY created_at, id LIMIT 1`, name)
	l, err := scanSQLiteLocation(row)
	if err != nil || l == nil {
		return nil, err
	}
	return s.withReviews(ctx, l)
}

func (s *SQLiteStore) CreateLocation(ctx context.Context, loc model.Location) (*model.Location, error) {
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC()
	}
	if loc.Amenities == nil {
		loc.Amenities = model.AmenitySet{}
	}

	amenities, err := json.Marshal(loc.Amenities)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal amenities")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bathrooms (id, place_id, name, latitude, longitude, amenities, address, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loc.ID, nullString(loc.PlaceID), loc.Name, loc.Coordinate.Latitude, loc.Coordinate.Longitude,
		string(amenities), loc.Address, loc.Description, loc.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, eris.Wrapf(ErrDuplicate, "sqlite: place %s", loc.PlaceID)
		}
		return nil, eris.Wrap(err, "sqlite: insert bathroom")
	}

	loc.Reviews = nil
	return &loc, nil
}

func (s *SQLiteStore) AddReview(ctx context.Context, review model.Review) (*model.Review, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM bathrooms WHERE id = ?`, review.LocationID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: bathroom %s", review.LocationID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: check bathroom")
	}

	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	if review.Amenities == nil {
		review.Amenities = model.AmenitySet{}
	}

	amenities, err := json.Marshal(review.Amenities)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal amenities")
	}
	photos, err := json.Marshal(nonNilStrings(review.Photos))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal photos")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reviews (id, bathroom_id, rating, cleanliness, amenities, description, photos, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		review.ID, review.LocationID, review.Rating, review.Cleanliness,
		string(amenities), review.Description, string(photos), review.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert review for %s", review.LocationID)
	}
	return &review, nil
}

func (s *SQLiteStore) withReviews(ctx context.Context, l *model.Location) (*model.Location, error) {
	reviews, err := s.queryReviews(ctx,
		`SELECT id, bathroom_id, rating, cleanliness, amenities, description, photos, created_at
		 FROM reviews WHERE bathroom_id = ? ORDER BY created_at, id`, l.ID)
	if err != nil {
		return nil, err
	}
	l.Reviews = reviews
	return l, nil
}

func (s *SQLiteStore) queryReviews(ctx context.Context, query string, args ...any) ([]model.Review, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reviews")
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		var amenities, photos string
		var desc sql.NullString
		if err := rows.Scan(&r.ID, &r.LocationID, &r.Rating, &r.Cleanliness, &amenities, &desc, &photos, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review")
		}
		if err := json.Unmarshal([]byte(amenities), &r.Amenities); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal review amenities")
		}
		if err := json.Unmarshal([]byte(photos), &r.Photos); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal photos")
		}
		r.Description = stringPtr(desc)
		reviews = append(reviews, r)
	}
	return reviews, eris.Wrap(rows.Err(), "sqlite: list reviews iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

// scanSQLiteLocation returns nil, nil when the row does not exist.
func scanSQLiteLocation(row scannable) (*model.Location, error) {
	var l model.Location
	var placeID, address, desc sql.NullString
	var amenities string

	err := row.Scan(&l.ID, &placeID, &l.Name, &l.Coordinate.Latitude, &l.Coordinate.Longitude,
		&amenities, &address, &desc, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan bathroom")
	}

	if err := json.Unmarshal([]byte(amenities), &l.Amenities); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal amenities")
	}
	l.PlaceID = placeID.String
	l.Address = stringPtr(address)
	l.Description = stringPtr(desc)
	return &l, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// The driver may report either the primary or the extended result code.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE"))
}
