package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bathroom-finder/internal/db"
	"github.com/sells-group/bathroom-finder/internal/geo"
	"github.com/sells-group/bathroom-finder/internal/model"
)

// PostgresStore implements Store using pgxpool and a PostGIS point column.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS bathrooms (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	place_id    TEXT UNIQUE,
	name        TEXT NOT NULL,
	geom        geometry(Point, 4326) NOT NULL,
	amenities   JSONB NOT NULL DEFAULT '[]',
	address     TEXT,
	description TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reviews (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	bathroom_id TEXT NOT NULL REFERENCES bathrooms(id),
	rating      SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
	cleanliness SMALLINT NOT NULL CHECK (cleanliness BETWEEN 1 AND 5),
	amenities   JSONB NOT NULL DEFAULT '[]',
	description TEXT,
	photos      JSONB NOT NULL DEFAULT '[]',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bathrooms_name ON bathrooms(name);
CREATE INDEX IF NOT EXISTS idx_bathrooms_geom ON bathrooms USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_reviews_bathroom_id ON reviews(bathroom_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const pgSelectBathroom = `SELECT id, place_id, name, ST_AsEWKB(geom), amenities, address, description, created_at FROM bathrooms`

const pgSelectReview = `SELECT id, bathroom_id, rating, cleanliness, amenities, description, photos, created_at FROM reviews`

func (s *PostgresStore) ListLocations(ctx context.Context) ([]model.Location, error) {
	rows, err := s.pool.Query(ctx, pgSelectBathroom+` ORDER BY created_at, id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list bathrooms")
	}
	defer rows.Close()

	locs := []model.Location{}
	for rows.Next() {
		l, err := scanPgLocation(rows)
		if err != nil {
			return nil, err
		}
		locs = append(locs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list bathrooms iterate")
	}

	reviews, err := s.queryReviews(ctx, pgSelectReview+` ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	attachReviews(locs, reviews)
	return locs, nil
}

func (s *PostgresStore) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	l, err := s.findOne(ctx, pgSelectBathroom+` WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, eris.Wrapf(ErrNotFound, "postgres: bathroom %s", id)
	}
	return l, nil
}

func (s *PostgresStore) FindLocationByPlaceID(ctx context.Context, placeID string) (*model.Location, error) {
	return s.findOne(ctx, pgSelectBathroom+` WHERE place_id = $1 LIMIT 1`, placeID)
}

func (s *PostgresStore) FindLocationByName(ctx context.Context, name string) (*model.Location, error) {
	return s.findOne(ctx, pgSelectBathroom+` WHERE name = $1 ORDER BY created_at, id LIMIT 1`, name)
}

func (s *PostgresStore) CreateLocation(ctx context.Context, loc model.Location) (*model.Location, error) {
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC()
	}
	if loc.Amenities == nil {
		loc.Amenities = model.AmenitySet{}
	}

	point, err := geo.EncodePoint(loc.Coordinate)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: encode location")
	}
	amenities, err := json.Marshal(loc.Amenities)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal amenities")
	}

	var placeID *string
	if loc.PlaceID != "" {
		placeID = &loc.PlaceID
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO bathrooms (id, place_id, name, geom, amenities, address, description, created_at)
		 VALUES ($1, $2, $3, ST_GeomFromEWKB($4), $5, $6, $7, $8)`,
		loc.ID, placeID, loc.Name, point, amenities, loc.Address, loc.Description, loc.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == db.UniqueViolation {
			return nil, eris.Wrapf(ErrDuplicate, "postgres: place %s", loc.PlaceID)
		}
		return nil, eris.Wrap(err, "postgres: insert bathroom")
	}

	loc.Reviews = nil
	return &loc, nil
}

func (s *PostgresStore) AddReview(ctx context.Context, review model.Review) (*model.Review, error) {
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
		return nil, eris.Wrap(err, "postgres: marshal amenities")
	}
	photos, err := json.Marshal(nonNilStrings(review.Photos))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal photos")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reviews (id, bathroom_id, rating, cleanliness, amenities, description, photos, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		review.ID, review.LocationID, review.Rating, review.Cleanliness,
		amenities, review.Description, photos, review.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == db.ForeignKeyViolation {
			return nil, eris.Wrapf(ErrNotFound, "postgres: bathroom %s", review.LocationID)
		}
		return nil, eris.Wrapf(err, "postgres: insert review for %s", review.LocationID)
	}
	return &review, nil
}

// findOne returns nil, nil when no row matches.
func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*model.Location, error) {
	l, err := scanPgLocation(s.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	reviews, err := s.queryReviews(ctx, pgSelectReview+` WHERE bathroom_id = $1 ORDER BY created_at, id`, l.ID)
	if err != nil {
		return nil, err
	}
	l.Reviews = reviews
	return l, nil
}

func (s *PostgresStore) queryReviews(ctx context.Context, query string, args ...any) ([]model.Review, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reviews")
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		var amenities, photos []byte
		if err := rows.Scan(&r.ID, &r.LocationID, &r.Rating, &r.Cleanliness, &amenities, &r.Description, &photos, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		if err := json.Unmarshal(amenities, &r.Amenities); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal review amenities")
		}
		if err := json.Unmarshal(photos, &r.Photos); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal photos")
		}
		reviews = append(reviews, r)
	}
	return reviews, eris.Wrap(rows.Err(), "postgres: list reviews iterate")
}

// scanPgLocation passes pgx.ErrNoRows through unwrapped so callers can test for it.
func scanPgLocation(row pgx.Row) (*model.Location, error) {
	var l model.Location
	var placeID *string
	var point, amenities []byte

	err := row.Scan(&l.ID, &placeID, &l.Name, &point, &amenities, &l.Address, &l.Description, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan bathroom")
	}

	l.Coordinate, err = geo.DecodePoint(point)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: bathroom %s", l.ID)
	}
	if err := json.Unmarshal(amenities, &l.Amenities); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal amenities")
	}
	if placeID != nil {
		l.PlaceID = *placeID
	}
	return &l, nil
}

// NewPostgresWithPool wraps an existing pool. The caller owns the pool's
// lifecycle unless closeFn is set via Close.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}
