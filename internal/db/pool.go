// Package db holds the Postgres pool abstraction shared by stores so that
// they can be unit-tested against pgxmock.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the subset of *pgxpool.Pool used by the stores. pgxmock's
// PgxPoolIface satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ForeignKeyViolation is the SQLSTATE Postgres reports when a referenced row
// is missing.
const ForeignKeyViolation = "23503"

// UniqueViolation is the SQLSTATE for a duplicate key.
const UniqueViolation = "23505"
