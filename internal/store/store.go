package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DB wraps the Postgres connection used by the repositories.
type DB struct {
	*sqlx.DB
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &DB{DB: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           UUID PRIMARY KEY,
	algorithm    TEXT NOT NULL,
	seed         BIGINT NOT NULL,
	makespan     DOUBLE PRECISION NOT NULL,
	iterations   INTEGER NOT NULL,
	evaluations  INTEGER NOT NULL,
	duration_ms  DOUBLE PRECISION NOT NULL,
	unscheduled  INTEGER NOT NULL,
	history      DOUBLE PRECISION[] NOT NULL,
	schedule     JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at_idx ON runs (created_at DESC);
`

// Migrate creates the tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}
