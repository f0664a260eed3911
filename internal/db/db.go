// Package db provides PostgreSQL storage for the run audit trail.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a run has no audit record.
var ErrNotFound = errors.New("run not found")

// querier is the subset of pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool  querier
	close func()
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool, close: pool.Close}, nil
}

// Close closes the connection pool. It is safe on a nil DB.
func (db *DB) Close() {
	if db != nil && db.close != nil {
		db.close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS recruiter_runs (
	id                TEXT PRIMARY KEY,
	recruiter_email   TEXT NOT NULL,
	recruiter_website TEXT NOT NULL,
	status            TEXT NOT NULL,
	phase_reached     TEXT NOT NULL DEFAULT '',
	data_source       TEXT NOT NULL DEFAULT '',
	error_reason      TEXT NOT NULL DEFAULT '',
	total_cost        DOUBLE PRECISION NOT NULL DEFAULT 0,
	stats             JSONB,
	started_at        TIMESTAMPTZ NOT NULL,
	finished_at       TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS recruiter_run_stages (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES recruiter_runs(id) ON DELETE CASCADE,
	step        TEXT NOT NULL,
	stage       TEXT NOT NULL,
	visit       INT NOT NULL,
	outcome     TEXT NOT NULL,
	action      TEXT NOT NULL,
	move        TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	count       INT NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_recruiter_run_stages_run_id ON recruiter_run_stages(run_id);
`

// EnsureSchema creates the audit tables when they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}
