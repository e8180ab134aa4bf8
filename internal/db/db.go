// Package db provides optional PostgreSQL storage for restaurant refresh history.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
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

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kb_runs (
	id      UUID PRIMARY KEY,
	run_id  UUID NOT NULL,
	slug    TEXT NOT NULL,
	ok      BOOLEAN NOT NULL,
	skipped BOOLEAN NOT NULL DEFAULT FALSE,
	kb_hash TEXT,
	error   TEXT,
	ran_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS kb_runs_slug_ran_at_idx ON kb_runs (slug, ran_at DESC);
`

// EnsureSchema creates the history table when it does not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create kb_runs schema: %w", err)
	}
	return nil
}

// RecordRun stores one restaurant outcome and returns the record ID
func (db *DB) RecordRun(ctx context.Context, rec RunRecord) (uuid.UUID, error) {
	if err := rec.Validate(); err != nil {
		return uuid.Nil, err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO kb_runs (id, run_id, slug, ok, skipped, kb_hash, error, ran_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)`,
		rec.ID, rec.RunID, rec.Slug, rec.OK, rec.Skipped, rec.KBHash, rec.Error, rec.RanAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record run for %s: %w", rec.Slug, err)
	}
	return rec.ID, nil
}

// RecentRuns returns up to limit records for slug, or for every slug when slug is empty,
// newest first
func (db *DB) RecentRuns(ctx context.Context, slug string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, slug, ok, skipped, COALESCE(kb_hash, ''), COALESCE(error, ''), ran_at
		 FROM kb_runs
		 WHERE $1 = '' OR slug = $1
		 ORDER BY ran_at DESC
		 LIMIT $2`,
		slug, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.RunID, &r.Slug, &r.OK, &r.Skipped, &r.KBHash, &r.Error, &r.RanAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastSuccess returns the newest successful record for slug, or nil when there is none
func (db *DB) LastSuccess(ctx context.Context, slug string) (*RunRecord, error) {
	var r RunRecord
	err := db.pool.QueryRow(ctx,
		`SELECT id, run_id, slug, ok, skipped, COALESCE(kb_hash, ''), COALESCE(error, ''), ran_at
		 FROM kb_runs
		 WHERE slug = $1 AND ok AND NOT skipped
		 ORDER BY ran_at DESC
		 LIMIT 1`,
		slug,
	).Scan(&r.ID, &r.RunID, &r.Slug, &r.OK, &r.Skipped, &r.KBHash, &r.Error, &r.RanAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last success for %s: %w", slug, err)
	}
	return &r, nil
}
