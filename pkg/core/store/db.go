package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// Schema creates the run table used by ValuationRepo
const Schema = `
CREATE TABLE IF NOT EXISTS valuations (
	id             UUID PRIMARY KEY,
	ticker         TEXT NOT NULL,
	company_name   TEXT,
	mode           TEXT NOT NULL,
	valuation_date DATE NOT NULL,
	per_share      DOUBLE PRECISION,
	run_json       JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS valuations_ticker_idx ON valuations (ticker, created_at DESC);
`

// InitDB initializes the connection pool. An empty dbURL falls back to DATABASE_URL.
func InitDB(ctx context.Context, dbURL string) error {
	var err error
	once.Do(func() {
		if dbURL == "" {
			dbURL = os.Getenv("DATABASE_URL")
		}
		if dbURL == "" {
			err = fmt.Errorf("DATABASE_URL environment variable not set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
	})
	return err
}

// EnsureSchema creates the valuations table if missing
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	if p == nil {
		return fmt.Errorf("database pool not initialized")
	}
	if _, err := p.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// GetPool returns the database connection pool
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the database connection pool
func Close() {
	if pool != nil {
		pool.Close()
	}
}
