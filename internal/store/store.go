package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists domain events, game projections and revealed data in
// PostgreSQL. It holds no business logic; the projection builder owns all
// derivation.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a verified connection pool to the cache database. maxConns
// bounds the pool, which the rebuild fan-out and the API share; values <= 0
// fall back to pgx defaults.
func Connect(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}

	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	// Keep a couple of connections warm for the live ingestion path.
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Stats holds row counts for the resync CLI.
type Stats struct {
	Events      int64
	Projections int64
	Reveals     int64
}

// Stats returns current row counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM game_events),
			(SELECT COUNT(*) FROM game_projections),
			(SELECT COUNT(*) FROM revealed_data)
	`).Scan(&stats.Events, &stats.Projections, &stats.Reveals)
	if err != nil {
		return Stats{}, fmt.Errorf("count rows: %w", err)
	}
	return stats, nil
}
