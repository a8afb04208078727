package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Lezek123/battleships-indexer/internal/domain"
)

// Reveal returns the externally submitted reveal row for a game, or nil if
// none exists. The reveal service owns writes; the cache only cross-checks.
func (s *Store) Reveal(ctx context.Context, gameIndex uint64) (*domain.Reveal, error) {
	var (
		ships string
		seed  string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT ships, seed FROM revealed_data WHERE game_index = $1`,
		int64(gameIndex)).Scan(&ships, &seed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query reveal %d: %w", gameIndex, err)
	}

	board, err := domain.ParseBoard(ships)
	if err != nil {
		return nil, fmt.Errorf("reveal %d: %w", gameIndex, err)
	}
	return &domain.Reveal{GameIndex: gameIndex, Ships: board, Seed: seed}, nil
}

// DeleteReveal removes a stale reveal row. Absent rows are a no-op.
func (s *Store) DeleteReveal(ctx context.Context, gameIndex uint64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM revealed_data WHERE game_index = $1`, int64(gameIndex)); err != nil {
		return fmt.Errorf("delete reveal %d: %w", gameIndex, err)
	}
	return nil
}
