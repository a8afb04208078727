package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Lezek123/battleships-indexer/internal/domain"
)

// AppendEvent inserts an event if its identity is not already present.
// Re-appending the same identity is a no-op, so ingestion is idempotent
// across the backfill and live delivery paths.
func (s *Store) AppendEvent(ctx context.Context, ev domain.Event) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO game_events (identity, kind, game_index, block_number, tx_index, log_index, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identity) DO NOTHING
	`,
		ev.Identity,
		string(ev.Kind),
		int64(ev.GameIndex),
		int64(ev.BlockNumber),
		int64(ev.TxIndex),
		int64(ev.LogIndex),
		[]byte(ev.Payload),
	)
	if err != nil {
		return false, fmt.Errorf("append event %s: %w", ev.Identity, err)
	}
	return tag.RowsAffected() > 0, nil
}

// History returns all events for a game in (block, tx, log) order.
func (s *Store) History(ctx context.Context, gameIndex uint64) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT identity, kind, game_index, block_number, tx_index, log_index, payload
		FROM game_events
		WHERE game_index = $1
		ORDER BY block_number, tx_index, log_index
	`, int64(gameIndex))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []domain.Event
	for rows.Next() {
		var (
			ev                           domain.Event
			kind                         string
			gameIdx, block, txIdx, lgIdx int64
			payload                      []byte
		)
		if err := rows.Scan(&ev.Identity, &kind, &gameIdx, &block, &txIdx, &lgIdx, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = domain.Kind(kind)
		ev.GameIndex = uint64(gameIdx)
		ev.BlockNumber = uint64(block)
		ev.TxIndex = uint(txIdx)
		ev.LogIndex = uint(lgIdx)
		ev.Payload = payload
		history = append(history, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return history, nil
}

// RemoveEvent deletes one event by identity. Absent identities are a no-op.
func (s *Store) RemoveEvent(ctx context.Context, identity string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM game_events WHERE identity = $1`, identity)
	if err != nil {
		return false, fmt.Errorf("remove event %s: %w", identity, err)
	}
	return tag.RowsAffected() > 0, nil
}

// PruneExcept deletes every event whose identity is not in identities, and
// every projection and reveal whose game index is not in gameIndexes. Only
// the full reconciliation path calls this.
func (s *Store) PruneExcept(ctx context.Context, identities []string, gameIndexes []uint64) error {
	if identities == nil {
		identities = []string{}
	}
	idxs := make([]int64, len(gameIndexes))
	for i, gi := range gameIndexes {
		idxs[i] = int64(gi)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM game_events WHERE NOT (identity = ANY($1))`, identities); err != nil {
			return fmt.Errorf("prune events: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM game_projections WHERE NOT (game_index = ANY($1))`, idxs); err != nil {
			return fmt.Errorf("prune projections: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM revealed_data WHERE NOT (game_index = ANY($1))`, idxs); err != nil {
			return fmt.Errorf("prune reveals: %w", err)
		}
		return nil
	})
}
