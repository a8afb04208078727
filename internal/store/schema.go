package store

import "context"

// InitSchema creates the cache tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS game_events (
			identity TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			game_index BIGINT NOT NULL,
			block_number BIGINT NOT NULL,
			tx_index BIGINT NOT NULL,
			log_index BIGINT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_game_events_order
			ON game_events(game_index, block_number, tx_index, log_index);

		CREATE TABLE IF NOT EXISTS game_projections (
			game_index BIGINT PRIMARY KEY,
			status TEXT NOT NULL,
			creator TEXT NOT NULL DEFAULT '',
			creation_hash TEXT NOT NULL DEFAULT '',
			prize TEXT NOT NULL DEFAULT '0',
			bomb_cost TEXT NOT NULL DEFAULT '0',
			join_timeout_blocks BIGINT NOT NULL DEFAULT 0,
			reveal_timeout_blocks BIGINT NOT NULL DEFAULT 0,
			join_timeout_block BIGINT NOT NULL DEFAULT 0,
			bomber TEXT NOT NULL DEFAULT '',
			bombs_board TEXT NOT NULL DEFAULT '',
			paid_bomb_cost TEXT NOT NULL DEFAULT '0',
			reveal_timeout_block BIGINT NOT NULL DEFAULT 0,
			ships_board TEXT NOT NULL DEFAULT '',
			sunk_ships SMALLINT NOT NULL DEFAULT 0,
			creator_claim TEXT NOT NULL DEFAULT '0',
			bomber_claim TEXT NOT NULL DEFAULT '0',
			claim_reason TEXT NOT NULL DEFAULT '',
			last_event_block BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_game_projections_status ON game_projections(status);
		CREATE INDEX IF NOT EXISTS idx_game_projections_creator ON game_projections(creator);
		CREATE INDEX IF NOT EXISTS idx_game_projections_bomber ON game_projections(bomber);

		CREATE TABLE IF NOT EXISTS revealed_data (
			game_index BIGINT PRIMARY KEY,
			ships TEXT NOT NULL,
			seed TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
	`

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return err
	}
	return nil
}
