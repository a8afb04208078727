package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Lezek123/battleships-indexer/internal/domain"
)

const projectionColumns = `
	game_index, status, creator, creation_hash, prize, bomb_cost,
	join_timeout_blocks, reveal_timeout_blocks, join_timeout_block,
	bomber, bombs_board, paid_bomb_cost, reveal_timeout_block,
	ships_board, sunk_ships, creator_claim, bomber_claim, claim_reason,
	last_event_block`

// UpsertProjection writes the full projection row, overwriting any previous
// version. The row is always replaced whole; nothing patches it in place.
func (s *Store) UpsertProjection(ctx context.Context, p *domain.Projection) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO game_projections (
			game_index, status, creator, creation_hash, prize, bomb_cost,
			join_timeout_blocks, reveal_timeout_blocks, join_timeout_block,
			bomber, bombs_board, paid_bomb_cost, reveal_timeout_block,
			ships_board, sunk_ships, creator_claim, bomber_claim, claim_reason,
			last_event_block, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW())
		ON CONFLICT (game_index) DO UPDATE SET
			status = EXCLUDED.status,
			creator = EXCLUDED.creator,
			creation_hash = EXCLUDED.creation_hash,
			prize = EXCLUDED.prize,
			bomb_cost = EXCLUDED.bomb_cost,
			join_timeout_blocks = EXCLUDED.join_timeout_blocks,
			reveal_timeout_blocks = EXCLUDED.reveal_timeout_blocks,
			join_timeout_block = EXCLUDED.join_timeout_block,
			bomber = EXCLUDED.bomber,
			bombs_board = EXCLUDED.bombs_board,
			paid_bomb_cost = EXCLUDED.paid_bomb_cost,
			reveal_timeout_block = EXCLUDED.reveal_timeout_block,
			ships_board = EXCLUDED.ships_board,
			sunk_ships = EXCLUDED.sunk_ships,
			creator_claim = EXCLUDED.creator_claim,
			bomber_claim = EXCLUDED.bomber_claim,
			claim_reason = EXCLUDED.claim_reason,
			last_event_block = EXCLUDED.last_event_block,
			updated_at = NOW()
	`,
		int64(p.GameIndex),
		string(p.Status),
		p.Creator,
		p.CreationHash,
		p.Prize.String(),
		p.BombCost.String(),
		int64(p.JoinTimeoutBlocks),
		int64(p.RevealTimeoutBlocks),
		int64(p.JoinTimeoutBlock),
		p.Bomber,
		boardString(p.BombsBoard),
		p.PaidBombCost.String(),
		int64(p.RevealTimeoutBlock),
		boardString(p.ShipsBoard),
		int16(p.SunkShips),
		p.CreatorClaim.String(),
		p.BomberClaim.String(),
		string(p.ClaimReason),
		int64(p.LastEventBlock),
	)
	if err != nil {
		return fmt.Errorf("upsert projection %d: %w", p.GameIndex, err)
	}
	return nil
}

// DeleteProjection removes a game's projection. Absent rows are a no-op.
func (s *Store) DeleteProjection(ctx context.Context, gameIndex uint64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM game_projections WHERE game_index = $1`, int64(gameIndex)); err != nil {
		return fmt.Errorf("delete projection %d: %w", gameIndex, err)
	}
	return nil
}

// Projection returns one game's projection, or nil if it does not exist.
func (s *Store) Projection(ctx context.Context, gameIndex uint64) (*domain.Projection, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+projectionColumns+` FROM game_projections WHERE game_index = $1`,
		int64(gameIndex))
	p, err := scanProjection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query projection %d: %w", gameIndex, err)
	}
	return p, nil
}

// Filter narrows ListProjections results. Zero values match everything.
type Filter struct {
	Status  domain.Status
	Player  string // matches creator or bomber
	Page    int
	PerPage int
}

// ListProjections returns projections matching the filter, newest game first.
func (s *Store) ListProjections(ctx context.Context, f Filter) ([]domain.Projection, error) {
	query := `SELECT ` + projectionColumns + ` FROM game_projections WHERE 1=1`
	args := []any{}

	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if f.Player != "" {
		args = append(args, f.Player)
		query += fmt.Sprintf(` AND (creator = $%d OR bomber = $%d)`, len(args), len(args))
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 {
		perPage = 25
	}
	args = append(args, perPage, (page-1)*perPage)
	query += fmt.Sprintf(` ORDER BY game_index DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query projections: %w", err)
	}
	defer rows.Close()

	var projections []domain.Projection
	for rows.Next() {
		p, err := scanProjection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan projection: %w", err)
		}
		projections = append(projections, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read projections: %w", err)
	}
	return projections, nil
}

func scanProjection(row pgx.Row) (*domain.Projection, error) {
	var (
		p                                 domain.Projection
		gameIdx                           int64
		status, claimReason               string
		prize, bombCost, paidBombCost     string
		creatorClaim, bomberClaim         string
		joinBlocks, revealBlocks          int64
		joinBlock, revealBlock, lastBlock int64
		bombsBoard, shipsBoard            string
		sunkShips                         int16
	)
	err := row.Scan(
		&gameIdx, &status, &p.Creator, &p.CreationHash, &prize, &bombCost,
		&joinBlocks, &revealBlocks, &joinBlock,
		&p.Bomber, &bombsBoard, &paidBombCost, &revealBlock,
		&shipsBoard, &sunkShips, &creatorClaim, &bomberClaim, &claimReason,
		&lastBlock,
	)
	if err != nil {
		return nil, err
	}

	p.GameIndex = uint64(gameIdx)
	p.Status = domain.Status(status)
	p.ClaimReason = domain.ClaimReason(claimReason)
	p.JoinTimeoutBlocks = uint64(joinBlocks)
	p.RevealTimeoutBlocks = uint64(revealBlocks)
	p.JoinTimeoutBlock = uint64(joinBlock)
	p.RevealTimeoutBlock = uint64(revealBlock)
	p.LastEventBlock = uint64(lastBlock)
	p.SunkShips = uint8(sunkShips)

	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&p.Prize, prize},
		{&p.BombCost, bombCost},
		{&p.PaidBombCost, paidBombCost},
		{&p.CreatorClaim, creatorClaim},
		{&p.BomberClaim, bomberClaim},
	} {
		d, err := decimal.NewFromString(field.src)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", field.src, err)
		}
		*field.dst = d
	}

	if p.BombsBoard, err = parseBoard(bombsBoard); err != nil {
		return nil, err
	}
	if p.ShipsBoard, err = parseBoard(shipsBoard); err != nil {
		return nil, err
	}
	return &p, nil
}

func boardString(b *domain.Board) string {
	if b == nil {
		return ""
	}
	return b.String()
}

func parseBoard(s string) (*domain.Board, error) {
	if s == "" {
		return nil, nil
	}
	return domain.ParseBoard(s)
}
