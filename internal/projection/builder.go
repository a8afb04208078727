package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Lezek123/battleships-indexer/internal/domain"
)

// EventHistory reads a game's stored event history.
type EventHistory interface {
	History(ctx context.Context, gameIndex uint64) ([]domain.Event, error)
}

// ProjectionStore persists materialized game records.
type ProjectionStore interface {
	UpsertProjection(ctx context.Context, p *domain.Projection) error
	DeleteProjection(ctx context.Context, gameIndex uint64) error
}

// RevealStore reads and invalidates externally revealed data.
type RevealStore interface {
	Reveal(ctx context.Context, gameIndex uint64) (*domain.Reveal, error)
	DeleteReveal(ctx context.Context, gameIndex uint64) error
}

// Builder rebuilds game projections by folding each game's full ordered
// event history. Rebuild always re-reads current history rather than
// trusting caller-supplied deltas, which is what makes reorg handling and
// concurrent triggers safe: a later rebuild supersedes an earlier one no
// matter how their triggers interleaved.
type Builder struct {
	events      EventHistory
	projections ProjectionStore
	reveals     RevealStore
}

// New creates a Builder.
func New(events EventHistory, projections ProjectionStore, reveals RevealStore) *Builder {
	return &Builder{events: events, projections: projections, reveals: reveals}
}

// Rebuild recomputes one game's projection from scratch. A game with no
// remaining events has its projection deleted and nil is returned.
func (b *Builder) Rebuild(ctx context.Context, gameIndex uint64) (*domain.Projection, error) {
	history, err := b.events.History(ctx, gameIndex)
	if err != nil {
		return nil, fmt.Errorf("load history for game %d: %w", gameIndex, err)
	}

	if len(history) == 0 {
		if err := b.projections.DeleteProjection(ctx, gameIndex); err != nil {
			return nil, fmt.Errorf("delete projection %d: %w", gameIndex, err)
		}
		slog.Debug("projection deleted, no events remain", "game_index", gameIndex)
		return nil, nil
	}

	slices.SortFunc(history, domain.CompareOrder)

	proj, err := fold(gameIndex, history)
	if err != nil {
		return nil, err
	}

	if err := b.checkReveal(ctx, proj); err != nil {
		return nil, err
	}

	if err := b.projections.UpsertProjection(ctx, proj); err != nil {
		return nil, fmt.Errorf("upsert projection %d: %w", gameIndex, err)
	}
	return proj, nil
}

// fold derives the projection from an ordered history. It is pure: the same
// sequence always produces the same result, independent of any previously
// stored projection.
func fold(gameIndex uint64, history []domain.Event) (*domain.Projection, error) {
	p := &domain.Projection{GameIndex: gameIndex, Status: domain.StatusNew}
	created := false

	for _, ev := range history {
		switch ev.Kind {
		case domain.KindGameCreated:
			var pl domain.CreatedPayload
			if err := json.Unmarshal(ev.Payload, &pl); err != nil {
				return nil, malformed(ev, err)
			}
			p.Creator = pl.Creator
			p.CreationHash = pl.CreationHash
			p.Prize = pl.Prize
			p.BombCost = pl.BombCost
			p.JoinTimeoutBlocks = pl.JoinTimeoutBlocks
			p.RevealTimeoutBlocks = pl.RevealTimeoutBlocks
			p.JoinTimeoutBlock = ev.BlockNumber + pl.JoinTimeoutBlocks
			created = true

		case domain.KindBombsPlaced:
			var pl domain.BombsPayload
			if err := json.Unmarshal(ev.Payload, &pl); err != nil {
				return nil, malformed(ev, err)
			}
			p.Status = p.Status.Advance(domain.StatusInProgress)
			p.Bomber = pl.Bomber
			p.BombsBoard = pl.BombsBoard
			p.PaidBombCost = pl.PaidBombCost
			// The reveal deadline needs the timeout count folded in from
			// the creation event earlier in this same pass.
			if created {
				p.RevealTimeoutBlock = ev.BlockNumber + p.RevealTimeoutBlocks
			} else {
				slog.Warn("bombs placed with no creation event in history, skipping reveal deadline",
					"game_index", gameIndex,
					"identity", ev.Identity,
				)
			}

		case domain.KindShipsRevealed:
			var pl domain.RevealedPayload
			if err := json.Unmarshal(ev.Payload, &pl); err != nil {
				return nil, malformed(ev, err)
			}
			p.Status = p.Status.Advance(domain.StatusInProgress)
			p.ShipsBoard = pl.ShipsBoard
			p.SunkShips = pl.SunkShips

		case domain.KindGameFinished:
			var pl domain.FinishedPayload
			if err := json.Unmarshal(ev.Payload, &pl); err != nil {
				return nil, malformed(ev, err)
			}
			p.Status = p.Status.Advance(domain.StatusFinished)
			p.CreatorClaim = pl.CreatorClaim
			p.BomberClaim = pl.BomberClaim
			p.ClaimReason = domain.ClaimStandard

		case domain.KindJoinTimeout:
			var pl domain.JoinTimeoutPayload
			if err := json.Unmarshal(ev.Payload, &pl); err != nil {
				return nil, malformed(ev, err)
			}
			p.Status = p.Status.Advance(domain.StatusFinished)
			p.CreatorClaim = pl.CreatorClaim
			p.ClaimReason = domain.ClaimJoinTimeout

		case domain.KindRevealTimeout:
			var pl domain.RevealTimeoutPayload
			if err := json.Unmarshal(ev.Payload, &pl); err != nil {
				return nil, malformed(ev, err)
			}
			p.Status = p.Status.Advance(domain.StatusFinished)
			p.BomberClaim = pl.BomberClaim
			p.ClaimReason = domain.ClaimRevealTimeout

		default:
			slog.Warn("unknown event kind in history, skipping",
				"game_index", gameIndex,
				"kind", ev.Kind,
				"identity", ev.Identity,
			)
		}

		p.LastEventBlock = ev.BlockNumber
	}

	return p, nil
}

// checkReveal deletes the game's reveal row when its commitment no longer
// matches the projection's creation hash, which happens when a reorg swapped
// out the creation event the reveal was submitted against.
func (b *Builder) checkReveal(ctx context.Context, p *domain.Projection) error {
	rev, err := b.reveals.Reveal(ctx, p.GameIndex)
	if err != nil {
		return fmt.Errorf("load reveal %d: %w", p.GameIndex, err)
	}
	if rev == nil {
		return nil
	}
	if domain.RevealCommitment(rev.Ships, rev.Seed) == p.CreationHash {
		return nil
	}

	slog.Warn("revealed data no longer matches creation hash, deleting",
		"game_index", p.GameIndex,
		"creation_hash", p.CreationHash,
	)
	if err := b.reveals.DeleteReveal(ctx, p.GameIndex); err != nil {
		return fmt.Errorf("delete stale reveal %d: %w", p.GameIndex, err)
	}
	return nil
}

func malformed(ev domain.Event, err error) error {
	return fmt.Errorf("event %s (%s): malformed payload: %w", ev.Identity, ev.Kind, err)
}
