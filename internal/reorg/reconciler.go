package reorg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Lezek123/battleships-indexer/internal/domain"
)

// Classifier identifies game events without decoding their payloads.
type Classifier interface {
	Identify(lg types.Log) (gameIndex uint64, ok bool)
}

// EventRemover deletes one stored event by identity.
type EventRemover interface {
	RemoveEvent(ctx context.Context, identity string) (bool, error)
}

// RebuildQueue schedules a projection rebuild for a game.
type RebuildQueue interface {
	Enqueue(ctx context.Context, gameIndex uint64)
}

// Reconciler handles "log removed" notifications from the node. Removing the
// invalidated event and rebuilding from the remaining history is the whole
// recovery; if the same log position is re-included after the reorg it
// arrives with a new block hash, a new identity, and is ingested as a brand
// new event.
type Reconciler struct {
	classifier Classifier
	store      EventRemover
	rebuilds   RebuildQueue
}

// New creates a Reconciler.
func New(classifier Classifier, store EventRemover, rebuilds RebuildQueue) *Reconciler {
	return &Reconciler{classifier: classifier, store: store, rebuilds: rebuilds}
}

// HandleRemoved processes one removed log entry. Entries that are not game
// events, or that were never accepted, are ignored.
func (r *Reconciler) HandleRemoved(ctx context.Context, lg types.Log) error {
	gameIndex, ok := r.classifier.Identify(lg)
	if !ok {
		return nil
	}

	identity := domain.EventIdentity(lg.BlockHash, lg.TxHash, lg.Index)
	removed, err := r.store.RemoveEvent(ctx, identity)
	if err != nil {
		return fmt.Errorf("remove reorged event %s: %w", identity, err)
	}
	if !removed {
		slog.Debug("reorged event was never stored, ignoring",
			"identity", identity,
			"game_index", gameIndex,
		)
		return nil
	}

	slog.Info("event removed by reorg",
		"identity", identity,
		"game_index", gameIndex,
		"block", lg.BlockNumber,
	)
	r.rebuilds.Enqueue(ctx, gameIndex)
	return nil
}
