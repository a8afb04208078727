package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Lezek123/battleships-indexer/internal/chain"
	"github.com/Lezek123/battleships-indexer/internal/domain"
)

// Source is the narrow view of the chain node the orchestrator needs.
type Source interface {
	HistoricalLogs(ctx context.Context) ([]types.Log, error)
	LogsInRange(ctx context.Context, from, to uint64) ([]types.Log, error)
	SubscribeLogs(ctx context.Context, ch chan<- types.Log) (ethereum.Subscription, error)
	CurrentBlock(ctx context.Context) (uint64, error)
}

// Classifier maps raw logs to domain events.
type Classifier interface {
	Classify(lg types.Log) (ev *domain.Event, ok bool, err error)
}

// EventStore is the subset of the store the orchestrator writes through.
type EventStore interface {
	AppendEvent(ctx context.Context, ev domain.Event) (bool, error)
	PruneExcept(ctx context.Context, identities []string, gameIndexes []uint64) error
}

// RemovalHandler processes reorg "log removed" notifications.
type RemovalHandler interface {
	HandleRemoved(ctx context.Context, lg types.Log) error
}

// Config configures the orchestrator.
type Config struct {
	// ConfirmationDepth is how many blocks behind head the live
	// subscription starts, so shallow reorgs are replayed through it
	// instead of waiting for the next full resync.
	ConfirmationDepth uint64

	// ResyncInterval is how often a full resync replaces the live
	// subscription (self-heal for anything missed while it was down).
	ResyncInterval time.Duration

	// RetryDelay is the base delay between restart attempts (linear backoff).
	RetryDelay time.Duration

	// MaxRetries bounds consecutive failed restarts (0 = unbounded).
	MaxRetries int

	// DryRun classifies and counts without writing (resync CLI).
	DryRun bool
}

// Orchestrator owns the two control paths of the cache: full resynchronization
// against the node's complete history, and the live log subscription. Its only
// recovery action for source-wide failures is tearing everything down and
// running the resync path again.
type Orchestrator struct {
	cfg        Config
	source     Source
	classifier Classifier
	store      EventStore
	queue      *RebuildQueue
	reorgs     RemovalHandler
}

// New creates an Orchestrator.
func New(cfg Config, source Source, classifier Classifier, store EventStore, queue *RebuildQueue, reorgs RemovalHandler) *Orchestrator {
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = 10 * time.Minute
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Orchestrator{
		cfg:        cfg,
		source:     source,
		classifier: classifier,
		store:      store,
		queue:      queue,
		reorgs:     reorgs,
	}
}

// ResyncResult summarizes one full resynchronization.
type ResyncResult struct {
	TotalLogs  int
	LiveEvents int
	NewEvents  int
	LiveGames  int
	Duration   time.Duration
}

// Resync reconciles the cache against the node's full history: classify and
// append everything (duplicates are no-ops), prune whatever no longer exists
// upstream, then rebuild every live game.
func (o *Orchestrator) Resync(ctx context.Context) (*ResyncResult, error) {
	start := time.Now()

	logs, err := o.source.HistoricalLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch historical logs: %w", err)
	}

	liveIDs := make([]string, 0, len(logs))
	games := make(map[uint64]struct{})
	newEvents := 0

	for _, lg := range logs {
		if lg.Removed {
			continue
		}
		ev, ok, err := o.classifier.Classify(lg)
		if err != nil {
			slog.Warn("skipping malformed log",
				"block", lg.BlockNumber,
				"tx", lg.TxHash,
				"err", err,
			)
			continue
		}
		if !ok {
			continue
		}

		liveIDs = append(liveIDs, ev.Identity)
		games[ev.GameIndex] = struct{}{}

		if o.cfg.DryRun {
			continue
		}
		inserted, err := o.store.AppendEvent(ctx, *ev)
		if err != nil {
			return nil, fmt.Errorf("append event: %w", err)
		}
		if inserted {
			newEvents++
		}
	}

	gameIndexes := make([]uint64, 0, len(games))
	for idx := range games {
		gameIndexes = append(gameIndexes, idx)
	}
	slices.Sort(gameIndexes)

	if !o.cfg.DryRun {
		if err := o.store.PruneExcept(ctx, liveIDs, gameIndexes); err != nil {
			return nil, fmt.Errorf("prune: %w", err)
		}
		for _, idx := range gameIndexes {
			o.queue.Enqueue(ctx, idx)
		}
		o.queue.Wait()
	}

	result := &ResyncResult{
		TotalLogs:  len(logs),
		LiveEvents: len(liveIDs),
		NewEvents:  newEvents,
		LiveGames:  len(games),
		Duration:   time.Since(start),
	}

	slog.Info("resync complete",
		"total_logs", result.TotalLogs,
		"live_events", result.LiveEvents,
		"new_events", result.NewEvents,
		"live_games", result.LiveGames,
		"dry_run", o.cfg.DryRun,
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result, nil
}

// errResyncDue signals that the periodic resync timer fired and the current
// subscription should be replaced.
var errResyncDue = errors.New("periodic resync due")

// Run executes the orchestrator's control loop until the context is
// cancelled: resync, stream live events, and on any stream error tear the
// subscription down and start over with a fresh resync.
func (o *Orchestrator) Run(ctx context.Context) error {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := o.Resync(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			attempt++
			if o.cfg.MaxRetries > 0 && attempt >= o.cfg.MaxRetries {
				return fmt.Errorf("max retries (%d) reached: %w", o.cfg.MaxRetries, err)
			}
			slog.Warn("resync failed, retrying",
				"attempt", attempt,
				"err", err,
			)
			if err := o.backoff(ctx, attempt); err != nil {
				return err
			}
			continue
		}
		attempt = 0

		// The interval counts from the end of the last successful resync, so
		// an error-driven resync pushes the periodic one back instead of
		// being followed by an immediate second pass.
		timer := time.NewTimer(o.cfg.ResyncInterval)
		err := o.stream(ctx, timer.C)
		timer.Stop()
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, errResyncDue):
			slog.Info("periodic resync starting")
		default:
			attempt++
			if o.cfg.MaxRetries > 0 && attempt >= o.cfg.MaxRetries {
				return fmt.Errorf("max retries (%d) reached: %w", o.cfg.MaxRetries, err)
			}
			slog.Warn("live subscription lost, restarting",
				"attempt", attempt,
				"err", err,
			)
			if err := o.backoff(ctx, attempt); err != nil {
				return err
			}
		}
	}
}

// stream opens a live subscription, replays a confirmation-depth margin
// behind head through the ingestion path, and routes deliveries until the
// subscription fails or a resync is due. Each call owns its subscription:
// acquire new, release old.
func (o *Orchestrator) stream(ctx context.Context, resyncDue <-chan time.Time) error {
	head, err := o.source.CurrentBlock(ctx)
	if err != nil {
		return fmt.Errorf("current block: %w", err)
	}
	from := uint64(0)
	if head > o.cfg.ConfirmationDepth {
		from = head - o.cfg.ConfirmationDepth
	}

	ch := make(chan types.Log, 256)
	sub, err := o.source.SubscribeLogs(ctx, ch)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	slog.Info("live subscription open",
		"head", head,
		"from_block", from,
		"confirmation_depth", o.cfg.ConfirmationDepth,
	)

	// The subscription only delivers logs from blocks mined after it was
	// established. The margin behind head, plus whatever landed between the
	// resync snapshot and now, must be fetched explicitly. Appends are
	// idempotent, so overlap with the resync or the subscription is harmless.
	catchUp, err := o.source.LogsInRange(ctx, from, head)
	if err != nil {
		return fmt.Errorf("catch-up logs: %w", err)
	}
	for _, lg := range catchUp {
		o.handleDelivery(ctx, chain.NewDelivery(lg))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return fmt.Errorf("subscription: %w", err)
		case <-resyncDue:
			return errResyncDue
		case lg := <-ch:
			o.handleDelivery(ctx, chain.NewDelivery(lg))
		}
	}
}

// handleDelivery routes one live delivery. Per-event failures are logged and
// contained; the next periodic resync repairs anything a failed write left
// behind.
func (o *Orchestrator) handleDelivery(ctx context.Context, d chain.Delivery) {
	switch d.Kind {
	case chain.DeliveryRemoved:
		if err := o.reorgs.HandleRemoved(ctx, d.Log); err != nil {
			slog.Error("reorg removal failed",
				"block", d.Log.BlockNumber,
				"tx", d.Log.TxHash,
				"err", err,
			)
		}

	default:
		ev, ok, err := o.classifier.Classify(d.Log)
		if err != nil {
			slog.Warn("skipping malformed log",
				"block", d.Log.BlockNumber,
				"tx", d.Log.TxHash,
				"err", err,
			)
			return
		}
		if !ok {
			return
		}

		inserted, err := o.store.AppendEvent(ctx, *ev)
		if err != nil {
			slog.Error("append event failed",
				"identity", ev.Identity,
				"game_index", ev.GameIndex,
				"err", err,
			)
			return
		}
		if !inserted {
			slog.Debug("duplicate event ignored", "identity", ev.Identity)
			return
		}

		slog.Info("event accepted",
			"kind", ev.Kind,
			"game_index", ev.GameIndex,
			"block", ev.BlockNumber,
		)
		o.queue.Enqueue(ctx, ev.GameIndex)
	}
}

func (o *Orchestrator) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(attempt) * o.cfg.RetryDelay
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
