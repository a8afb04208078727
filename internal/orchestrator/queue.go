package orchestrator

import (
	"context"
	"log/slog"
	"sync"
)

// RebuildFunc recomputes one game's projection.
type RebuildFunc func(ctx context.Context, gameIndex uint64) error

// RebuildQueue serializes rebuilds per game index: at most one rebuild per
// game is in flight, and requests arriving while one runs coalesce into a
// single follow-up run. Because a rebuild always re-reads current history,
// only the latest request matters. Different games run independently, bounded
// by a global concurrency limit.
type RebuildQueue struct {
	rebuild RebuildFunc
	sem     chan struct{}

	mu      sync.Mutex
	running map[uint64]bool
	pending map[uint64]bool
	wg      sync.WaitGroup
}

// NewRebuildQueue creates a queue running at most limit rebuilds at once.
func NewRebuildQueue(limit int, rebuild RebuildFunc) *RebuildQueue {
	if limit <= 0 {
		limit = 8
	}
	return &RebuildQueue{
		rebuild: rebuild,
		sem:     make(chan struct{}, limit),
		running: make(map[uint64]bool),
		pending: make(map[uint64]bool),
	}
}

// Enqueue schedules a rebuild for the game. If one is already in flight the
// request coalesces into it; Enqueue never blocks on the rebuild itself.
func (q *RebuildQueue) Enqueue(ctx context.Context, gameIndex uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running[gameIndex] {
		q.pending[gameIndex] = true
		return
	}
	q.running[gameIndex] = true
	q.wg.Add(1)
	go q.run(ctx, gameIndex)
}

func (q *RebuildQueue) run(ctx context.Context, gameIndex uint64) {
	defer q.wg.Done()

	q.sem <- struct{}{}
	defer func() { <-q.sem }()

	for {
		if err := q.rebuild(ctx, gameIndex); err != nil {
			slog.Error("rebuild failed", "game_index", gameIndex, "err", err)
		}

		q.mu.Lock()
		if q.pending[gameIndex] {
			delete(q.pending, gameIndex)
			q.mu.Unlock()
			continue
		}
		delete(q.running, gameIndex)
		q.mu.Unlock()
		return
	}
}

// Wait blocks until every rebuild enqueued so far has completed.
func (q *RebuildQueue) Wait() {
	q.wg.Wait()
}
