package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lezek123/battleships-indexer/internal/domain"
)

type fakeHistory struct {
	events []domain.Event
	err    error
}

func (f *fakeHistory) History(_ context.Context, gameIndex uint64) ([]domain.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Event
	for _, ev := range f.events {
		if ev.GameIndex == gameIndex {
			out = append(out, ev)
		}
	}
	return out, nil
}

type fakeProjections struct {
	upserted *domain.Projection
	deleted  []uint64
}

func (f *fakeProjections) UpsertProjection(_ context.Context, p *domain.Projection) error {
	f.upserted = p
	return nil
}

func (f *fakeProjections) DeleteProjection(_ context.Context, gameIndex uint64) error {
	f.deleted = append(f.deleted, gameIndex)
	return nil
}

type fakeReveals struct {
	reveal  *domain.Reveal
	deleted []uint64
}

func (f *fakeReveals) Reveal(_ context.Context, gameIndex uint64) (*domain.Reveal, error) {
	if f.reveal != nil && f.reveal.GameIndex == gameIndex {
		return f.reveal, nil
	}
	return nil, nil
}

func (f *fakeReveals) DeleteReveal(_ context.Context, gameIndex uint64) error {
	f.deleted = append(f.deleted, gameIndex)
	return nil
}

func event(t *testing.T, kind domain.Kind, gameIndex, block uint64, logIndex uint, payload any) domain.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return domain.Event{
		Identity:    fmt.Sprintf("%s-%d-%d", kind, block, logIndex),
		Kind:        kind,
		GameIndex:   gameIndex,
		BlockNumber: block,
		LogIndex:    logIndex,
		Payload:     raw,
	}
}

func board(t *testing.T, s string) *domain.Board {
	t.Helper()
	b, err := domain.ParseBoard(s)
	require.NoError(t, err)
	return b
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fullHistory(t *testing.T) []domain.Event {
	t.Helper()
	return []domain.Event{
		event(t, domain.KindGameCreated, 1, 100, 0, domain.CreatedPayload{
			Creator:             "0xcreator",
			CreationHash:        "0xhash",
			Prize:               dec("2"),
			BombCost:            dec("0.1"),
			JoinTimeoutBlocks:   20,
			RevealTimeoutBlocks: 30,
		}),
		event(t, domain.KindBombsPlaced, 1, 150, 0, domain.BombsPayload{
			Bomber:       "0xbomber",
			BombsBoard:   board(t, "6"),
			PaidBombCost: dec("0.2"),
		}),
		event(t, domain.KindShipsRevealed, 1, 160, 0, domain.RevealedPayload{
			ShipsBoard: board(t, "3"),
			SunkShips:  1,
		}),
		event(t, domain.KindGameFinished, 1, 170, 0, domain.FinishedPayload{
			CreatorClaim: dec("1.5"),
			BomberClaim:  dec("0.7"),
		}),
	}
}

func TestRebuildFullLifecycle(t *testing.T) {
	projections := &fakeProjections{}
	b := New(&fakeHistory{events: fullHistory(t)}, projections, &fakeReveals{})

	p, err := b.Rebuild(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Same(t, p, projections.upserted)

	assert.Equal(t, uint64(1), p.GameIndex)
	assert.Equal(t, domain.StatusFinished, p.Status)
	assert.Equal(t, "0xcreator", p.Creator)
	assert.Equal(t, "0xbomber", p.Bomber)
	assert.Equal(t, "2", p.Prize.String())
	assert.Equal(t, "0.2", p.PaidBombCost.String())

	// Deadlines derive from the emitting block plus the configured window.
	assert.Equal(t, uint64(120), p.JoinTimeoutBlock)
	assert.Equal(t, uint64(180), p.RevealTimeoutBlock)

	assert.Equal(t, "6", p.BombsBoard.String())
	assert.Equal(t, "3", p.ShipsBoard.String())
	assert.Equal(t, uint8(1), p.SunkShips)

	assert.Equal(t, "1.5", p.CreatorClaim.String())
	assert.Equal(t, "0.7", p.BomberClaim.String())
	assert.Equal(t, domain.ClaimStandard, p.ClaimReason)
	assert.Equal(t, uint64(170), p.LastEventBlock)
}

// Arrival order must never matter: the builder sorts by (block, tx, log index)
// before folding.
func TestRebuildShuffledHistory(t *testing.T) {
	reference := &fakeProjections{}
	b := New(&fakeHistory{events: fullHistory(t)}, reference, &fakeReveals{})
	want, err := b.Rebuild(context.Background(), 1)
	require.NoError(t, err)

	for seed := int64(0); seed < 5; seed++ {
		shuffled := fullHistory(t)
		rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got, err := New(&fakeHistory{events: shuffled}, &fakeProjections{}, &fakeReveals{}).
			Rebuild(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRebuildEmptyHistoryDeletesProjection(t *testing.T) {
	projections := &fakeProjections{}
	b := New(&fakeHistory{}, projections, &fakeReveals{})

	p, err := b.Rebuild(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, []uint64{7}, projections.deleted)
	assert.Nil(t, projections.upserted)
}

func TestRebuildStatusMonotonic(t *testing.T) {
	history := fullHistory(t)
	ranks := map[domain.Status]int{
		domain.StatusNew:        0,
		domain.StatusInProgress: 1,
		domain.StatusFinished:   2,
	}

	prev := -1
	for n := 1; n <= len(history); n++ {
		p, err := New(&fakeHistory{events: history[:n]}, &fakeProjections{}, &fakeReveals{}).
			Rebuild(context.Background(), 1)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.GreaterOrEqual(t, ranks[p.Status], prev)
		prev = ranks[p.Status]
	}
}

func TestRebuildJoinTimeoutClaim(t *testing.T) {
	history := []domain.Event{
		fullHistory(t)[0],
		event(t, domain.KindJoinTimeout, 1, 130, 0, domain.JoinTimeoutPayload{
			CreatorClaim: dec("2"),
		}),
	}

	p, err := New(&fakeHistory{events: history}, &fakeProjections{}, &fakeReveals{}).
		Rebuild(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFinished, p.Status)
	assert.Equal(t, domain.ClaimJoinTimeout, p.ClaimReason)
	assert.Equal(t, "2", p.CreatorClaim.String())
	assert.True(t, p.BomberClaim.IsZero())
}

func TestRebuildRevealTimeoutClaim(t *testing.T) {
	history := append(fullHistory(t)[:2],
		event(t, domain.KindRevealTimeout, 1, 200, 0, domain.RevealTimeoutPayload{
			BomberClaim: dec("2.1"),
		}))

	p, err := New(&fakeHistory{events: history}, &fakeProjections{}, &fakeReveals{}).
		Rebuild(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFinished, p.Status)
	assert.Equal(t, domain.ClaimRevealTimeout, p.ClaimReason)
	assert.Equal(t, "2.1", p.BomberClaim.String())
}

// A reorg can leave bombs without their creation event. The fold tolerates
// the gap: no reveal deadline, but no error either.
func TestRebuildBombsWithoutCreation(t *testing.T) {
	history := []domain.Event{fullHistory(t)[1]}

	p, err := New(&fakeHistory{events: history}, &fakeProjections{}, &fakeReveals{}).
		Rebuild(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusInProgress, p.Status)
	assert.Equal(t, "0xbomber", p.Bomber)
	assert.Zero(t, p.RevealTimeoutBlock)
}

func TestRebuildMalformedPayload(t *testing.T) {
	projections := &fakeProjections{}
	history := []domain.Event{{
		Identity:    "bad",
		Kind:        domain.KindGameCreated,
		GameIndex:   1,
		BlockNumber: 100,
		Payload:     json.RawMessage(`{"prize": "not-a-number"}`),
	}}

	_, err := New(&fakeHistory{events: history}, projections, &fakeReveals{}).
		Rebuild(context.Background(), 1)
	require.Error(t, err)
	assert.Nil(t, projections.upserted)
}

func TestRebuildDeletesStaleReveal(t *testing.T) {
	ships := board(t, "3")
	seed := "0x5eed"

	history := fullHistory(t)
	reveals := &fakeReveals{reveal: &domain.Reveal{GameIndex: 1, Ships: ships, Seed: seed}}

	// The stored creation hash ("0xhash") cannot match the commitment.
	_, err := New(&fakeHistory{events: history}, &fakeProjections{}, reveals).
		Rebuild(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, reveals.deleted)
}

func TestRebuildKeepsMatchingReveal(t *testing.T) {
	ships := board(t, "3")
	seed := "0x5eed"

	created := domain.CreatedPayload{
		Creator:             "0xcreator",
		CreationHash:        domain.RevealCommitment(ships, seed),
		Prize:               dec("2"),
		BombCost:            dec("0.1"),
		JoinTimeoutBlocks:   20,
		RevealTimeoutBlocks: 30,
	}
	history := []domain.Event{event(t, domain.KindGameCreated, 1, 100, 0, created)}
	reveals := &fakeReveals{reveal: &domain.Reveal{GameIndex: 1, Ships: ships, Seed: seed}}

	_, err := New(&fakeHistory{events: history}, &fakeProjections{}, reveals).
		Rebuild(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, reveals.deleted)
}
