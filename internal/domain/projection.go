package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a game. Transitions only move forward.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

func (s Status) rank() int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusFinished:
		return 2
	}
	return 0
}

// Advance returns the later of the two statuses. Folding with Advance keeps
// status monotonic regardless of event mix.
func (s Status) Advance(to Status) Status {
	if to.rank() > s.rank() {
		return to
	}
	return s
}

// ClaimReason records why a finished game paid out.
type ClaimReason string

const (
	ClaimStandard      ClaimReason = "standard"
	ClaimJoinTimeout   ClaimReason = "join_timeout"
	ClaimRevealTimeout ClaimReason = "reveal_timeout"
)

// Projection is the materialized view of one game, produced only as a fold
// over the game's ordered event history. It is always recomputed whole,
// never patched field by field.
type Projection struct {
	GameIndex uint64
	Status    Status

	// Creation attributes (GameCreated).
	Creator             string
	CreationHash        string
	Prize               decimal.Decimal
	BombCost            decimal.Decimal
	JoinTimeoutBlocks   uint64
	RevealTimeoutBlocks uint64
	JoinTimeoutBlock    uint64

	// Progress attributes (BombsPlaced).
	Bomber             string
	BombsBoard         *Board
	PaidBombCost       decimal.Decimal
	RevealTimeoutBlock uint64

	// Reveal attributes (ShipsRevealed).
	ShipsBoard *Board
	SunkShips  uint8

	// Completion attributes (GameFinished / timeout claims).
	CreatorClaim decimal.Decimal
	BomberClaim  decimal.Decimal
	ClaimReason  ClaimReason

	// LastEventBlock is a staleness marker, not used for correctness.
	LastEventBlock uint64
}

// SurvivingShips counts ship cells that were not hit by a bomb. Returns 0
// until the ships are revealed.
func (p *Projection) SurvivingShips() int {
	if p.ShipsBoard == nil {
		return 0
	}
	survivors := 0
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if !p.ShipsBoard.Cell(row, col) {
				continue
			}
			if p.BombsBoard != nil && p.BombsBoard.Cell(row, col) {
				continue
			}
			survivors++
		}
	}
	return survivors
}

// Reveal is the externally submitted secret data for a game. The cache only
// cross-checks it against the projection's creation hash and deletes rows
// that a reorg has made stale.
type Reveal struct {
	GameIndex uint64
	Ships     *Board
	Seed      string
}

// RevealCommitment computes the creation-hash commitment for a revealed
// (ships, seed) pair: keccak256(ships as bytes32 || seed).
func RevealCommitment(ships *Board, seed string) string {
	shipsWord := common.BigToHash(ships.Big())
	seedWord := common.HexToHash(seed)
	return crypto.Keccak256Hash(shipsWord.Bytes(), seedWord.Bytes()).Hex()
}
