package domain

import (
	"cmp"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Kind identifies the type of a game event emitted by the contract.
type Kind string

const (
	KindGameCreated   Kind = "game_created"
	KindBombsPlaced   Kind = "bombs_placed"
	KindShipsRevealed Kind = "ships_revealed"
	KindGameFinished  Kind = "game_finished"
	KindJoinTimeout   Kind = "join_timeout"
	KindRevealTimeout Kind = "reveal_timeout"
)

// Event is one accepted log entry from the game contract. Events are
// append-only: they are written once by ingestion and deleted only by reorg
// removal or full-resync pruning, never mutated.
type Event struct {
	Identity    string
	Kind        Kind
	GameIndex   uint64
	BlockNumber uint64
	TxIndex     uint
	LogIndex    uint
	Payload     json.RawMessage
}

// CompareOrder orders events by (block number, transaction index, log index),
// the total order of a game's history. Arrival order is never used.
func CompareOrder(a, b Event) int {
	if c := cmp.Compare(a.BlockNumber, b.BlockNumber); c != 0 {
		return c
	}
	if c := cmp.Compare(a.TxIndex, b.TxIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.LogIndex, b.LogIndex)
}

// CreatedPayload is the payload of a GameCreated event.
type CreatedPayload struct {
	Creator             string          `json:"creator"`
	CreationHash        string          `json:"creationHash"`
	Prize               decimal.Decimal `json:"prize"`
	BombCost            decimal.Decimal `json:"bombCost"`
	JoinTimeoutBlocks   uint64          `json:"joinTimeoutBlocks"`
	RevealTimeoutBlocks uint64          `json:"revealTimeoutBlocks"`
}

// BombsPayload is the payload of a BombsPlaced event.
type BombsPayload struct {
	Bomber       string          `json:"bomber"`
	BombsBoard   *Board          `json:"bombsBoard"`
	PaidBombCost decimal.Decimal `json:"paidBombCost"`
}

// RevealedPayload is the payload of a ShipsRevealed event.
type RevealedPayload struct {
	ShipsBoard *Board `json:"shipsBoard"`
	SunkShips  uint8  `json:"sunkShips"`
}

// FinishedPayload is the payload of a GameFinished event.
type FinishedPayload struct {
	CreatorClaim decimal.Decimal `json:"creatorClaim"`
	BomberClaim  decimal.Decimal `json:"bomberClaim"`
}

// JoinTimeoutPayload is the payload of a JoinTimeout event.
type JoinTimeoutPayload struct {
	CreatorClaim decimal.Decimal `json:"creatorClaim"`
}

// RevealTimeoutPayload is the payload of a RevealTimeout event.
type RevealTimeoutPayload struct {
	BomberClaim decimal.Decimal `json:"bomberClaim"`
}
