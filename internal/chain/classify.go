package chain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Lezek123/battleships-indexer/internal/domain"
)

// gameEventsABI describes the six events emitted by the Battleships contract.
const gameEventsABI = `[
	{"type":"event","name":"GameCreated","inputs":[
		{"name":"gameIndex","type":"uint256","indexed":true},
		{"name":"creator","type":"address","indexed":false},
		{"name":"creationHash","type":"bytes32","indexed":false},
		{"name":"prize","type":"uint256","indexed":false},
		{"name":"bombCost","type":"uint256","indexed":false},
		{"name":"joinTimeoutBlocks","type":"uint256","indexed":false},
		{"name":"revealTimeoutBlocks","type":"uint256","indexed":false}]},
	{"type":"event","name":"BombsPlaced","inputs":[
		{"name":"gameIndex","type":"uint256","indexed":true},
		{"name":"bomber","type":"address","indexed":false},
		{"name":"bombsBoard","type":"uint256","indexed":false},
		{"name":"paidBombCost","type":"uint256","indexed":false}]},
	{"type":"event","name":"ShipsRevealed","inputs":[
		{"name":"gameIndex","type":"uint256","indexed":true},
		{"name":"shipsBoard","type":"uint256","indexed":false},
		{"name":"sunkShips","type":"uint8","indexed":false}]},
	{"type":"event","name":"GameFinished","inputs":[
		{"name":"gameIndex","type":"uint256","indexed":true},
		{"name":"creatorClaim","type":"uint256","indexed":false},
		{"name":"bomberClaim","type":"uint256","indexed":false}]},
	{"type":"event","name":"JoinTimeout","inputs":[
		{"name":"gameIndex","type":"uint256","indexed":true},
		{"name":"creatorClaim","type":"uint256","indexed":false}]},
	{"type":"event","name":"RevealTimeout","inputs":[
		{"name":"gameIndex","type":"uint256","indexed":true},
		{"name":"bomberClaim","type":"uint256","indexed":false}]}
]`

var kindToName = map[domain.Kind]string{
	domain.KindGameCreated:   "GameCreated",
	domain.KindBombsPlaced:   "BombsPlaced",
	domain.KindShipsRevealed: "ShipsRevealed",
	domain.KindGameFinished:  "GameFinished",
	domain.KindJoinTimeout:   "JoinTimeout",
	domain.KindRevealTimeout: "RevealTimeout",
}

// Classifier maps raw log entries from the game contract to typed domain
// events. It is pure: the same log always classifies the same way.
type Classifier struct {
	contract common.Address
	abi      abi.ABI
	kinds    map[common.Hash]domain.Kind
}

// NewClassifier builds a Classifier for the given contract address.
func NewClassifier(contract common.Address) (*Classifier, error) {
	parsed, err := abi.JSON(strings.NewReader(gameEventsABI))
	if err != nil {
		return nil, fmt.Errorf("parse game events abi: %w", err)
	}
	kinds := make(map[common.Hash]domain.Kind, len(kindToName))
	for kind, name := range kindToName {
		kinds[parsed.Events[name].ID] = kind
	}
	return &Classifier{contract: contract, abi: parsed, kinds: kinds}, nil
}

// Identify reports whether a log entry is a game event and, if so, which game
// it belongs to. It inspects only the address and topics, so it works for
// removed entries whose data no longer needs decoding.
func (c *Classifier) Identify(lg types.Log) (gameIndex uint64, ok bool) {
	if lg.Address != c.contract || len(lg.Topics) < 2 {
		return 0, false
	}
	if _, known := c.kinds[lg.Topics[0]]; !known {
		return 0, false
	}
	idx := lg.Topics[1].Big()
	if idx.Sign() <= 0 || !idx.IsUint64() {
		return 0, false
	}
	return idx.Uint64(), true
}

// Classify maps a raw log entry to a typed domain event. ok is false for
// entries that are not game events; err is set when a recognized event
// carries a payload that cannot be decoded.
func (c *Classifier) Classify(lg types.Log) (ev *domain.Event, ok bool, err error) {
	gameIndex, ok := c.Identify(lg)
	if !ok {
		return nil, false, nil
	}
	kind := c.kinds[lg.Topics[0]]

	payload, err := c.decodePayload(kind, lg.Data)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("encode %s payload: %w", kind, err)
	}

	return &domain.Event{
		Identity:    domain.EventIdentity(lg.BlockHash, lg.TxHash, lg.Index),
		Kind:        kind,
		GameIndex:   gameIndex,
		BlockNumber: lg.BlockNumber,
		TxIndex:     lg.TxIndex,
		LogIndex:    lg.Index,
		Payload:     raw,
	}, true, nil
}

func (c *Classifier) decodePayload(kind domain.Kind, data []byte) (any, error) {
	vals, err := c.abi.Unpack(kindToName[kind], data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.KindGameCreated:
		creator, err := toAddress(vals, 0)
		if err != nil {
			return nil, err
		}
		creationHash, err := toHash(vals, 1)
		if err != nil {
			return nil, err
		}
		prize, err := toBig(vals, 2)
		if err != nil {
			return nil, err
		}
		bombCost, err := toBig(vals, 3)
		if err != nil {
			return nil, err
		}
		joinTimeout, err := toBig(vals, 4)
		if err != nil {
			return nil, err
		}
		revealTimeout, err := toBig(vals, 5)
		if err != nil {
			return nil, err
		}
		return domain.CreatedPayload{
			Creator:             creator.Hex(),
			CreationHash:        creationHash.Hex(),
			Prize:               domain.WeiToEther(prize),
			BombCost:            domain.WeiToEther(bombCost),
			JoinTimeoutBlocks:   joinTimeout.Uint64(),
			RevealTimeoutBlocks: revealTimeout.Uint64(),
		}, nil

	case domain.KindBombsPlaced:
		bomber, err := toAddress(vals, 0)
		if err != nil {
			return nil, err
		}
		board, err := toBig(vals, 1)
		if err != nil {
			return nil, err
		}
		paid, err := toBig(vals, 2)
		if err != nil {
			return nil, err
		}
		return domain.BombsPayload{
			Bomber:       bomber.Hex(),
			BombsBoard:   domain.NewBoard(board),
			PaidBombCost: domain.WeiToEther(paid),
		}, nil

	case domain.KindShipsRevealed:
		board, err := toBig(vals, 0)
		if err != nil {
			return nil, err
		}
		sunk, err := toUint8(vals, 1)
		if err != nil {
			return nil, err
		}
		return domain.RevealedPayload{
			ShipsBoard: domain.NewBoard(board),
			SunkShips:  sunk,
		}, nil

	case domain.KindGameFinished:
		creatorClaim, err := toBig(vals, 0)
		if err != nil {
			return nil, err
		}
		bomberClaim, err := toBig(vals, 1)
		if err != nil {
			return nil, err
		}
		return domain.FinishedPayload{
			CreatorClaim: domain.WeiToEther(creatorClaim),
			BomberClaim:  domain.WeiToEther(bomberClaim),
		}, nil

	case domain.KindJoinTimeout:
		claim, err := toBig(vals, 0)
		if err != nil {
			return nil, err
		}
		return domain.JoinTimeoutPayload{CreatorClaim: domain.WeiToEther(claim)}, nil

	case domain.KindRevealTimeout:
		claim, err := toBig(vals, 0)
		if err != nil {
			return nil, err
		}
		return domain.RevealTimeoutPayload{BomberClaim: domain.WeiToEther(claim)}, nil
	}

	return nil, fmt.Errorf("unknown event kind %q", kind)
}

func toAddress(vals []any, i int) (common.Address, error) {
	if i >= len(vals) {
		return common.Address{}, fmt.Errorf("missing field %d", i)
	}
	v, ok := vals[i].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("field %d: expected address, got %T", i, vals[i])
	}
	return v, nil
}

func toHash(vals []any, i int) (common.Hash, error) {
	if i >= len(vals) {
		return common.Hash{}, fmt.Errorf("missing field %d", i)
	}
	v, ok := vals[i].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("field %d: expected bytes32, got %T", i, vals[i])
	}
	return common.Hash(v), nil
}

func toBig(vals []any, i int) (*big.Int, error) {
	if i >= len(vals) {
		return nil, fmt.Errorf("missing field %d", i)
	}
	v, ok := vals[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("field %d: expected uint256, got %T", i, vals[i])
	}
	return v, nil
}

func toUint8(vals []any, i int) (uint8, error) {
	if i >= len(vals) {
		return 0, fmt.Errorf("missing field %d", i)
	}
	v, ok := vals[i].(uint8)
	if !ok {
		return 0, fmt.Errorf("field %d: expected uint8, got %T", i, vals[i])
	}
	return v, nil
}
