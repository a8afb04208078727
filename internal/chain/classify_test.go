package chain

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lezek123/battleships-indexer/internal/domain"
)

var (
	testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testCreator  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testBomber   = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(testContract)
	require.NoError(t, err)
	return c
}

// packLog builds a log entry for the named event, packing the non-indexed
// arguments the way the contract would.
func packLog(t *testing.T, c *Classifier, name string, gameIndex uint64, args ...any) types.Log {
	t.Helper()
	data, err := c.abi.Events[name].Inputs.NonIndexed().Pack(args...)
	require.NoError(t, err)

	return types.Log{
		Address: testContract,
		Topics: []common.Hash{
			c.abi.Events[name].ID,
			common.BigToHash(new(big.Int).SetUint64(gameIndex)),
		},
		Data:        data,
		BlockNumber: 100,
		TxIndex:     2,
		Index:       7,
		BlockHash:   common.HexToHash("0xb10c"),
		TxHash:      common.HexToHash("0x7869"),
	}
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func TestClassifyGameCreated(t *testing.T) {
	c := newTestClassifier(t)
	var creationHash [32]byte
	copy(creationHash[:], common.HexToHash("0xc0ffee").Bytes())

	lg := packLog(t, c, "GameCreated", 42,
		testCreator, creationHash, ether(2), ether(1), big.NewInt(20), big.NewInt(30))

	ev, ok, err := c.Classify(lg)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, domain.KindGameCreated, ev.Kind)
	assert.Equal(t, uint64(42), ev.GameIndex)
	assert.Equal(t, uint64(100), ev.BlockNumber)
	assert.Equal(t, uint(2), ev.TxIndex)
	assert.Equal(t, uint(7), ev.LogIndex)
	assert.Equal(t, domain.EventIdentity(lg.BlockHash, lg.TxHash, lg.Index), ev.Identity)

	var pl domain.CreatedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &pl))
	assert.Equal(t, testCreator.Hex(), pl.Creator)
	assert.Equal(t, common.Hash(creationHash).Hex(), pl.CreationHash)
	assert.Equal(t, "2", pl.Prize.String())
	assert.Equal(t, "1", pl.BombCost.String())
	assert.Equal(t, uint64(20), pl.JoinTimeoutBlocks)
	assert.Equal(t, uint64(30), pl.RevealTimeoutBlocks)
}

func TestClassifyBombsPlaced(t *testing.T) {
	c := newTestClassifier(t)
	lg := packLog(t, c, "BombsPlaced", 42, testBomber, big.NewInt(0b101), ether(1))

	ev, ok, err := c.Classify(lg)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.KindBombsPlaced, ev.Kind)

	var pl domain.BombsPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &pl))
	assert.Equal(t, testBomber.Hex(), pl.Bomber)
	assert.Equal(t, "5", pl.BombsBoard.String())
	assert.Equal(t, "1", pl.PaidBombCost.String())
}

func TestClassifyShipsRevealed(t *testing.T) {
	c := newTestClassifier(t)
	lg := packLog(t, c, "ShipsRevealed", 42, big.NewInt(0b1110), uint8(3))

	ev, ok, err := c.Classify(lg)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.KindShipsRevealed, ev.Kind)

	var pl domain.RevealedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &pl))
	assert.Equal(t, "14", pl.ShipsBoard.String())
	assert.Equal(t, uint8(3), pl.SunkShips)
}

func TestClassifyFinishKinds(t *testing.T) {
	c := newTestClassifier(t)

	t.Run("game finished", func(t *testing.T) {
		lg := packLog(t, c, "GameFinished", 42, ether(3), ether(1))
		ev, ok, err := c.Classify(lg)
		require.NoError(t, err)
		require.True(t, ok)

		var pl domain.FinishedPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &pl))
		assert.Equal(t, domain.KindGameFinished, ev.Kind)
		assert.Equal(t, "3", pl.CreatorClaim.String())
		assert.Equal(t, "1", pl.BomberClaim.String())
	})

	t.Run("join timeout", func(t *testing.T) {
		lg := packLog(t, c, "JoinTimeout", 42, ether(2))
		ev, ok, err := c.Classify(lg)
		require.NoError(t, err)
		require.True(t, ok)

		var pl domain.JoinTimeoutPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &pl))
		assert.Equal(t, domain.KindJoinTimeout, ev.Kind)
		assert.Equal(t, "2", pl.CreatorClaim.String())
	})

	t.Run("reveal timeout", func(t *testing.T) {
		lg := packLog(t, c, "RevealTimeout", 42, ether(4))
		ev, ok, err := c.Classify(lg)
		require.NoError(t, err)
		require.True(t, ok)

		var pl domain.RevealTimeoutPayload
		require.NoError(t, json.Unmarshal(ev.Payload, &pl))
		assert.Equal(t, domain.KindRevealTimeout, ev.Kind)
		assert.Equal(t, "4", pl.BomberClaim.String())
	})
}

func TestClassifyRejectsForeignLogs(t *testing.T) {
	c := newTestClassifier(t)

	t.Run("wrong contract", func(t *testing.T) {
		lg := packLog(t, c, "JoinTimeout", 42, ether(1))
		lg.Address = common.HexToAddress("0x9999999999999999999999999999999999999999")
		_, ok, err := c.Classify(lg)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown topic", func(t *testing.T) {
		lg := packLog(t, c, "JoinTimeout", 42, ether(1))
		lg.Topics[0] = common.HexToHash("0xdead")
		_, ok, err := c.Classify(lg)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing game index topic", func(t *testing.T) {
		lg := packLog(t, c, "JoinTimeout", 42, ether(1))
		lg.Topics = lg.Topics[:1]
		_, ok, err := c.Classify(lg)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("zero game index", func(t *testing.T) {
		lg := packLog(t, c, "JoinTimeout", 0, ether(1))
		_, ok, err := c.Classify(lg)
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestClassifyMalformedPayload(t *testing.T) {
	c := newTestClassifier(t)
	lg := packLog(t, c, "GameCreated", 42,
		testCreator, [32]byte{}, ether(1), ether(1), big.NewInt(10), big.NewInt(10))
	lg.Data = lg.Data[:8] // truncate

	_, ok, err := c.Classify(lg)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestIdentify(t *testing.T) {
	c := newTestClassifier(t)
	lg := packLog(t, c, "BombsPlaced", 1337, testBomber, big.NewInt(1), ether(1))

	idx, ok := c.Identify(lg)
	assert.True(t, ok)
	assert.Equal(t, uint64(1337), idx)

	// Identify works without decodable data, which is what removed log
	// notifications deliver.
	lg.Data = nil
	idx, ok = c.Identify(lg)
	assert.True(t, ok)
	assert.Equal(t, uint64(1337), idx)
}
