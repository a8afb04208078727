package domain

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBoard(t *testing.T) {
	// Bits 0 and 2 set: cells (0,0) and (0,2).
	b, err := ParseBoard("5")
	require.NoError(t, err)

	assert.True(t, b.Cell(0, 0))
	assert.False(t, b.Cell(0, 1))
	assert.True(t, b.Cell(0, 2))
	assert.False(t, b.Cell(1, 0))
	assert.Equal(t, 2, b.Count())
}

func TestParseBoardInvalid(t *testing.T) {
	_, err := ParseBoard("not-a-number")
	assert.Error(t, err)

	_, err = ParseBoard("")
	assert.Error(t, err)
}

func TestBoardRowMajorLayout(t *testing.T) {
	// Bit 10 is the first cell of the second row.
	mask := new(big.Int).Lsh(big.NewInt(1), BoardSize)
	b := NewBoard(mask)

	assert.True(t, b.Cell(1, 0))
	assert.False(t, b.Cell(0, 0))

	grid := b.Grid()
	assert.True(t, grid[1][0])
	assert.False(t, grid[0][BoardSize-1])
	assert.Equal(t, 1, b.Count())
}

func TestBoardCountFullBoard(t *testing.T) {
	// All 100 cells set.
	mask := new(big.Int).Lsh(big.NewInt(1), BoardSize*BoardSize)
	mask.Sub(mask, big.NewInt(1))
	b := NewBoard(mask)

	assert.Equal(t, BoardSize*BoardSize, b.Count())
}

func TestBoardJSONRoundTrip(t *testing.T) {
	b, err := ParseBoard("1267650600228229401496703205376") // bit 100
	require.NoError(t, err)

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, `"1267650600228229401496703205376"`, string(data))

	var back Board
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, b.String(), back.String())
}

func TestNewBoardCopiesMask(t *testing.T) {
	mask := big.NewInt(7)
	b := NewBoard(mask)
	mask.SetInt64(0)

	assert.Equal(t, "7", b.String())
	assert.Equal(t, "7", b.Big().String())
}
