package domain

import (
	"encoding/json"
	"fmt"
	"math/big"
	mathbits "math/bits"
)

// BoardSize is the side length of the square game board.
const BoardSize = 10

// Board is a bitmask over the board cells. Bits are row-major with the
// least-significant bit at cell (0, 0), matching the contract encoding.
type Board struct {
	bits big.Int
}

// NewBoard wraps a raw bitmask in a Board.
func NewBoard(mask *big.Int) *Board {
	b := &Board{}
	b.bits.Set(mask)
	return b
}

// ParseBoard parses a base-10 bitmask string.
func ParseBoard(s string) (*Board, error) {
	b := &Board{}
	if _, ok := b.bits.SetString(s, 10); !ok {
		return nil, fmt.Errorf("invalid board bitmask %q", s)
	}
	return b, nil
}

// Big returns a copy of the underlying bitmask.
func (b *Board) Big() *big.Int {
	return new(big.Int).Set(&b.bits)
}

// Cell reports whether the cell at (row, col) is set.
func (b *Board) Cell(row, col int) bool {
	return b.bits.Bit(row*BoardSize+col) == 1
}

// Grid unpacks the bitmask into a two-dimensional grid.
func (b *Board) Grid() [BoardSize][BoardSize]bool {
	var grid [BoardSize][BoardSize]bool
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			grid[row][col] = b.Cell(row, col)
		}
	}
	return grid
}

// Count returns the number of set cells.
func (b *Board) Count() int {
	n := 0
	for _, w := range b.bits.Bits() {
		n += mathbits.OnesCount(uint(w))
	}
	return n
}

func (b *Board) String() string {
	return b.bits.String()
}

// MarshalJSON encodes the bitmask as a quoted base-10 string.
func (b *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.bits.String())
}

// UnmarshalJSON decodes a quoted base-10 bitmask string.
func (b *Board) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseBoard(s)
	if err != nil {
		return err
	}
	b.bits.Set(&parsed.bits)
	return nil
}
