package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of decimal places kept for display amounts.
const AmountPlaces = 8

// WeiToEther converts a base-unit amount to ether, rounded half-up to
// AmountPlaces. Amounts are non-negative, so decimal's round-half-away-from-
// zero is round-half-up here.
func WeiToEther(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -18).Round(AmountPlaces)
}
