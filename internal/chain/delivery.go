package chain

import "github.com/ethereum/go-ethereum/core/types"

// DeliveryKind distinguishes the two ways the node delivers a log entry.
type DeliveryKind int

const (
	// DeliveryAdded is a live log entry newly included in a block.
	DeliveryAdded DeliveryKind = iota
	// DeliveryRemoved marks a previously delivered entry invalidated by a
	// chain reorganization.
	DeliveryRemoved
)

// Delivery tags a raw log entry with how it was delivered, so the ingestion
// and reorg paths are statically distinguishable.
type Delivery struct {
	Kind DeliveryKind
	Log  types.Log
}

// NewDelivery builds a Delivery from a raw subscription log entry.
func NewDelivery(lg types.Log) Delivery {
	if lg.Removed {
		return Delivery{Kind: DeliveryRemoved, Log: lg}
	}
	return Delivery{Kind: DeliveryAdded, Log: lg}
}
