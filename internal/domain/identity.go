package domain

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EventIdentity computes the stable identifier of one raw log entry:
// keccak256(blockHash || txHash || logIndex). Two deliveries of the same
// underlying entry yield the same identity no matter which path delivered
// them; a post-reorg re-inclusion carries a new block hash and therefore a
// new identity.
func EventIdentity(blockHash, txHash common.Hash, logIndex uint) string {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(logIndex))
	return crypto.Keccak256Hash(blockHash.Bytes(), txHash.Bytes(), idx[:]).Hex()
}
