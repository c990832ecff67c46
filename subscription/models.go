// Package subscription defines the escrow subscription records.
package subscription

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/escrow/types"
)

// Subscription is an escrow record keyed by its 32-byte fingerprint: a
// caller-supplied hash uniquely representing the off-chain subscription
// terms. Provider, Consumer and Asset are immutable once created; only
// Balance changes over the record's lifetime. A record is never deleted —
// a zero balance is a valid terminal state.
type Subscription struct {
	types.Entity
	Hash     common.Hash    `json:"hash"`
	Provider common.Address `json:"provider"`
	Consumer common.Address `json:"consumer"`
	Asset    types.Asset    `json:"asset"`
	Balance  types.Amount   `json:"balance"`
}

// Exists reports whether the record names a created subscription. The
// zero-value hash is reserved as the "absent" marker.
func (s *Subscription) Exists() bool {
	return s != nil && s.Hash != (common.Hash{})
}
