// Package receipt defines the persisted lifecycle event records.
//
// Every successful mutating operation appends exactly one receipt: the
// durable form of the notifications the engine also dispatches to plugins.
package receipt

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/types"
)

// Kind names the lifecycle event a receipt records.
type Kind string

const (
	KindProviderRegistered  Kind = "provider_registered"
	KindSubscriptionCreated Kind = "subscription_created"
	KindFundsDeposit        Kind = "funds_deposit"
	KindFundsWithdrawn      Kind = "funds_withdrawn"
	KindFundsRefund         Kind = "funds_refund"
)

// Receipt is the side-effect record of one successful state transition.
type Receipt struct {
	types.Entity
	ID       id.ReceiptID   `json:"id"`
	Kind     Kind           `json:"kind"`
	Provider common.Address `json:"provider"`
	Hash     common.Hash    `json:"hash,omitempty"`
	Consumer common.Address `json:"consumer,omitempty"`
	Asset    types.Asset    `json:"token,omitempty"`
	Amount   types.Amount   `json:"amount,omitempty"`
	URL      string         `json:"url,omitempty"`
}
