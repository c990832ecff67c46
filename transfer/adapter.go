// Package transfer abstracts asset movement behind one interface consumed
// by the escrow engine.
//
// Two mechanisms hide behind it: native value bundled with the triggering
// call, and pull-based fungible-token transfers that require a prior
// allowance. Implementations may hand control to externally supplied code
// (the asset's own transfer logic); the engine therefore completes all of
// its own balance bookkeeping before invoking an Adapter.
package transfer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/escrow/types"
)

// Adapter moves asset value into and out of escrow custody. Errors
// propagate as ledger-operation failures; the enclosing engine mutation is
// rolled back atomically, never retried.
type Adapter interface {
	// PullIn moves amount of asset from the payer into custody.
	//
	// For the native asset, attachedValue must equal amount: the funds
	// arrive bundled with the call. For a fungible token, attachedValue
	// must be zero and the payer must have pre-authorized a sufficient
	// allowance.
	PullIn(ctx context.Context, asset types.Asset, from common.Address, amount, attachedValue types.Amount) error

	// PushOut moves amount of asset out of custody to the recipient.
	PushOut(ctx context.Context, asset types.Asset, to common.Address, amount types.Amount) error
}
