// Package bank provides an in-process reference implementation of the
// transfer.Adapter interface: a multi-asset custody bank with per-account
// balances and ERC-20-style allowances.
//
// It exists for embedded deployments and tests. The observer hook hands
// control to caller-supplied code in the middle of a transfer, the same
// way a token contract's transfer logic can re-enter the ledger on chain.
package bank

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/escrow/transfer"
	"github.com/xraph/escrow/types"
)

// Sentinel errors surfaced by bank transfers.
var (
	ErrInsufficientBalance   = errors.New("bank: insufficient balance")
	ErrInsufficientAllowance = errors.New("bank: insufficient allowance")
	ErrValueMismatch         = errors.New("bank: attached value must equal amount for native transfers")
	ErrUnexpectedValue       = errors.New("bank: attached value must be zero for token transfers")
)

// Op describes a completed transfer for observers.
type Op struct {
	Asset  types.Asset
	From   common.Address
	To     common.Address
	Amount types.Amount
	In     bool // true for PullIn, false for PushOut
}

// Observer is invoked after a transfer's balance effects are applied but
// before the call returns — the window in which external token code runs.
type Observer func(ctx context.Context, op Op)

// compile-time interface check
var _ transfer.Adapter = (*Bank)(nil)

type assetKey struct {
	asset types.Asset
	addr  common.Address
}

// Bank is a thread-safe in-memory custody bank.
type Bank struct {
	mu         sync.Mutex
	balances   map[assetKey]types.Amount
	allowances map[assetKey]types.Amount // payer's grant to the escrow custodian
	custody    map[types.Asset]types.Amount
	observer   Observer
}

// New creates an empty Bank.
func New() *Bank {
	return &Bank{
		balances:   make(map[assetKey]types.Amount),
		allowances: make(map[assetKey]types.Amount),
		custody:    make(map[types.Asset]types.Amount),
	}
}

// SetObserver installs the transfer observer. Pass nil to remove it.
func (b *Bank) SetObserver(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observer = o
}

// Mint credits an account with amount of asset.
func (b *Bank) Mint(asset types.Asset, addr common.Address, amount types.Amount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := assetKey{asset, addr}
	b.balances[k] = b.balances[k].Add(amount)
}

// Approve grants the escrow custodian an allowance to pull amount of asset
// from owner. Overwrites any prior grant, like ERC-20 approve.
func (b *Bank) Approve(asset types.Asset, owner common.Address, amount types.Amount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allowances[assetKey{asset, owner}] = amount
}

// BalanceOf returns the account's balance of asset.
func (b *Bank) BalanceOf(asset types.Asset, addr common.Address) types.Amount {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[assetKey{asset, addr}]
}

// Allowance returns the remaining pull allowance of asset granted by owner.
func (b *Bank) Allowance(asset types.Asset, owner common.Address) types.Amount {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allowances[assetKey{asset, owner}]
}

// CustodyBalance returns the amount of asset held in escrow custody.
func (b *Bank) CustodyBalance(asset types.Asset) types.Amount {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.custody[asset]
}

// PullIn implements transfer.Adapter.
func (b *Bank) PullIn(ctx context.Context, asset types.Asset, from common.Address, amount, attachedValue types.Amount) error {
	b.mu.Lock()

	if asset.IsNative() {
		if !attachedValue.Equal(amount) {
			b.mu.Unlock()
			return ErrValueMismatch
		}
	} else {
		if !attachedValue.IsZero() {
			b.mu.Unlock()
			return ErrUnexpectedValue
		}
		allowance := b.allowances[assetKey{asset, from}]
		if allowance.LessThan(amount) {
			b.mu.Unlock()
			return fmt.Errorf("%w: have %s, need %s", ErrInsufficientAllowance, allowance, amount)
		}
	}

	k := assetKey{asset, from}
	balance := b.balances[k]
	if balance.LessThan(amount) {
		b.mu.Unlock()
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, amount)
	}

	b.balances[k] = balance.Subtract(amount)
	if !asset.IsNative() {
		b.allowances[k] = b.allowances[k].Subtract(amount)
	}
	b.custody[asset] = b.custody[asset].Add(amount)
	observer := b.observer
	b.mu.Unlock()

	if observer != nil {
		observer(ctx, Op{Asset: asset, From: from, Amount: amount, In: true})
	}
	return nil
}

// PushOut implements transfer.Adapter.
func (b *Bank) PushOut(ctx context.Context, asset types.Asset, to common.Address, amount types.Amount) error {
	b.mu.Lock()

	held := b.custody[asset]
	if held.LessThan(amount) {
		b.mu.Unlock()
		return fmt.Errorf("%w: custody holds %s, need %s", ErrInsufficientBalance, held, amount)
	}

	b.custody[asset] = held.Subtract(amount)
	k := assetKey{asset, to}
	b.balances[k] = b.balances[k].Add(amount)
	observer := b.observer
	b.mu.Unlock()

	if observer != nil {
		observer(ctx, Op{Asset: asset, To: to, Amount: amount, In: false})
	}
	return nil
}
