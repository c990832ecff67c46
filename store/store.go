package store

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/receipt"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// Store is the unified storage interface for all Escrow state.
// Instead of embedding the per-entity sub-interfaces, we explicitly declare
// all methods to avoid naming conflicts.
type Store interface {
	// Provider methods
	UpsertProvider(ctx context.Context, p *provider.Provider) error
	GetProvider(ctx context.Context, addr common.Address) (*provider.Provider, error)
	SetProviderWhitelisted(ctx context.Context, addr common.Address, whitelisted bool) error
	ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error)

	// Token whitelist methods
	SetTokenWhitelisted(ctx context.Context, asset types.Asset, whitelisted bool) error
	IsTokenWhitelisted(ctx context.Context, asset types.Asset) (bool, error)
	ListWhitelistedTokens(ctx context.Context) ([]types.Asset, error)

	// Subscription methods
	CreateSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, hash common.Hash) (*subscription.Subscription, error)
	SetSubscriptionBalance(ctx context.Context, hash common.Hash, balance types.Amount) error
	DeleteSubscription(ctx context.Context, hash common.Hash) error
	ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error)

	// Receipt methods
	AppendReceipt(ctx context.Context, r *receipt.Receipt) error
	ListReceiptsByHash(ctx context.Context, hash common.Hash, opts receipt.ListOpts) ([]*receipt.Receipt, error)
	ListReceiptsByProvider(ctx context.Context, addr common.Address, opts receipt.ListOpts) ([]*receipt.Receipt, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
