package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/receipt"
	"github.com/xraph/escrow/sign"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/transfer"
	"github.com/xraph/escrow/types"
)

// Escrow is the subscription-and-escrow ledger engine.
//
// It custodies funds a consumer deposits under a provider-authorized
// subscription and moves them out again via provider withdrawal or refund.
// The owner address controls provider and token whitelisting, the pause
// flag and revision upgrades.
type Escrow struct {
	store   store.Store
	adapter transfer.Adapter
	plugins *plugin.Registry
	logger  *slog.Logger

	owner    common.Address
	revision Revision

	// mu serializes every mutating operation's checks and balance
	// effects. Asset transfers run outside the lock so a reentrant call
	// from externally supplied transfer code observes consistent,
	// already-updated state instead of deadlocking.
	mu     sync.Mutex
	paused bool
}

// New creates a new Escrow engine. The owner address is fixed for the
// engine's lifetime; revisions default to V1 (deposits inert).
func New(s store.Store, adapter transfer.Adapter, owner common.Address, opts ...Option) *Escrow {
	e := &Escrow{
		store:    s,
		adapter:  adapter,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		owner:    owner,
		revision: RevisionV1,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Escrow instance.
type Option func(*Escrow)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Escrow) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Escrow) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithRevision selects the active revision strategy at startup.
func WithRevision(r Revision) Option {
	return func(e *Escrow) {
		if r != nil {
			e.revision = r
		}
	}
}

// Start migrates the store and initializes plugins.
func (e *Escrow) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("escrow started",
		"owner", e.owner.Hex(),
		"revision", e.revision.Name(),
	)

	return nil
}

// Stop shuts down the engine.
func (e *Escrow) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Plugins returns the plugin registry.
func (e *Escrow) Plugins() *plugin.Registry {
	return e.plugins
}

// ──────────────────────────────────────────────────
// Ownership, pause and revision control
// ──────────────────────────────────────────────────

// Owner returns the engine's owner address.
func (e *Escrow) Owner() common.Address {
	return e.owner
}

// Paused reports whether mutating activity is halted.
func (e *Escrow) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Version returns the active revision's version tag.
func (e *Escrow) Version() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision.Name()
}

func (e *Escrow) requireOwner(caller common.Address) error {
	if caller != e.owner {
		return ErrNotOwner
	}
	return nil
}

// Pause halts every mutating entry point except the pause controls and
// read accessors. Owner-only; callable while already paused.
func (e *Escrow) Pause(ctx context.Context, caller common.Address) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}

	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()

	e.plugins.EmitPaused(ctx)
	e.logger.Info("escrow paused")
	return nil
}

// Unpause resumes mutating activity. Owner-only.
func (e *Escrow) Unpause(ctx context.Context, caller common.Address) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}

	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()

	e.plugins.EmitUnpaused(ctx)
	e.logger.Info("escrow unpaused")
	return nil
}

// Upgrade swaps the active revision strategy behind the engine's stable
// identity. Owner-only; persisted state remains valid across the swap.
func (e *Escrow) Upgrade(ctx context.Context, caller common.Address, r Revision) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if r == nil {
		return ErrUnknownRevision
	}
	if _, ok := RevisionByName(r.Name()); !ok {
		return ErrUnknownRevision
	}

	e.mu.Lock()
	e.revision = r
	e.mu.Unlock()

	e.plugins.EmitUpgraded(ctx, r.Name())
	e.logger.Info("escrow upgraded", "revision", r.Name())
	return nil
}

// ──────────────────────────────────────────────────
// Whitelist Registry
// ──────────────────────────────────────────────────

// SetWhitelistedProvider flips a provider's whitelist flag. Owner-only,
// idempotent, usable while paused.
func (e *Escrow) SetWhitelistedProvider(ctx context.Context, caller, addr common.Address, whitelisted bool) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}

	if err := e.store.SetProviderWhitelisted(ctx, addr, whitelisted); err != nil {
		return err
	}

	e.plugins.EmitProviderWhitelisted(ctx, addr.Hex(), whitelisted)
	e.logger.Info("provider whitelist updated",
		"provider", addr.Hex(),
		"whitelisted", whitelisted,
	)
	return nil
}

// SetWhitelistedToken flips a payment asset's whitelist flag. Owner-only,
// idempotent, usable while paused.
func (e *Escrow) SetWhitelistedToken(ctx context.Context, caller common.Address, asset types.Asset, whitelisted bool) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}

	if err := e.store.SetTokenWhitelisted(ctx, asset, whitelisted); err != nil {
		return err
	}

	e.plugins.EmitTokenWhitelisted(ctx, asset.String(), whitelisted)
	e.logger.Info("token whitelist updated",
		"token", asset.String(),
		"whitelisted", whitelisted,
	)
	return nil
}

// ──────────────────────────────────────────────────
// Provider Registry
// ──────────────────────────────────────────────────

// RegisterProvider marks the caller as an active provider under the given
// display URL. The caller must be whitelisted. Re-registration is allowed
// and overwrites the URL.
func (e *Escrow) RegisterProvider(ctx context.Context, caller common.Address, url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return ErrPaused
	}

	p, err := e.store.GetProvider(ctx, caller)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return ErrProviderNotWhitelisted
		}
		return err
	}
	if !p.CanRegister() {
		return ErrProviderNotWhitelisted
	}
	if url == "" {
		return ErrEmptyURL
	}

	p.Registered = true
	p.URL = url
	p.Touch()
	if err := e.store.UpsertProvider(ctx, p); err != nil {
		return err
	}

	rcpt := &receipt.Receipt{
		Entity:   types.NewEntity(),
		ID:       id.NewReceiptID(),
		Kind:     receipt.KindProviderRegistered,
		Provider: caller,
		URL:      url,
	}
	if err := e.store.AppendReceipt(ctx, rcpt); err != nil {
		return err
	}

	e.plugins.EmitProviderRegistered(ctx, p)
	e.logger.Info("provider registered",
		"provider", caller.Hex(),
		"url", url,
	)
	return nil
}

// ──────────────────────────────────────────────────
// Escrow Ledger
// ──────────────────────────────────────────────────

// activeProvider loads a provider record and checks whitelist standing
// before registration, preserving the failure tag order.
func (e *Escrow) activeProvider(ctx context.Context, addr common.Address) (*provider.Provider, error) {
	p, err := e.store.GetProvider(ctx, addr)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, ErrProviderNotWhitelisted
		}
		return nil, err
	}
	if !p.Whitelisted {
		return nil, ErrProviderNotWhitelisted
	}
	if !p.Registered {
		return nil, ErrProviderNotRegistered
	}
	return p, nil
}

// CreateSubscription creates an escrow subscription under the given
// fingerprint and pulls the initial deposit from the caller.
//
// The signature must be the named provider's ECDSA signature over the
// fingerprint: the sole proof that the provider consented to be bound to
// this subscription. The consumer (the caller) does not sign. For a native
// subscription the deposit arrives as attachedValue; for a token
// subscription attachedValue must be zero and the caller must have
// pre-authorized an allowance.
func (e *Escrow) CreateSubscription(ctx context.Context, caller, providerAddr common.Address, fingerprint common.Hash, signature []byte, asset types.Asset, amount, attachedValue types.Amount) error {
	e.mu.Lock()

	if e.paused {
		e.mu.Unlock()
		return ErrPaused
	}

	if _, err := e.activeProvider(ctx, providerAddr); err != nil {
		e.mu.Unlock()
		return err
	}

	whitelisted, err := e.store.IsTokenWhitelisted(ctx, asset)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if !whitelisted {
		e.mu.Unlock()
		return ErrTokenNotWhitelisted
	}

	if _, err := e.store.GetSubscription(ctx, fingerprint); err == nil {
		e.mu.Unlock()
		return ErrSubscriptionExists
	} else if !errors.Is(err, ErrSubscriptionNotFound) {
		e.mu.Unlock()
		return err
	}

	if !sign.Verify(fingerprint, signature, providerAddr) {
		e.mu.Unlock()
		return ErrInvalidSignature
	}

	if amount.IsZero() && attachedValue.IsZero() {
		e.mu.Unlock()
		return ErrNoInitialDeposit
	}

	sub := &subscription.Subscription{
		Entity:   types.NewEntity(),
		Hash:     fingerprint,
		Provider: providerAddr,
		Consumer: caller,
		Asset:    asset,
		Balance:  amount,
	}
	// Reserve the fingerprint before the external pull so a reentrant
	// creation attempt sees it as taken.
	if err := e.store.CreateSubscription(ctx, sub); err != nil {
		e.mu.Unlock()
		return err
	}

	e.mu.Unlock()

	if err := e.adapter.PullIn(ctx, asset, caller, amount, attachedValue); err != nil {
		e.mu.Lock()
		delErr := e.store.DeleteSubscription(ctx, fingerprint)
		e.mu.Unlock()
		if delErr != nil {
			e.logger.Error("subscription rollback failed",
				"hash", fingerprint.Hex(),
				"error", delErr,
			)
		}
		e.plugins.EmitTransferFailed(ctx, "create_subscription", err)
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	rcpt := &receipt.Receipt{
		Entity:   types.NewEntity(),
		ID:       id.NewReceiptID(),
		Kind:     receipt.KindSubscriptionCreated,
		Provider: providerAddr,
		Hash:     fingerprint,
		Consumer: caller,
		Asset:    asset,
		Amount:   amount,
	}
	if err := e.store.AppendReceipt(ctx, rcpt); err != nil {
		return err
	}

	e.plugins.EmitSubscriptionCreated(ctx, sub)
	e.logger.Info("subscription created",
		"hash", fingerprint.Hex(),
		"provider", providerAddr.Hex(),
		"consumer", caller.Hex(),
		"token", asset.String(),
		"amount", amount.String(),
	)
	return nil
}

// DepositFunds tops up an existing subscription's balance. The entry
// point is always present but inert under revisions that disable
// deposits.
func (e *Escrow) DepositFunds(ctx context.Context, caller, providerAddr common.Address, fingerprint common.Hash, asset types.Asset, amount, attachedValue types.Amount) error {
	e.mu.Lock()

	if e.paused {
		e.mu.Unlock()
		return ErrPaused
	}

	if !e.revision.DepositsEnabled() {
		e.mu.Unlock()
		return ErrDepositsDisabled
	}

	if _, err := e.activeProvider(ctx, providerAddr); err != nil {
		e.mu.Unlock()
		return err
	}

	whitelisted, err := e.store.IsTokenWhitelisted(ctx, asset)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if !whitelisted {
		e.mu.Unlock()
		return ErrTokenNotWhitelisted
	}

	if amount.IsZero() && attachedValue.IsZero() {
		e.mu.Unlock()
		return ErrNothingToDeposit
	}

	sub, err := e.store.GetSubscription(ctx, fingerprint)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if sub.Provider != providerAddr {
		e.mu.Unlock()
		return ErrSubscriptionNotFound
	}
	if sub.Asset != asset {
		e.mu.Unlock()
		return ErrInvalidToken
	}

	if err := e.store.SetSubscriptionBalance(ctx, fingerprint, sub.Balance.Add(amount)); err != nil {
		e.mu.Unlock()
		return err
	}

	e.mu.Unlock()

	if err := e.adapter.PullIn(ctx, asset, caller, amount, attachedValue); err != nil {
		e.compensate(ctx, fingerprint, amount, false)
		e.plugins.EmitTransferFailed(ctx, "deposit_funds", err)
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	rcpt := &receipt.Receipt{
		Entity:   types.NewEntity(),
		ID:       id.NewReceiptID(),
		Kind:     receipt.KindFundsDeposit,
		Provider: providerAddr,
		Hash:     fingerprint,
		Consumer: caller,
		Asset:    asset,
		Amount:   amount,
	}
	if err := e.store.AppendReceipt(ctx, rcpt); err != nil {
		return err
	}

	e.plugins.EmitFundsDeposited(ctx, rcpt)
	e.logger.Info("funds deposited",
		"hash", fingerprint.Hex(),
		"provider", providerAddr.Hex(),
		"token", asset.String(),
		"amount", amount.String(),
	)
	return nil
}

// WithdrawFunds moves escrowed funds out to the calling provider. The
// balance is decremented before the external transfer so a reentrant call
// cannot double-spend it; a failed transfer restores the balance.
func (e *Escrow) WithdrawFunds(ctx context.Context, caller common.Address, fingerprint common.Hash, asset types.Asset, amount types.Amount) error {
	sub, err := e.debit(ctx, caller, fingerprint, asset, amount, ErrNothingToWithdraw)
	if err != nil {
		return err
	}

	if err := e.adapter.PushOut(ctx, asset, caller, amount); err != nil {
		e.compensate(ctx, fingerprint, amount, true)
		e.plugins.EmitTransferFailed(ctx, "withdraw_funds", err)
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	rcpt := &receipt.Receipt{
		Entity:   types.NewEntity(),
		ID:       id.NewReceiptID(),
		Kind:     receipt.KindFundsWithdrawn,
		Provider: caller,
		Hash:     fingerprint,
		Consumer: sub.Consumer,
		Asset:    asset,
		Amount:   amount,
	}
	if err := e.store.AppendReceipt(ctx, rcpt); err != nil {
		return err
	}

	e.plugins.EmitFundsWithdrawn(ctx, rcpt)
	e.logger.Info("funds withdrawn",
		"hash", fingerprint.Hex(),
		"provider", caller.Hex(),
		"token", asset.String(),
		"amount", amount.String(),
	)
	return nil
}

// RefundFunds moves escrowed funds back to the subscription's consumer.
// Only the subscription's registered provider may initiate a refund.
func (e *Escrow) RefundFunds(ctx context.Context, caller common.Address, fingerprint common.Hash, asset types.Asset, amount types.Amount) error {
	sub, err := e.debit(ctx, caller, fingerprint, asset, amount, ErrNothingToRefund)
	if err != nil {
		return err
	}

	if err := e.adapter.PushOut(ctx, asset, sub.Consumer, amount); err != nil {
		e.compensate(ctx, fingerprint, amount, true)
		e.plugins.EmitTransferFailed(ctx, "refund_funds", err)
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	rcpt := &receipt.Receipt{
		Entity:   types.NewEntity(),
		ID:       id.NewReceiptID(),
		Kind:     receipt.KindFundsRefund,
		Provider: caller,
		Hash:     fingerprint,
		Consumer: sub.Consumer,
		Asset:    asset,
		Amount:   amount,
	}
	if err := e.store.AppendReceipt(ctx, rcpt); err != nil {
		return err
	}

	e.plugins.EmitFundsRefunded(ctx, rcpt)
	e.logger.Info("funds refunded",
		"hash", fingerprint.Hex(),
		"provider", caller.Hex(),
		"consumer", sub.Consumer.Hex(),
		"token", asset.String(),
		"amount", amount.String(),
	)
	return nil
}

// debit runs the shared withdraw/refund checks and decrements the balance
// under the lock. The returned record reflects the state at debit time.
func (e *Escrow) debit(ctx context.Context, caller common.Address, fingerprint common.Hash, asset types.Asset, amount types.Amount, zeroErr error) (*subscription.Subscription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return nil, ErrPaused
	}

	p, err := e.store.GetProvider(ctx, caller)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, ErrProviderNotRegistered
		}
		return nil, err
	}
	if !p.Registered {
		return nil, ErrProviderNotRegistered
	}

	if amount.IsZero() {
		return nil, zeroErr
	}

	sub, err := e.store.GetSubscription(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	// A provider can only see its own fingerprints.
	if sub.Provider != caller {
		return nil, ErrSubscriptionNotFound
	}
	if sub.Asset != asset {
		return nil, ErrInvalidToken
	}
	if amount.GreaterThan(sub.Balance) {
		return nil, ErrAmountTooBig
	}

	if err := e.store.SetSubscriptionBalance(ctx, fingerprint, sub.Balance.Subtract(amount)); err != nil {
		return nil, err
	}

	return sub, nil
}

// compensate restores a balance effect after a failed transfer. It
// re-reads the record because a reentrant call may have moved the balance
// while the transfer was in flight.
func (e *Escrow) compensate(ctx context.Context, fingerprint common.Hash, amount types.Amount, credit bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sub, err := e.store.GetSubscription(ctx, fingerprint)
	if err != nil {
		e.logger.Error("balance rollback failed",
			"hash", fingerprint.Hex(),
			"error", err,
		)
		return
	}

	balance := sub.Balance.Subtract(amount)
	if credit {
		balance = sub.Balance.Add(amount)
	}
	if err := e.store.SetSubscriptionBalance(ctx, fingerprint, balance); err != nil {
		e.logger.Error("balance rollback failed",
			"hash", fingerprint.Hex(),
			"error", err,
		)
	}
}

// ──────────────────────────────────────────────────
// Read accessors
// ──────────────────────────────────────────────────

// Subscription retrieves a subscription by its fingerprint.
func (e *Escrow) Subscription(ctx context.Context, fingerprint common.Hash) (*subscription.Subscription, error) {
	return e.store.GetSubscription(ctx, fingerprint)
}

// Subscriptions lists subscriptions matching the given filter.
func (e *Escrow) Subscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return e.store.ListSubscriptions(ctx, opts)
}

// Provider retrieves a provider record by address.
func (e *Escrow) Provider(ctx context.Context, addr common.Address) (*provider.Provider, error) {
	return e.store.GetProvider(ctx, addr)
}

// Providers lists provider records matching the given filter.
func (e *Escrow) Providers(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	return e.store.ListProviders(ctx, opts)
}

// IsWhitelistedToken reports whether an asset may back new subscriptions.
func (e *Escrow) IsWhitelistedToken(ctx context.Context, asset types.Asset) (bool, error) {
	return e.store.IsTokenWhitelisted(ctx, asset)
}

// Receipts lists the persisted lifecycle events for a fingerprint.
func (e *Escrow) Receipts(ctx context.Context, fingerprint common.Hash, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	return e.store.ListReceiptsByHash(ctx, fingerprint, opts)
}

// ReceiptsByProvider lists the persisted lifecycle events for a provider.
func (e *Escrow) ReceiptsByProvider(ctx context.Context, addr common.Address, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	return e.store.ListReceiptsByProvider(ctx, addr, opts)
}
