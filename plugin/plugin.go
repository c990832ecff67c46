// Package plugin provides an extensible plugin system for Escrow.
// Plugins can hook into lifecycle events to extend functionality.
package plugin

import "context"

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Provider lifecycle hooks
// ──────────────────────────────────────────────────

// OnProviderRegistered is called when a provider self-registers.
type OnProviderRegistered interface {
	Plugin
	OnProviderRegistered(ctx context.Context, p interface{}) error
}

// OnProviderWhitelisted is called when the owner flips a provider's
// whitelist flag.
type OnProviderWhitelisted interface {
	Plugin
	OnProviderWhitelisted(ctx context.Context, addr string, whitelisted bool) error
}

// OnTokenWhitelisted is called when the owner flips an asset's whitelist
// flag.
type OnTokenWhitelisted interface {
	Plugin
	OnTokenWhitelisted(ctx context.Context, asset string, whitelisted bool) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated is called when a new subscription is created.
type OnSubscriptionCreated interface {
	Plugin
	OnSubscriptionCreated(ctx context.Context, sub interface{}) error
}

// OnFundsDeposited is called when a top-up deposit succeeds.
type OnFundsDeposited interface {
	Plugin
	OnFundsDeposited(ctx context.Context, rcpt interface{}) error
}

// OnFundsWithdrawn is called when a provider withdrawal succeeds.
type OnFundsWithdrawn interface {
	Plugin
	OnFundsWithdrawn(ctx context.Context, rcpt interface{}) error
}

// OnFundsRefunded is called when a provider-initiated refund succeeds.
type OnFundsRefunded interface {
	Plugin
	OnFundsRefunded(ctx context.Context, rcpt interface{}) error
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnPaused is called when the owner halts mutating activity.
type OnPaused interface {
	Plugin
	OnPaused(ctx context.Context) error
}

// OnUnpaused is called when the owner resumes mutating activity.
type OnUnpaused interface {
	Plugin
	OnUnpaused(ctx context.Context) error
}

// OnUpgraded is called when the owner swaps the active revision.
type OnUpgraded interface {
	Plugin
	OnUpgraded(ctx context.Context, revision string) error
}

// OnTransferFailed is called when an asset movement fails and the
// enclosing mutation is rolled back.
type OnTransferFailed interface {
	Plugin
	OnTransferFailed(ctx context.Context, op string, err error) error
}
