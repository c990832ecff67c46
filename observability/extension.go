// Package observability provides a metrics extension for Escrow that
// records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/receipt"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnProviderRegistered  = (*MetricsExtension)(nil)
	_ plugin.OnProviderWhitelisted = (*MetricsExtension)(nil)
	_ plugin.OnTokenWhitelisted    = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCreated = (*MetricsExtension)(nil)
	_ plugin.OnFundsDeposited      = (*MetricsExtension)(nil)
	_ plugin.OnFundsWithdrawn      = (*MetricsExtension)(nil)
	_ plugin.OnFundsRefunded       = (*MetricsExtension)(nil)
	_ plugin.OnPaused              = (*MetricsExtension)(nil)
	_ plugin.OnUnpaused            = (*MetricsExtension)(nil)
	_ plugin.OnUpgraded            = (*MetricsExtension)(nil)
	_ plugin.OnTransferFailed      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an Escrow plugin to automatically track escrow activity.
type MetricsExtension struct {
	factory MetricFactory

	// Registry metrics
	ProviderRegistered    Counter
	ProviderWhitelistFlip Counter
	TokenWhitelistFlip    Counter

	// Subscription metrics
	SubscriptionCreated Counter
	SubscriptionDeposit Histogram

	// Funds metrics
	FundsDeposited  Counter
	FundsWithdrawn  Counter
	FundsRefunded   Counter
	TransferFailed  Counter
	WithdrawnAmount Histogram
	RefundedAmount  Histogram

	// Administrative metrics
	Paused   Counter
	Unpaused Counter
	Upgraded Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Registry metrics
		ProviderRegistered:    factory.Counter("escrow.provider.registered"),
		ProviderWhitelistFlip: factory.Counter("escrow.provider.whitelist.flips"),
		TokenWhitelistFlip:    factory.Counter("escrow.token.whitelist.flips"),

		// Subscription metrics
		SubscriptionCreated: factory.Counter("escrow.subscription.created"),
		SubscriptionDeposit: factory.Histogram("escrow.subscription.initial_deposit"),

		// Funds metrics
		FundsDeposited:  factory.Counter("escrow.funds.deposited"),
		FundsWithdrawn:  factory.Counter("escrow.funds.withdrawn"),
		FundsRefunded:   factory.Counter("escrow.funds.refunded"),
		TransferFailed:  factory.Counter("escrow.transfer.failed"),
		WithdrawnAmount: factory.Histogram("escrow.funds.withdrawn_amount"),
		RefundedAmount:  factory.Histogram("escrow.funds.refunded_amount"),

		// Administrative metrics
		Paused:   factory.Counter("escrow.paused"),
		Unpaused: factory.Counter("escrow.unpaused"),
		Upgraded: factory.Counter("escrow.upgraded"),

		// Error metrics
		StoreErrors:  factory.Counter("escrow.store.errors"),
		PluginErrors: factory.Counter("escrow.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Registry hooks
// ──────────────────────────────────────────────────

// OnProviderRegistered implements plugin.OnProviderRegistered.
func (m *MetricsExtension) OnProviderRegistered(_ context.Context, _ interface{}) error {
	m.ProviderRegistered.Inc()
	return nil
}

// OnProviderWhitelisted implements plugin.OnProviderWhitelisted.
func (m *MetricsExtension) OnProviderWhitelisted(_ context.Context, _ string, _ bool) error {
	m.ProviderWhitelistFlip.Inc()
	return nil
}

// OnTokenWhitelisted implements plugin.OnTokenWhitelisted.
func (m *MetricsExtension) OnTokenWhitelisted(_ context.Context, _ string, _ bool) error {
	m.TokenWhitelistFlip.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription and funds hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (m *MetricsExtension) OnSubscriptionCreated(_ context.Context, _ interface{}) error {
	m.SubscriptionCreated.Inc()
	return nil
}

// OnFundsDeposited implements plugin.OnFundsDeposited.
func (m *MetricsExtension) OnFundsDeposited(_ context.Context, _ interface{}) error {
	m.FundsDeposited.Inc()
	return nil
}

// OnFundsWithdrawn implements plugin.OnFundsWithdrawn.
func (m *MetricsExtension) OnFundsWithdrawn(_ context.Context, rcpt interface{}) error {
	m.FundsWithdrawn.Inc()
	if r, ok := rcpt.(*receipt.Receipt); ok {
		m.WithdrawnAmount.Observe(float64(r.Amount.Int64()))
	}
	return nil
}

// OnFundsRefunded implements plugin.OnFundsRefunded.
func (m *MetricsExtension) OnFundsRefunded(_ context.Context, rcpt interface{}) error {
	m.FundsRefunded.Inc()
	if r, ok := rcpt.(*receipt.Receipt); ok {
		m.RefundedAmount.Observe(float64(r.Amount.Int64()))
	}
	return nil
}

// OnTransferFailed implements plugin.OnTransferFailed.
func (m *MetricsExtension) OnTransferFailed(_ context.Context, _ string, _ error) error {
	m.TransferFailed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnPaused implements plugin.OnPaused.
func (m *MetricsExtension) OnPaused(_ context.Context) error {
	m.Paused.Inc()
	return nil
}

// OnUnpaused implements plugin.OnUnpaused.
func (m *MetricsExtension) OnUnpaused(_ context.Context) error {
	m.Unpaused.Inc()
	return nil
}

// OnUpgraded implements plugin.OnUpgraded.
func (m *MetricsExtension) OnUpgraded(_ context.Context, _ string) error {
	m.Upgraded.Inc()
	return nil
}
