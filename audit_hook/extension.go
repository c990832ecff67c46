// Package audithook bridges Escrow lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/receipt"
	"github.com/xraph/escrow/subscription"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnProviderRegistered  = (*Extension)(nil)
	_ plugin.OnProviderWhitelisted = (*Extension)(nil)
	_ plugin.OnTokenWhitelisted    = (*Extension)(nil)
	_ plugin.OnSubscriptionCreated = (*Extension)(nil)
	_ plugin.OnFundsDeposited      = (*Extension)(nil)
	_ plugin.OnFundsWithdrawn      = (*Extension)(nil)
	_ plugin.OnFundsRefunded       = (*Extension)(nil)
	_ plugin.OnPaused              = (*Extension)(nil)
	_ plugin.OnUnpaused            = (*Extension)(nil)
	_ plugin.OnUpgraded            = (*Extension)(nil)
	_ plugin.OnTransferFailed      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Escrow lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Registry hooks
// ──────────────────────────────────────────────────

// OnProviderRegistered implements plugin.OnProviderRegistered.
func (e *Extension) OnProviderRegistered(ctx context.Context, p interface{}) error {
	var resourceID, url string
	if prov, ok := p.(*provider.Provider); ok {
		resourceID = prov.Address.Hex()
		url = prov.URL
	}
	return e.record(ctx, ActionProviderRegistered, SeverityInfo, OutcomeSuccess,
		ResourceProvider, resourceID, CategoryRegistry, nil,
		"url", url,
	)
}

// OnProviderWhitelisted implements plugin.OnProviderWhitelisted.
func (e *Extension) OnProviderWhitelisted(ctx context.Context, addr string, whitelisted bool) error {
	return e.record(ctx, ActionProviderWhitelisted, SeverityInfo, OutcomeSuccess,
		ResourceProvider, addr, CategoryRegistry, nil,
		"whitelisted", whitelisted,
	)
}

// OnTokenWhitelisted implements plugin.OnTokenWhitelisted.
func (e *Extension) OnTokenWhitelisted(ctx context.Context, asset string, whitelisted bool) error {
	return e.record(ctx, ActionTokenWhitelisted, SeverityInfo, OutcomeSuccess,
		ResourceToken, asset, CategoryRegistry, nil,
		"whitelisted", whitelisted,
	)
}

// ──────────────────────────────────────────────────
// Subscription and funds hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (e *Extension) OnSubscriptionCreated(ctx context.Context, s interface{}) error {
	var resourceID string
	meta := []any{"event", "subscription_created"}
	if sub, ok := s.(*subscription.Subscription); ok {
		resourceID = sub.Hash.Hex()
		meta = append(meta,
			"provider", sub.Provider.Hex(),
			"consumer", sub.Consumer.Hex(),
			"token", sub.Asset.Hex(),
			"amount", sub.Balance.String(),
		)
	}
	return e.record(ctx, ActionSubscriptionCreated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, resourceID, CategoryEscrow, nil, meta...)
}

// OnFundsDeposited implements plugin.OnFundsDeposited.
func (e *Extension) OnFundsDeposited(ctx context.Context, rcpt interface{}) error {
	resourceID, meta := receiptDetails(rcpt, "funds_deposited")
	return e.record(ctx, ActionFundsDeposited, SeverityInfo, OutcomeSuccess,
		ResourceFunds, resourceID, CategoryPayment, nil, meta...)
}

// OnFundsWithdrawn implements plugin.OnFundsWithdrawn.
func (e *Extension) OnFundsWithdrawn(ctx context.Context, rcpt interface{}) error {
	resourceID, meta := receiptDetails(rcpt, "funds_withdrawn")
	return e.record(ctx, ActionFundsWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceFunds, resourceID, CategoryPayment, nil, meta...)
}

// OnFundsRefunded implements plugin.OnFundsRefunded.
func (e *Extension) OnFundsRefunded(ctx context.Context, rcpt interface{}) error {
	resourceID, meta := receiptDetails(rcpt, "funds_refunded")
	return e.record(ctx, ActionFundsRefunded, SeverityInfo, OutcomeSuccess,
		ResourceFunds, resourceID, CategoryPayment, nil, meta...)
}

// OnTransferFailed implements plugin.OnTransferFailed.
func (e *Extension) OnTransferFailed(ctx context.Context, op string, err error) error {
	return e.record(ctx, ActionTransferFailed, SeverityCritical, OutcomeFailure,
		ResourceFunds, "", CategoryPayment, err,
		"operation", op,
	)
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnPaused implements plugin.OnPaused.
func (e *Extension) OnPaused(ctx context.Context) error {
	return e.record(ctx, ActionPaused, SeverityWarning, OutcomeSuccess,
		ResourceEngine, "", CategoryAdmin, nil,
		"event", "paused",
	)
}

// OnUnpaused implements plugin.OnUnpaused.
func (e *Extension) OnUnpaused(ctx context.Context) error {
	return e.record(ctx, ActionUnpaused, SeverityInfo, OutcomeSuccess,
		ResourceEngine, "", CategoryAdmin, nil,
		"event", "unpaused",
	)
}

// OnUpgraded implements plugin.OnUpgraded.
func (e *Extension) OnUpgraded(ctx context.Context, revision string) error {
	return e.record(ctx, ActionUpgraded, SeverityWarning, OutcomeSuccess,
		ResourceEngine, "", CategoryAdmin, nil,
		"revision", revision,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// receiptDetails pulls metadata out of a receipt payload when the emitter
// passed the typed record.
func receiptDetails(rcpt interface{}, event string) (string, []any) {
	meta := []any{"event", event}
	r, ok := rcpt.(*receipt.Receipt)
	if !ok {
		return "", meta
	}
	meta = append(meta,
		"provider", r.Provider.Hex(),
		"token", r.Asset.Hex(),
		"amount", r.Amount.String(),
	)
	return r.Hash.Hex(), meta
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
