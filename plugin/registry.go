package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onProviderRegistered  []OnProviderRegistered
	onProviderWhitelisted []OnProviderWhitelisted
	onTokenWhitelisted    []OnTokenWhitelisted
	onSubscriptionCreated []OnSubscriptionCreated
	onFundsDeposited      []OnFundsDeposited
	onFundsWithdrawn      []OnFundsWithdrawn
	onFundsRefunded       []OnFundsRefunded
	onPaused              []OnPaused
	onUnpaused            []OnUnpaused
	onUpgraded            []OnUpgraded
	onTransferFailed      []OnTransferFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnProviderRegistered); ok {
		r.onProviderRegistered = append(r.onProviderRegistered, v)
	}
	if v, ok := p.(OnProviderWhitelisted); ok {
		r.onProviderWhitelisted = append(r.onProviderWhitelisted, v)
	}
	if v, ok := p.(OnTokenWhitelisted); ok {
		r.onTokenWhitelisted = append(r.onTokenWhitelisted, v)
	}
	if v, ok := p.(OnSubscriptionCreated); ok {
		r.onSubscriptionCreated = append(r.onSubscriptionCreated, v)
	}
	if v, ok := p.(OnFundsDeposited); ok {
		r.onFundsDeposited = append(r.onFundsDeposited, v)
	}
	if v, ok := p.(OnFundsWithdrawn); ok {
		r.onFundsWithdrawn = append(r.onFundsWithdrawn, v)
	}
	if v, ok := p.(OnFundsRefunded); ok {
		r.onFundsRefunded = append(r.onFundsRefunded, v)
	}
	if v, ok := p.(OnPaused); ok {
		r.onPaused = append(r.onPaused, v)
	}
	if v, ok := p.(OnUnpaused); ok {
		r.onUnpaused = append(r.onUnpaused, v)
	}
	if v, ok := p.(OnUpgraded); ok {
		r.onUpgraded = append(r.onUpgraded, v)
	}
	if v, ok := p.(OnTransferFailed); ok {
		r.onTransferFailed = append(r.onTransferFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnProviderRegistered)(nil)).Elem(), "OnProviderRegistered")
	checkInterface(reflect.TypeOf((*OnProviderWhitelisted)(nil)).Elem(), "OnProviderWhitelisted")
	checkInterface(reflect.TypeOf((*OnTokenWhitelisted)(nil)).Elem(), "OnTokenWhitelisted")
	checkInterface(reflect.TypeOf((*OnSubscriptionCreated)(nil)).Elem(), "OnSubscriptionCreated")
	checkInterface(reflect.TypeOf((*OnFundsDeposited)(nil)).Elem(), "OnFundsDeposited")
	checkInterface(reflect.TypeOf((*OnFundsWithdrawn)(nil)).Elem(), "OnFundsWithdrawn")
	checkInterface(reflect.TypeOf((*OnFundsRefunded)(nil)).Elem(), "OnFundsRefunded")
	checkInterface(reflect.TypeOf((*OnPaused)(nil)).Elem(), "OnPaused")
	checkInterface(reflect.TypeOf((*OnUnpaused)(nil)).Elem(), "OnUnpaused")
	checkInterface(reflect.TypeOf((*OnUpgraded)(nil)).Elem(), "OnUpgraded")
	checkInterface(reflect.TypeOf((*OnTransferFailed)(nil)).Elem(), "OnTransferFailed")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitProviderRegistered emits a provider registered event.
func (r *Registry) EmitProviderRegistered(ctx context.Context, p interface{}) {
	r.mu.RLock()
	plugins := r.onProviderRegistered
	r.mu.RUnlock()

	for _, pl := range plugins {
		if err := r.callWithTimeout(ctx, pl.Name(), func() error {
			return pl.OnProviderRegistered(ctx, p)
		}); err != nil {
			r.logger.Warn("plugin OnProviderRegistered failed",
				"plugin", pl.Name(),
				"error", err,
			)
		}
	}
}

// EmitProviderWhitelisted emits a provider whitelist change event.
func (r *Registry) EmitProviderWhitelisted(ctx context.Context, addr string, whitelisted bool) {
	r.mu.RLock()
	plugins := r.onProviderWhitelisted
	r.mu.RUnlock()

	for _, pl := range plugins {
		if err := r.callWithTimeout(ctx, pl.Name(), func() error {
			return pl.OnProviderWhitelisted(ctx, addr, whitelisted)
		}); err != nil {
			r.logger.Warn("plugin OnProviderWhitelisted failed",
				"plugin", pl.Name(),
				"error", err,
			)
		}
	}
}

// EmitTokenWhitelisted emits a token whitelist change event.
func (r *Registry) EmitTokenWhitelisted(ctx context.Context, asset string, whitelisted bool) {
	r.mu.RLock()
	plugins := r.onTokenWhitelisted
	r.mu.RUnlock()

	for _, pl := range plugins {
		if err := r.callWithTimeout(ctx, pl.Name(), func() error {
			return pl.OnTokenWhitelisted(ctx, asset, whitelisted)
		}); err != nil {
			r.logger.Warn("plugin OnTokenWhitelisted failed",
				"plugin", pl.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionCreated emits a subscription created event.
func (r *Registry) EmitSubscriptionCreated(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCreated(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitFundsDeposited emits a deposit event.
func (r *Registry) EmitFundsDeposited(ctx context.Context, rcpt interface{}) {
	r.mu.RLock()
	plugins := r.onFundsDeposited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFundsDeposited(ctx, rcpt)
		}); err != nil {
			r.logger.Warn("plugin OnFundsDeposited failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitFundsWithdrawn emits a withdrawal event.
func (r *Registry) EmitFundsWithdrawn(ctx context.Context, rcpt interface{}) {
	r.mu.RLock()
	plugins := r.onFundsWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFundsWithdrawn(ctx, rcpt)
		}); err != nil {
			r.logger.Warn("plugin OnFundsWithdrawn failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitFundsRefunded emits a refund event.
func (r *Registry) EmitFundsRefunded(ctx context.Context, rcpt interface{}) {
	r.mu.RLock()
	plugins := r.onFundsRefunded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFundsRefunded(ctx, rcpt)
		}); err != nil {
			r.logger.Warn("plugin OnFundsRefunded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaused emits a paused event.
func (r *Registry) EmitPaused(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onPaused
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaused(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnPaused failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUnpaused emits an unpaused event.
func (r *Registry) EmitUnpaused(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onUnpaused
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUnpaused(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnUnpaused failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUpgraded emits a revision upgrade event.
func (r *Registry) EmitUpgraded(ctx context.Context, revision string) {
	r.mu.RLock()
	plugins := r.onUpgraded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUpgraded(ctx, revision)
		}); err != nil {
			r.logger.Warn("plugin OnUpgraded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransferFailed emits a transfer failure event.
func (r *Registry) EmitTransferFailed(ctx context.Context, op string, ferr error) {
	r.mu.RLock()
	plugins := r.onTransferFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransferFailed(ctx, op, ferr)
		}); err != nil {
			r.logger.Warn("plugin OnTransferFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the escrow pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
