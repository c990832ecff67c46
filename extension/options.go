package extension

import (
	"github.com/xraph/grove"

	escrow "github.com/xraph/escrow"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/transfer"
)

// Option configures the Escrow Forge extension.
type Option func(*Extension)

// WithStore sets the store for the escrow engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithAdapter sets the asset transfer adapter for the escrow engine.
func WithAdapter(a transfer.Adapter) Option {
	return func(e *Extension) {
		e.adapter = a
	}
}

// WithEscrowOption passes an escrow.Option through to the underlying engine.
func WithEscrowOption(opt escrow.Option) Option {
	return func(e *Extension) {
		e.escrowOpts = append(e.escrowOpts, opt)
	}
}

// WithPlugin registers an escrow plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.escrowOpts = append(e.escrowOpts, escrow.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithOwner sets the hex address of the engine owner.
func WithOwner(addr string) Option {
	return func(e *Extension) { e.config.Owner = addr }
}

// WithRevision selects the engine revision at startup ("V1" or "V2").
func WithRevision(name string) Option {
	return func(e *Extension) { e.config.Revision = name }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithGroveDB sets the grove database to back the store, along with the
// driver of the backend to construct for it ("postgres", "sqlite" or
// "mongo").
func WithGroveDB(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.groveDB = db
		e.config.GroveDriver = driver
	}
}
