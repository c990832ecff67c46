// Package extension provides the Forge extension adapter for Escrow.
//
// It implements the forge.Extension interface to integrate the escrow
// engine into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.escrow" or "escrow" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	escrow "github.com/xraph/escrow"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/store/memory"
	"github.com/xraph/escrow/store/mongo"
	"github.com/xraph/escrow/store/postgres"
	"github.com/xraph/escrow/store/sqlite"
	"github.com/xraph/escrow/transfer"
	"github.com/xraph/escrow/transfer/bank"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "escrow"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Subscription-and-escrow ledger engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Escrow as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *escrow.Escrow
	store      store.Store
	adapter    transfer.Adapter
	groveDB    *grove.DB
	escrowOpts []escrow.Option
}

// New creates a new Escrow Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Escrow instance.
// This is nil until Register is called.
func (e *Extension) Engine() *escrow.Escrow { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the escrow engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := e.buildStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	// The in-process bank stands in when no settlement adapter was wired.
	if e.adapter == nil {
		e.adapter = bank.New()
	}

	opts, err := e.buildEscrowOpts()
	if err != nil {
		return err
	}

	owner := common.HexToAddress(e.config.Owner)
	eng := escrow.New(e.store, e.adapter, owner, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*escrow.Escrow, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("escrow: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("escrow: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildStore constructs the store backend from the resolved config.
func (e *Extension) buildStore() (store.Store, error) {
	if e.groveDB == nil {
		return memory.New(), nil
	}

	switch e.config.GroveDriver {
	case "postgres":
		return postgres.New(e.groveDB), nil
	case "sqlite":
		return sqlite.New(e.groveDB), nil
	case "mongo":
		return mongo.New(e.groveDB), nil
	default:
		return nil, fmt.Errorf("escrow: unknown grove driver %q", e.config.GroveDriver)
	}
}

// buildEscrowOpts constructs escrow.Option values from the resolved config.
func (e *Extension) buildEscrowOpts() ([]escrow.Option, error) {
	opts := make([]escrow.Option, 0, len(e.escrowOpts)+1)

	if e.config.Revision != "" {
		rev, ok := escrow.RevisionByName(e.config.Revision)
		if !ok {
			return nil, fmt.Errorf("escrow: unknown revision %q", e.config.Revision)
		}
		opts = append(opts, escrow.WithRevision(rev))
	}

	// Append any pass-through escrow options.
	opts = append(opts, e.escrowOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("escrow: configuration is required but not found in config files; " +
				"ensure 'extensions.escrow' or 'escrow' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("escrow: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("owner", e.config.Owner),
		forge.F("revision", e.config.Revision),
		forge.F("grove_driver", e.config.GroveDriver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.escrow" first (namespaced pattern).
	if cm.IsSet("extensions.escrow") {
		if err := cm.Bind("extensions.escrow", &cfg); err == nil {
			e.Logger().Debug("escrow: loaded config from file",
				forge.F("key", "extensions.escrow"),
			)
			return cfg, true
		}
		e.Logger().Warn("escrow: failed to bind extensions.escrow config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "escrow" key.
	if cm.IsSet("escrow") {
		if err := cm.Bind("escrow", &cfg); err == nil {
			e.Logger().Debug("escrow: loaded config from file",
				forge.F("key", "escrow"),
			)
			return cfg, true
		}
		e.Logger().Warn("escrow: failed to bind escrow config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Revision == "" {
		cfg.Revision = defaults.Revision
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Owner == "" && programmaticConfig.Owner != "" {
		yamlConfig.Owner = programmaticConfig.Owner
	}
	if yamlConfig.Revision == "" && programmaticConfig.Revision != "" {
		yamlConfig.Revision = programmaticConfig.Revision
	}
	if yamlConfig.GroveDriver == "" && programmaticConfig.GroveDriver != "" {
		yamlConfig.GroveDriver = programmaticConfig.GroveDriver
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
