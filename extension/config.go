package extension

// Config holds the Escrow extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.escrow" or "escrow" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Owner is the hex address of the engine owner: the only caller
	// allowed to whitelist providers and tokens, pause and upgrade.
	Owner string `json:"owner" mapstructure:"owner" yaml:"owner"`

	// Revision selects the engine's behavior strategy at startup
	// (default: "V1", deposits inert).
	Revision string `json:"revision" mapstructure:"revision" yaml:"revision"`

	// GroveDriver names the store backend to construct for a grove.DB
	// supplied via WithGroveDB: "postgres", "sqlite" or "mongo".
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Revision: "V1",
	}
}
