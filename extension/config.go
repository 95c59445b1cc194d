package extension

// Config holds the Unlocker extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.unlocker" or "unlocker" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Paused starts the engine with all mutating operations rejected.
	// Reads stay available. Flip via WithPauser for runtime control.
	Paused bool `json:"paused" mapstructure:"paused" yaml:"paused"`

	// PayoutDisabled starts the engine with the payout surface (payouts,
	// payout-and-lock, admin payment withdrawals) rejected.
	PayoutDisabled bool `json:"payout_disabled" mapstructure:"payout_disabled" yaml:"payout_disabled"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{}
}
