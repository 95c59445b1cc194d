package extension

import (
	unlocker "github.com/xraph/unlocker"
	"github.com/xraph/unlocker/plugin"
	"github.com/xraph/unlocker/store"
)

// Option configures the Unlocker Forge extension.
type Option func(*Extension)

// WithStore sets the store for the unlocker engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes an unlocker.Option through to the underlying engine.
func WithEngineOption(opt unlocker.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an unlocker plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, unlocker.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithPaused starts the engine with all mutating operations rejected.
func WithPaused() Option {
	return func(e *Extension) { e.config.Paused = true }
}

// WithPayoutDisabled starts the engine with the payout surface rejected.
func WithPayoutDisabled() Option {
	return func(e *Extension) { e.config.PayoutDisabled = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
