// Package extension provides the Forge extension adapter for Unlocker.
//
// It implements the forge.Extension interface to integrate Unlocker
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.unlocker" or
// "unlocker" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	unlocker "github.com/xraph/unlocker"
	"github.com/xraph/unlocker/store"
	"github.com/xraph/unlocker/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "unlocker"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Token custody and unlock-schedule engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Unlocker as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *unlocker.Engine
	store      store.Store
	engineOpts []unlocker.Option
}

// New creates a new Unlocker Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Unlocker instance.
// This is nil until Register is called.
func (e *Extension) Engine() *unlocker.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	e.engine = unlocker.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*unlocker.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("unlocker: extension not initialized")
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
		return errors.New("unlocker: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs unlocker.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []unlocker.Option {
	opts := make([]unlocker.Option, 0, len(e.engineOpts)+2)

	if e.config.Paused {
		opts = append(opts, unlocker.WithPauser(staticPauser(true)))
	}
	if e.config.PayoutDisabled {
		opts = append(opts, unlocker.WithPayoutGate(staticGate(false)))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

type staticPauser bool

func (p staticPauser) Paused(context.Context) bool { return bool(p) }

type staticGate bool

func (g staticGate) PayoutEnabled(context.Context) bool { return bool(g) }

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("unlocker: configuration is required but not found in config files; " +
				"ensure 'extensions.unlocker' or 'unlocker' key exists in your config")
		}

		e.config = programmaticConfig
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("unlocker: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("paused", e.config.Paused),
		forge.F("payout_disabled", e.config.PayoutDisabled),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.unlocker" first (namespaced pattern).
	if cm.IsSet("extensions.unlocker") {
		if err := cm.Bind("extensions.unlocker", &cfg); err == nil {
			e.Logger().Debug("unlocker: loaded config from file",
				forge.F("key", "extensions.unlocker"),
			)
			return cfg, true
		}
		e.Logger().Warn("unlocker: failed to bind extensions.unlocker config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "unlocker" key.
	if cm.IsSet("unlocker") {
		if err := cm.Bind("unlocker", &cfg); err == nil {
			e.Logger().Debug("unlocker: loaded config from file",
				forge.F("key", "unlocker"),
			)
			return cfg, true
		}
		e.Logger().Warn("unlocker: failed to bind unlocker config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.Paused {
		yamlConfig.Paused = true
	}
	if programmaticConfig.PayoutDisabled {
		yamlConfig.PayoutDisabled = true
	}
	return yamlConfig
}
