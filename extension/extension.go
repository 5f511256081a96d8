// Package extension provides the Forge extension adapter for the portal.
//
// It implements the forge.Extension interface to integrate the portal
// engine into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.portal" or "portal" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/portal"
	"github.com/xraph/portal/api"
	"github.com/xraph/portal/store"
	"github.com/xraph/portal/store/memory"
	"github.com/xraph/portal/store/mongo"
	"github.com/xraph/portal/store/postgres"
	"github.com/xraph/portal/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "portal"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Customer subscription portal"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the portal engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *portal.Portal
	client     api.Client
	store      store.Store
	groveDB    *grove.DB
	portalOpts []portal.Option
}

// New creates a new portal Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying portal engine.
// This is nil until Register is called.
func (e *Extension) Engine() *portal.Portal { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the portal engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.client == nil {
		return errors.New("portal: extension requires a billing API client (WithClient)")
	}

	if e.store == nil {
		s, err := e.resolveStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	e.engine = portal.New(e.client, e.store, e.buildPortalOpts()...)

	return vessel.Provide(fapp.Container(), func() (*portal.Portal, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("portal: extension not initialized")
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
		return errors.New("portal: store not initialized")
	}
	return e.store.Ping(ctx)
}

// resolveStore builds the grove-backed store, or an in-memory one when no
// database was supplied.
func (e *Extension) resolveStore() (store.Store, error) {
	if e.groveDB == nil {
		e.Logger().Warn("portal: no store configured, snapshots are kept in memory")
		return memory.New(), nil
	}

	switch e.config.GroveDriver {
	case DriverPostgres, "":
		return postgres.New(e.groveDB), nil
	case DriverSQLite:
		return sqlite.New(e.groveDB), nil
	case DriverMongo:
		return mongo.New(e.groveDB), nil
	default:
		return nil, fmt.Errorf("portal: unknown grove driver %q", e.config.GroveDriver)
	}
}

// buildPortalOpts constructs portal.Option values from the resolved config.
func (e *Extension) buildPortalOpts() []portal.Option {
	opts := make([]portal.Option, 0, len(e.portalOpts)+2)

	if e.config.PluginTimeout > 0 {
		opts = append(opts, portal.WithPluginTimeout(e.config.PluginTimeout))
	}
	if e.config.RefreshAfterMutation {
		opts = append(opts, portal.WithRefreshAfterMutation(true))
	}

	// Pass-through options last so they win.
	opts = append(opts, e.portalOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("portal: configuration is required but not found in config files; " +
				"ensure 'extensions.portal' or 'portal' key exists in your config")
		}
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("portal: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("refresh_after_mutation", e.config.RefreshAfterMutation),
		forge.F("plugin_timeout", e.config.PluginTimeout),
		forge.F("grove_driver", e.config.GroveDriver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.portal", "portal"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("portal: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("portal: loaded config from file", forge.F("key", key))
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	if cfg.GroveDriver == "" {
		cfg.GroveDriver = defaults.GroveDriver
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.RefreshAfterMutation {
		yamlConfig.RefreshAfterMutation = true
	}
	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}
	if yamlConfig.GroveDriver == "" && programmaticConfig.GroveDriver != "" {
		yamlConfig.GroveDriver = programmaticConfig.GroveDriver
	}
	return e.mergeWithDefaults(yamlConfig)
}
