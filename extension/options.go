package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/portal"
	"github.com/xraph/portal/api"
	"github.com/xraph/portal/plugin"
	"github.com/xraph/portal/store"
)

// Option configures the portal Forge extension.
type Option func(*Extension)

// WithClient sets the billing API client. Required.
func WithClient(c api.Client) Option {
	return func(e *Extension) {
		e.client = c
	}
}

// WithStore sets the snapshot store for the portal engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB builds the snapshot store over db using the driver named by
// Config.GroveDriver.
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) {
		e.groveDB = db
	}
}

// WithPortalOption passes a portal.Option through to the underlying engine.
func WithPortalOption(opt portal.Option) Option {
	return func(e *Extension) {
		e.portalOpts = append(e.portalOpts, opt)
	}
}

// WithPlugin registers a portal plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.portalOpts = append(e.portalOpts, portal.WithPlugin(p))
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

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithRefreshAfterMutation refetches subscriptions after mutations.
func WithRefreshAfterMutation() Option {
	return func(e *Extension) { e.config.RefreshAfterMutation = true }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithGroveDriver selects the store backend built over the grove.DB.
func WithGroveDriver(driver string) Option {
	return func(e *Extension) { e.config.GroveDriver = driver }
}
