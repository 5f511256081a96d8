package extension

import "time"

// Config holds the portal extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.portal" or "portal" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// RefreshAfterMutation refetches a subscription after every successful
	// cancel, uncancel or plan change.
	RefreshAfterMutation bool `json:"refresh_after_mutation" mapstructure:"refresh_after_mutation" yaml:"refresh_after_mutation"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// GroveDriver selects the store backend built over the grove.DB passed
	// with WithGroveDB: "postgres", "sqlite" or "mongo" (default: "postgres").
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PluginTimeout: 5 * time.Second,
		GroveDriver:   DriverPostgres,
	}
}

// Grove driver names accepted in Config.GroveDriver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)
