package extension

import (
	"github.com/xraph/gate"
	"github.com/xraph/gate/audit"
)

// Config holds the gate extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (see cmd/gate).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableAudit stops decisions from being recorded even when a store
	// is available.
	DisableAudit bool `json:"disable_audit" mapstructure:"disable_audit" yaml:"disable_audit"`

	// ManifestPath is a YAML policy manifest applied at registration.
	ManifestPath string `json:"manifest_path" mapstructure:"manifest_path" yaml:"manifest_path"`

	// GroveDriver selects the decision log backend built from the grove.DB
	// registered in the DI container: "pg", "sqlite" or "mongo". Ignored
	// when a store was given through WithStore or found in the container.
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// Gate configures decision logging on the gate itself.
	Gate gate.Config `json:"gate" mapstructure:"gate" yaml:"gate"`

	// Audit configures the decision recorder.
	Audit audit.Config `json:"audit" mapstructure:"audit" yaml:"audit"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Gate:  gate.DefaultConfig(),
		Audit: audit.DefaultConfig(),
	}
}
