package gate

// Config holds configuration for the Gate.
type Config struct {
	// LogDecisions logs every finished decision at debug level.
	LogDecisions bool `json:"log_decisions,omitempty" mapstructure:"log_decisions" yaml:"log_decisions"`

	// LogDenials logs failed decisions at info level.
	LogDenials bool `json:"log_denials,omitempty" mapstructure:"log_denials" yaml:"log_denials"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{}
}
