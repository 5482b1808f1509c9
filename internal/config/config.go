// Package config loads and validates journeyd's YAML configuration,
// including the declarative workspace/agent/journey seed definitions.
package config

// ConfigError indicates an invalid or unparsable configuration.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
	}
}

// applyDefaults fills unset fields after unmarshalling.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
