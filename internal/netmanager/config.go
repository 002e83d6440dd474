package netmanager

import "time"

// Config holds the netmanager module configuration.
type Config struct {
	PollInterval  time.Duration `mapstructure:"poll_interval" validate:"min=1s"`
	ScanEnabled   bool          `mapstructure:"scan_enabled"`
	EnrichTimeout time.Duration `mapstructure:"enrich_timeout" validate:"gt=0"`
}

// DefaultConfig returns the default configuration for the netmanager module.
func DefaultConfig() Config {
	return Config{
		PollInterval:  15 * time.Second,
		ScanEnabled:   true,
		EnrichTimeout: 5 * time.Second,
	}
}
