package netinfo

// Config holds the netinfo module configuration.
type Config struct {
	// ForceRefreshOnEvent reclassifies on every connectivity event instead of
	// keeping the last reported class while connected.
	ForceRefreshOnEvent bool `mapstructure:"force_refresh_on_event"`

	// ReportUnknownOnHint reports "unknown" when the tracked class is none
	// but the host event says connectivity exists.
	ReportUnknownOnHint bool `mapstructure:"report_unknown_on_hint"`
}

// DefaultConfig returns the default configuration for the netinfo module.
func DefaultConfig() Config {
	return Config{
		ForceRefreshOnEvent: true,
		ReportUnknownOnHint: true,
	}
}
