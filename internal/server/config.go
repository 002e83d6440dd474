package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the HTTP listener configuration.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`

	// TrustedProxies lists addresses or CIDR prefixes of reverse proxies
	// whose X-Forwarded-For header is believed.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
// A missing config file is not an error; defaults apply.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("netbridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/netbridge")
	}

	// NB_SERVER_PORT=9090, NB_PLUGINS_NETMANAGER_POLL_INTERVAL=30s
	v.SetEnvPrefix("NB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return v, nil
}

// SetDefaults registers every default netbridge knows about.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8470)
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Empty token leaves the bridge open; only sensible on loopback.
	v.SetDefault("bridge.token", "")

	v.SetDefault("host.script", "")
	v.SetDefault("host.script_step", "2s")

	v.SetDefault("plugins.netinfo.enabled", true)
	v.SetDefault("plugins.netinfo.force_refresh_on_event", true)
	v.SetDefault("plugins.netinfo.report_unknown_on_hint", true)
	v.SetDefault("plugins.netmanager.enabled", true)
	v.SetDefault("plugins.netmanager.poll_interval", "15s")
	v.SetDefault("plugins.netmanager.scan_enabled", true)
	v.SetDefault("plugins.netmanager.enrich_timeout", "5s")
	v.SetDefault("plugins.webhook.enabled", false)
	v.SetDefault("plugins.webhook.url", "")
	v.SetDefault("plugins.webhook.timeout", "10s")
	v.SetDefault("plugins.webhook.queue_size", 64)
}
