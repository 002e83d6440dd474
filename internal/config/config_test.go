package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViperConfig_Sub(t *testing.T) {
	v := viper.New()
	v.Set("plugins.netmanager.poll_interval", "30s")
	v.Set("plugins.netmanager.scan_enabled", false)
	v.Set("plugins.netinfo.force_refresh_on_event", true)

	cfg := New(v)
	nm := cfg.Sub("plugins").Sub("netmanager")
	assert.Equal(t, 30*time.Second, nm.GetDuration("poll_interval"))
	assert.True(t, nm.IsSet("scan_enabled"))
	assert.False(t, nm.GetBool("scan_enabled"))

	var target struct {
		PollInterval time.Duration `mapstructure:"poll_interval"`
	}
	require.NoError(t, nm.Unmarshal(&target))
	assert.Equal(t, 30*time.Second, target.PollInterval)
}

func TestViperConfig_SubMissingIsEmpty(t *testing.T) {
	cfg := New(nil)
	sub := cfg.Sub("plugins.unknown")
	require.NotNil(t, sub)
	assert.False(t, sub.IsSet("anything"))
	assert.Equal(t, "", sub.GetString("anything"))
}
