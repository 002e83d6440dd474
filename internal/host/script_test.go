package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScript = `
steps:
  - no_connectivity: true
  - observation:
      connected: true
      medium: wifi
      wifi:
        ssid: home
        rssi: -61
        frequency: 2437
  - service_state: "nrState=CONNECTED"
  - observation:
      connected: true
      medium: mobile
      radio_subtype_id: 13
`

func TestParseScript(t *testing.T) {
	s, err := ParseScript([]byte(testScript))
	require.NoError(t, err)
	require.Len(t, s.Steps, 4)

	assert.Nil(t, s.Steps[0].Observation)
	assert.True(t, s.Steps[0].NoConnectivity)

	require.NotNil(t, s.Steps[1].Observation)
	assert.Equal(t, "wifi", s.Steps[1].Observation.Medium)
	require.NotNil(t, s.Steps[1].Observation.Wifi)
	assert.Equal(t, "home", s.Steps[1].Observation.Wifi.SSID)
	assert.Equal(t, 2437, s.Steps[1].Observation.Wifi.Frequency)

	assert.Equal(t, "nrState=CONNECTED", s.Steps[2].ServiceState)
	assert.Equal(t, 13, s.Steps[3].Observation.RadioSubtypeID)
}

func TestParseScript_Invalid(t *testing.T) {
	_, err := ParseScript([]byte("steps: [unterminated"))
	assert.Error(t, err)
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScript), 0o600))

	s, err := LoadScript(path)
	require.NoError(t, err)
	assert.Len(t, s.Steps, 4)

	_, err = LoadScript(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestScript_Play(t *testing.T) {
	s, err := ParseScript([]byte(testScript))
	require.NoError(t, err)

	src := NewScripted(nil)
	var kinds []EventKind
	_, err = src.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })
	require.NoError(t, err)

	var played []int
	s.Play(src, func(i int, _ ScriptStep) { played = append(played, i) })

	assert.Equal(t, []EventKind{
		EventConnectivity, EventConnectivity, EventServiceState, EventConnectivity,
	}, kinds)
	assert.Equal(t, []int{0, 1, 2, 3}, played)
}
