package host

import (
	"context"
	"errors"
	"testing"

	"github.com/HerbHall/netbridge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripted_QueryReturnsCopy(t *testing.T) {
	src := NewScripted(&models.Observation{
		Connected: true,
		Medium:    "wifi",
		Wifi:      &models.WifiDetails{SSID: "home"},
	})

	obs, err := src.Query(context.Background())
	require.NoError(t, err)
	obs.Wifi.SSID = "changed"

	again, err := src.Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "home", again.Wifi.SSID)
}

func TestScripted_QueryNil(t *testing.T) {
	src := NewScripted(nil)
	obs, err := src.Query(context.Background())
	require.NoError(t, err)
	assert.Nil(t, obs)
}

func TestScripted_QueryError(t *testing.T) {
	src := NewScripted(nil)
	boom := errors.New("boom")
	src.SetQueryError(boom)

	_, err := src.Query(context.Background())
	assert.ErrorIs(t, err, boom)

	src.SetQueryError(nil)
	_, err = src.Query(context.Background())
	assert.NoError(t, err)
}

func TestScripted_EmitDeliversToSubscribers(t *testing.T) {
	src := NewScripted(nil)

	var got []Event
	unsub, err := src.Subscribe(func(ev Event) { got = append(got, ev) })
	require.NoError(t, err)
	assert.Equal(t, 1, src.Subscribers())

	src.Emit(&models.Observation{Connected: true, Medium: "mobile"}, false)
	src.EmitServiceState("nrState=CONNECTED")
	src.Emit(nil, true)

	require.Len(t, got, 3)
	assert.Equal(t, EventConnectivity, got[0].Kind)
	assert.Equal(t, "mobile", got[0].Observation.Medium)
	assert.Equal(t, EventServiceState, got[1].Kind)
	assert.Equal(t, "nrState=CONNECTED", got[1].ServiceState)
	assert.Nil(t, got[2].Observation)
	assert.True(t, got[2].NoConnectivity)

	// Emit also updates the queried state.
	obs, err := src.Query(context.Background())
	require.NoError(t, err)
	assert.Nil(t, obs)

	require.NoError(t, unsub())
	assert.Equal(t, 0, src.Subscribers())

	src.EmitServiceState("ignored")
	assert.Len(t, got, 3)
}

func TestScripted_SetDoesNotEmit(t *testing.T) {
	src := NewScripted(nil)
	calls := 0
	_, err := src.Subscribe(func(Event) { calls++ })
	require.NoError(t, err)

	src.Set(&models.Observation{Connected: true, Medium: "wifi"})
	assert.Equal(t, 0, calls)

	obs, err := src.Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wifi", obs.Medium)
}

func TestScriptedProber(t *testing.T) {
	p := NewScriptedProber()
	assert.True(t, p.Enabled())
	assert.True(t, p.PermissionGranted())

	link, err := p.LinkInfo(context.Background())
	require.NoError(t, err)
	assert.Nil(t, link)

	p.SetLink(&models.WifiDetails{SSID: "office", RSSI: -60}, nil)
	p.SetScan([]models.AccessPoint{{SSID: "a", Frequency: 2412}}, nil)

	link, err = p.LinkInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "office", link.SSID)

	aps, err := p.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, aps, 1)
	assert.Equal(t, 2412, aps[0].Frequency)

	p.SetScan(nil, errors.New("busy"))
	_, err = p.Scan(context.Background())
	assert.Error(t, err)

	p.SetState(false, false)
	assert.False(t, p.Enabled())
	assert.False(t, p.PermissionGranted())
}
