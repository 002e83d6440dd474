package netmanager

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/netbridge/internal/config"
	"github.com/HerbHall/netbridge/internal/event"
	"github.com/HerbHall/netbridge/internal/host"
	"github.com/HerbHall/netbridge/internal/netinfo"
	"github.com/HerbHall/netbridge/internal/registry"
	"github.com/HerbHall/netbridge/pkg/models"
	"github.com/HerbHall/netbridge/pkg/plugin"
	"github.com/HerbHall/netbridge/pkg/plugin/plugintest"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestContract(t *testing.T) {
	plugintest.TestPluginContract(t, func() plugin.Plugin {
		return New(host.NewScripted(nil), host.NewScriptedProber(), nil)
	})
}

type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []models.NetworkSnapshot
}

func (r *snapshotRecorder) handle(_ context.Context, ev plugin.Event) {
	snap, ok := ev.Payload.(*models.NetworkSnapshot)
	if !ok {
		return
	}
	r.mu.Lock()
	r.snaps = append(r.snaps, *snap)
	r.mu.Unlock()
}

func (r *snapshotRecorder) got() []models.NetworkSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.NetworkSnapshot(nil), r.snaps...)
}

type fixture struct {
	src    *host.Scripted
	prober *host.ScriptedProber
	mod    *Module
	rec    *snapshotRecorder
}

func newFixture(t *testing.T, initial *models.Observation, settings map[string]any) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	bus := event.NewBus(logger)
	rec := &snapshotRecorder{}
	bus.Subscribe(netinfo.TopicInfoChanged, rec.handle)

	v := viper.New()
	for k, val := range settings {
		v.Set(k, val)
	}

	f := &fixture{
		src:    host.NewScripted(initial),
		prober: host.NewScriptedProber(),
		rec:    rec,
	}
	f.mod = New(f.src, f.prober, nil)
	require.NoError(t, f.mod.Init(context.Background(), plugin.Dependencies{
		Config: config.New(v),
		Logger: logger,
		Bus:    bus,
	}))
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.mod.Start(context.Background()))
	t.Cleanup(func() { _ = f.mod.Stop(context.Background()) })
}

func TestInit_RejectsShortPollInterval(t *testing.T) {
	m := New(host.NewScripted(nil), nil, nil)
	v := viper.New()
	v.Set("poll_interval", "100ms")

	err := m.Init(context.Background(), plugin.Dependencies{
		Config: config.New(v),
		Logger: zaptest.NewLogger(t),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval")
}

func TestAssemble_EnrichesWifi(t *testing.T) {
	f := newFixture(t, &models.Observation{Connected: true, Medium: "wifi"}, nil)
	f.prober.SetLink(&models.WifiDetails{SSID: "home", RSSI: -60, Frequency: 5180}, nil)
	f.prober.SetScan([]models.AccessPoint{{SSID: "neighbour", Level: -80, Frequency: 2412}}, nil)

	obs := f.mod.Assemble(context.Background())
	require.NotNil(t, obs)
	require.NotNil(t, obs.Wifi)
	assert.Equal(t, "home", obs.Wifi.SSID)
	require.Len(t, obs.ScanResults, 1)
}

func TestAssemble_WifiMediumCaseInsensitive(t *testing.T) {
	f := newFixture(t, &models.Observation{Connected: true, Medium: "WIFI"}, nil)
	f.prober.SetLink(&models.WifiDetails{SSID: "home", RSSI: -60, Frequency: 2437}, nil)

	obs := f.mod.Assemble(context.Background())
	require.NotNil(t, obs.Wifi)
	assert.Equal(t, "home", obs.Wifi.SSID)
	assert.Equal(t, models.ConnectionWifi, netinfo.Classify(obs, false))
}

func TestAssemble_SkipsLinkInfoOffWifi(t *testing.T) {
	f := newFixture(t, &models.Observation{Connected: true, Medium: "mobile", RadioSubtypeName: "lte"}, nil)
	f.prober.SetLink(&models.WifiDetails{SSID: "home"}, nil)
	f.prober.SetScan([]models.AccessPoint{{SSID: "a", Frequency: 2412}}, nil)

	obs := f.mod.Assemble(context.Background())
	assert.Nil(t, obs.Wifi)
	assert.Len(t, obs.ScanResults, 1, "scan is attached on any medium")
}

func TestAssemble_RespectsRadioAndPermission(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		permitted bool
	}{
		{"radio off", false, true},
		{"permission denied", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &models.Observation{Connected: true, Medium: "wifi"}, nil)
			f.prober.SetLink(&models.WifiDetails{SSID: "home"}, nil)
			f.prober.SetScan([]models.AccessPoint{{SSID: "a"}}, nil)
			f.prober.SetState(tt.enabled, tt.permitted)

			obs := f.mod.Assemble(context.Background())
			assert.Nil(t, obs.Wifi)
			assert.Nil(t, obs.ScanResults)
		})
	}
}

func TestAssemble_SwallowsFailures(t *testing.T) {
	f := newFixture(t, &models.Observation{Connected: true, Medium: "wifi"}, nil)
	f.prober.SetLink(nil, errors.New("netlink busy"))
	f.prober.SetScan(nil, errors.New("scan aborted"))

	obs := f.mod.Assemble(context.Background())
	require.NotNil(t, obs)
	assert.Equal(t, "wifi", obs.Medium)
	assert.Nil(t, obs.Wifi)
	assert.Nil(t, obs.ScanResults)
}

func TestAssemble_ScanDisabled(t *testing.T) {
	f := newFixture(t, &models.Observation{Connected: true, Medium: "wifi"}, map[string]any{"scan_enabled": false})
	f.prober.SetScan([]models.AccessPoint{{SSID: "a"}}, nil)

	obs := f.mod.Assemble(context.Background())
	assert.Nil(t, obs.ScanResults)
}

func TestModule_ReportsOnChangeOnly(t *testing.T) {
	f := newFixture(t, &models.Observation{Connected: true, Medium: "wifi"}, nil)
	f.prober.SetLink(&models.WifiDetails{SSID: "home", RSSI: -60, Frequency: 2437}, nil)
	f.start(t)

	// Same state again: no report.
	f.src.Emit(&models.Observation{Connected: true, Medium: "wifi"}, false)

	// Signal drops: report.
	f.prober.SetLink(&models.WifiDetails{SSID: "home", RSSI: -80, Frequency: 2437}, nil)
	f.src.Emit(&models.Observation{Connected: true, Medium: "wifi"}, false)

	snaps := f.rec.got()
	require.Len(t, snaps, 2)
	assert.Equal(t, models.ConnectionWifi, snaps[0].Type)
	assert.Equal(t, 6, snaps[0].Wifi.Channel)
	assert.Equal(t, models.Band2_4GHz, snaps[0].Wifi.Band)
	assert.Equal(t, 3, snaps[0].Wifi.SignalLevel)
	assert.Equal(t, 1, snaps[1].Wifi.SignalLevel)
}

func TestModule_ServiceStateEvent(t *testing.T) {
	f := newFixture(t, &models.Observation{Connected: true, Medium: "mobile", RadioSubtypeName: "lte"}, nil)
	f.start(t)

	f.src.EmitServiceState("isNrAvailable = true")

	snaps := f.rec.got()
	require.Len(t, snaps, 2)
	assert.Equal(t, models.Connection4G, snaps[0].Type)
	assert.Equal(t, models.Connection5G, snaps[1].Type)
}

func TestModule_StopEndsPoller(t *testing.T) {
	f := newFixture(t, nil, map[string]any{"poll_interval": "1s"})
	require.NoError(t, f.mod.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		_ = f.mod.Stop(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.Equal(t, 0, f.src.Subscribers())
}

func newMux(m *Module) *http.ServeMux {
	mux := http.NewServeMux()
	for _, rt := range m.Routes() {
		mux.HandleFunc(rt.Method+" "+rt.Path, rt.Handler)
	}
	return mux
}

func TestHandleGetChannel(t *testing.T) {
	f := newFixture(t, nil, nil)
	mux := newMux(f.mod)

	tests := []struct {
		path        string
		wantStatus  int
		wantChannel int
	}{
		{"/channels/2412", http.StatusOK, 1},
		{"/channels/3657.5", http.StatusOK, 131},
		{"/channels/9999", http.StatusNotFound, 0},
		{"/channels/abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
				return
			}
			var entry models.ChannelEntry
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&entry))
			assert.Equal(t, tt.wantChannel, entry.Channel)
		})
	}
}

func TestHandleListChannels(t *testing.T) {
	f := newFixture(t, nil, nil)
	rr := httptest.NewRecorder()
	newMux(f.mod).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/channels", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var entries []models.ChannelEntry
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&entries))
	assert.Len(t, entries, len(netinfo.Channels()))
}

func TestHandleInfo(t *testing.T) {
	f := newFixture(t, &models.Observation{Connected: true, Medium: "ethernet"}, nil)
	mux := newMux(f.mod)

	// Before any report a fresh snapshot is assembled.
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/info", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var snap models.NetworkSnapshot
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&snap))
	assert.Equal(t, models.ConnectionEthernet, snap.Type)
	assert.Empty(t, f.rec.got(), "query must not report")

	f.start(t)
	f.src.Set(nil)

	// Last reported snapshot is served until refresh is requested.
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/info", nil))
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&snap))
	assert.Equal(t, models.ConnectionEthernet, snap.Type)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/info?refresh=true", nil))
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&snap))
	assert.Equal(t, models.ConnectionNone, snap.Type)
}

func TestModule_RunsWithoutBasicVariant(t *testing.T) {
	reg := registry.New(zaptest.NewLogger(t))
	require.NoError(t, reg.Register(New(host.NewScripted(nil), nil, nil)))
	require.NoError(t, reg.Validate())
	assert.False(t, reg.IsDisabled(netinfo.VariantExtended))
}

func TestModule_ConcurrentObservationsPublishInCommitOrder(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.start(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, medium := range []string{"wifi", "ethernet"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obs := &models.Observation{Connected: true, Medium: medium}
			for range 200 {
				f.mod.OnObservation(ctx, obs)
				f.mod.OnObservation(ctx, nil)
			}
		}()
	}
	wg.Wait()

	snaps := f.rec.got()
	require.NotEmpty(t, snaps)
	last, ok := f.mod.Last()
	require.True(t, ok)
	assert.Equal(t, last, snaps[len(snaps)-1])
}
