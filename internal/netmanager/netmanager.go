// Package netmanager implements the extended network information plugin:
// connection type plus Wi-Fi link details and annotated scan results,
// reported to web content whenever any of them changes.
package netmanager

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/HerbHall/netbridge/internal/config"
	"github.com/HerbHall/netbridge/internal/host"
	"github.com/HerbHall/netbridge/internal/netinfo"
	"github.com/HerbHall/netbridge/pkg/models"
	"github.com/HerbHall/netbridge/pkg/plugin"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

// Module implements the extended network information plugin.
type Module struct {
	logger  *zap.Logger
	cfg     Config
	bus     plugin.EventBus
	source  host.Source
	prober  host.WifiProber
	nr      *netinfo.NRFlag
	tracker *netinfo.SnapshotTracker

	// reportMu orders tracker commits with their publication.
	reportMu sync.Mutex

	mu          sync.Mutex
	unsubscribe func() error
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastPoll    time.Time
}

// New creates a netmanager module. prober may be nil when the host has no
// Wi-Fi support. nr is shared with the basic variant; nil allocates a
// private flag.
func New(source host.Source, prober host.WifiProber, nr *netinfo.NRFlag) *Module {
	if nr == nil {
		nr = &netinfo.NRFlag{}
	}
	return &Module{
		logger:  zap.NewNop(),
		cfg:     DefaultConfig(),
		source:  source,
		prober:  prober,
		nr:      nr,
		tracker: netinfo.NewSnapshotTracker(nr),
	}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        netinfo.VariantExtended,
		Version:     "0.1.0",
		Description: "Connection type, Wi-Fi link details and scan results",
		Roles:       []string{"network_info"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	if deps.Logger != nil {
		m.logger = deps.Logger
	}
	m.bus = deps.Bus

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if d := deps.Config.GetDuration("poll_interval"); d != 0 {
			m.cfg.PollInterval = d
		}
		if deps.Config.IsSet("scan_enabled") {
			m.cfg.ScanEnabled = deps.Config.GetBool("scan_enabled")
		}
		if d := deps.Config.GetDuration("enrich_timeout"); d != 0 {
			m.cfg.EnrichTimeout = d
		}
	}
	if err := config.Validate(m.cfg); err != nil {
		return fmt.Errorf("netmanager config: %w", err)
	}

	m.logger.Info("netmanager module initialized",
		zap.Duration("poll_interval", m.cfg.PollInterval),
		zap.Bool("scan_enabled", m.cfg.ScanEnabled),
		zap.Bool("wifi_prober", m.prober != nil),
	)
	return nil
}

// Start subscribes to host events, reports the initial snapshot and starts
// the poll loop.
func (m *Module) Start(ctx context.Context) error {
	m.mu.Lock()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	m.subscribe()
	m.Refresh(ctx)

	m.wg.Add(1)
	go m.runPoller()

	m.logger.Info("netmanager module started")
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.unsubscribeSource()

	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	m.logger.Info("netmanager module stopped")
	return nil
}

// Pause drops the host subscription. Polling continues.
func (m *Module) Pause() {
	m.unsubscribeSource()
}

// Resume re-registers the host subscription and refreshes.
func (m *Module) Resume(ctx context.Context) {
	m.unsubscribeSource()
	m.subscribe()
	m.Refresh(ctx)
}

// Refresh assembles a fresh observation and reports it if the snapshot
// changed.
func (m *Module) Refresh(ctx context.Context) (models.NetworkSnapshot, bool) {
	return m.OnObservation(ctx, m.Assemble(ctx))
}

// OnObservation feeds obs through the snapshot tracker and publishes a
// report on change.
func (m *Module) OnObservation(ctx context.Context, obs *models.Observation) (models.NetworkSnapshot, bool) {
	m.reportMu.Lock()
	defer m.reportMu.Unlock()

	snap, changed := m.tracker.Update(obs)
	netinfo.RecordReport(netinfo.VariantExtended, string(snap.Type), changed)
	if !changed {
		return models.NetworkSnapshot{}, false
	}

	m.logger.Debug("network info changed",
		zap.String("type", string(snap.Type)),
		zap.Int("scan_results", len(snap.ScanResults)),
	)
	if m.bus != nil {
		payload := snap
		_ = m.bus.Publish(ctx, plugin.Event{
			Topic:     netinfo.TopicInfoChanged,
			Source:    netinfo.VariantExtended,
			Timestamp: time.Now(),
			Payload:   &payload,
		})
	}
	return snap, true
}

// Assemble queries the source and, when the Wi-Fi radio is enabled and
// access is permitted, attaches link details and scan results. Enrichment
// failures leave the field empty.
func (m *Module) Assemble(ctx context.Context) *models.Observation {
	obs := m.query(ctx)
	if obs == nil || m.prober == nil {
		return obs
	}
	if !m.prober.Enabled() || !m.prober.PermissionGranted() {
		return obs
	}

	ectx, cancel := context.WithTimeout(ctx, m.cfg.EnrichTimeout)
	defer cancel()

	if obs.Wifi == nil && strings.EqualFold(obs.Medium, netinfo.MediumWifi) {
		link, err := m.prober.LinkInfo(ectx)
		if err != nil {
			netinfo.RecordEnrichmentFailure("wifi")
			m.logger.Debug("wifi link info unavailable", zap.Error(err))
		} else {
			obs.Wifi = link
		}
	}

	if m.cfg.ScanEnabled && obs.ScanResults == nil {
		aps, err := m.prober.Scan(ectx)
		if err != nil {
			netinfo.RecordEnrichmentFailure("scan")
			m.logger.Debug("wifi scan unavailable", zap.Error(err))
		} else {
			obs.ScanResults = aps
		}
	}
	return obs
}

// Last returns the last reported snapshot.
func (m *Module) Last() (models.NetworkSnapshot, bool) {
	return m.tracker.Last()
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	m.mu.Lock()
	subscribed := m.unsubscribe != nil
	lastPoll := m.lastPoll
	m.mu.Unlock()

	details := map[string]string{
		"subscribed":    strconv.FormatBool(subscribed),
		"poll_interval": m.cfg.PollInterval.String(),
		"nr_available":  strconv.FormatBool(m.nr.Available()),
	}
	if !lastPoll.IsZero() {
		details["last_poll"] = lastPoll.UTC().Format(time.RFC3339)
	}
	if snap, ok := m.tracker.Last(); ok {
		details["type"] = string(snap.Type)
	}
	return plugin.HealthStatus{Status: "healthy", Details: details}
}

func (m *Module) runPoller() {
	defer m.wg.Done()

	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh(ctx)
			m.mu.Lock()
			m.lastPoll = time.Now()
			m.mu.Unlock()
		}
	}
}

func (m *Module) handleHostEvent(ev host.Event) {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	// Service-state events are folded into the NR flag by the basic module
	// when it runs; observing here keeps the extended module correct alone.
	if ev.Kind == host.EventServiceState {
		m.nr.Observe(ev.ServiceState)
	}
	m.Refresh(ctx)
}

func (m *Module) query(ctx context.Context) *models.Observation {
	if m.source == nil {
		return nil
	}
	obs, err := m.source.Query(ctx)
	if err != nil {
		m.logger.Warn("connectivity query failed", zap.Error(err))
		return nil
	}
	return obs
}

func (m *Module) subscribe() {
	if m.source == nil {
		return
	}
	unsub, err := m.source.Subscribe(m.handleHostEvent)
	if err != nil {
		if !errors.Is(err, host.ErrNoSubscription) {
			m.logger.Warn("failed to subscribe to host events", zap.Error(err))
		}
		return
	}
	m.mu.Lock()
	m.unsubscribe = unsub
	m.mu.Unlock()
}

func (m *Module) unsubscribeSource() {
	m.mu.Lock()
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsub == nil {
		return
	}
	if err := unsub(); err != nil {
		m.logger.Warn("error unregistering host subscription", zap.Error(err))
	}
}
