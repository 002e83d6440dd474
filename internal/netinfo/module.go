package netinfo

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/HerbHall/netbridge/internal/host"
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

// Module reports the active connection type to web content whenever it
// changes.
type Module struct {
	logger  *zap.Logger
	cfg     Config
	bus     plugin.EventBus
	source  host.Source
	nr      *NRFlag
	tracker *Tracker

	// reportMu orders tracker commits with their publication.
	reportMu sync.Mutex

	mu          sync.Mutex
	unsubscribe func() error
	runCtx      context.Context
	runCancel   context.CancelFunc
}

// New creates a netinfo module reading from source. nr is shared with the
// extended variant so both see the same NR availability; nil allocates a
// private flag.
func New(source host.Source, nr *NRFlag) *Module {
	if nr == nil {
		nr = &NRFlag{}
	}
	return &Module{
		logger:  zap.NewNop(),
		source:  source,
		nr:      nr,
		tracker: NewTracker(nr),
		cfg:     DefaultConfig(),
	}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        VariantBasic,
		Version:     "0.1.0",
		Description: "Connection type reporting",
		Roles:       []string{"connection_type"},
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.bus = deps.Bus

	m.cfg = DefaultConfig()
	if deps.Config != nil {
		if deps.Config.IsSet("force_refresh_on_event") {
			m.cfg.ForceRefreshOnEvent = deps.Config.GetBool("force_refresh_on_event")
		}
		if deps.Config.IsSet("report_unknown_on_hint") {
			m.cfg.ReportUnknownOnHint = deps.Config.GetBool("report_unknown_on_hint")
		}
	}

	m.logger.Info("netinfo module initialized",
		zap.Bool("force_refresh_on_event", m.cfg.ForceRefreshOnEvent),
		zap.Bool("report_unknown_on_hint", m.cfg.ReportUnknownOnHint),
	)
	return nil
}

// Start subscribes to host events and reports the initial connection type.
func (m *Module) Start(ctx context.Context) error {
	m.mu.Lock()
	m.runCtx, m.runCancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	m.subscribe()
	m.refresh(ctx)

	m.logger.Info("netinfo module started", zap.String("type", string(m.tracker.Last())))
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.unsubscribeSource()

	m.mu.Lock()
	if m.runCancel != nil {
		m.runCancel()
	}
	m.mu.Unlock()

	m.logger.Info("netinfo module stopped")
	return nil
}

// Pause drops the host subscription. Reports stop until Resume.
func (m *Module) Pause() {
	m.unsubscribeSource()
	m.logger.Debug("netinfo module paused")
}

// Resume re-registers the host subscription and reports any change that
// happened while paused.
func (m *Module) Resume(ctx context.Context) {
	m.unsubscribeSource()
	m.subscribe()
	m.refresh(ctx)
	m.logger.Debug("netinfo module resumed")
}

// OnObservation feeds obs through the tracker and publishes a report when
// the connection type changed. It returns the reported class, if any.
func (m *Module) OnObservation(ctx context.Context, obs *models.Observation, forceRefresh bool) (models.NetworkClass, bool) {
	m.reportMu.Lock()
	defer m.reportMu.Unlock()
	return m.observe(ctx, obs, forceRefresh)
}

func (m *Module) observe(ctx context.Context, obs *models.Observation, forceRefresh bool) (models.NetworkClass, bool) {
	class, changed := m.tracker.Update(obs, forceRefresh)
	RecordReport(VariantBasic, string(class), changed)
	if !changed {
		m.logger.Debug("connection type unchanged, no report",
			zap.String("type", string(m.tracker.Last())),
		)
		return "", false
	}
	m.publish(ctx, class)
	return class, true
}

// OnServiceStateChanged updates NR availability from a telephony
// service-state description and reclassifies the current network.
func (m *Module) OnServiceStateChanged(ctx context.Context, serviceState string) {
	available := m.nr.Observe(serviceState)
	recordNR(available)
	m.logger.Debug("service state changed", zap.Bool("nr_available", available))
	m.refresh(ctx)
}

// ConnectionInfo returns the connection type for a one-shot query without
// changing what has been reported.
func (m *Module) ConnectionInfo(ctx context.Context) models.NetworkClass {
	return m.tracker.Candidate(m.query(ctx), false)
}

// LastReported returns the last reported connection type.
func (m *Module) LastReported() models.NetworkClass {
	return m.tracker.Last()
}

// NR returns the NR availability flag shared with this module.
func (m *Module) NR() *NRFlag {
	return m.nr
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/connection", Handler: m.handleConnection},
	}
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	m.mu.Lock()
	subscribed := m.unsubscribe != nil
	m.mu.Unlock()

	status := "healthy"
	if !subscribed {
		status = "degraded"
	}
	return plugin.HealthStatus{
		Status: status,
		Details: map[string]string{
			"type":         string(m.tracker.Last()),
			"nr_available": strconv.FormatBool(m.nr.Available()),
			"subscribed":   strconv.FormatBool(subscribed),
		},
	}
}

func (m *Module) handleHostEvent(ev host.Event) {
	ctx := m.context()
	switch ev.Kind {
	case host.EventServiceState:
		m.OnServiceStateChanged(ctx, ev.ServiceState)
	case host.EventConnectivity:
		m.reportMu.Lock()
		defer m.reportMu.Unlock()
		m.observe(ctx, ev.Observation, m.cfg.ForceRefreshOnEvent)

		// Some hosts report no active network while the event itself says
		// connectivity exists. Report unknown without touching tracker state.
		if m.cfg.ReportUnknownOnHint && !ev.NoConnectivity && m.tracker.Last() == models.ConnectionNone {
			m.logger.Debug("event reports connectivity while tracked type is none")
			RecordReport(VariantBasic, string(models.ConnectionUnknown), true)
			m.publish(ctx, models.ConnectionUnknown)
		}
	}
}

// refresh queries the source and runs a forced observation.
func (m *Module) refresh(ctx context.Context) {
	m.OnObservation(ctx, m.query(ctx), true)
}

// query returns the current observation. Failures yield an absent
// observation.
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
		if errors.Is(err, host.ErrNoSubscription) {
			m.logger.Info("host source does not deliver change events")
		} else {
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

func (m *Module) context() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runCtx == nil {
		return context.Background()
	}
	return m.runCtx
}

func (m *Module) publish(ctx context.Context, class models.NetworkClass) {
	m.logger.Info("connection type changed", zap.String("type", string(class)))
	if m.bus == nil {
		return
	}
	_ = m.bus.Publish(ctx, plugin.Event{
		Topic:     TopicConnectionChanged,
		Source:    VariantBasic,
		Timestamp: time.Now(),
		Payload:   &models.ConnectionReport{Type: class},
	})
}
