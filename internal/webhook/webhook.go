// Package webhook forwards connection and network info reports to an HTTP
// endpoint owned by the host environment.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HerbHall/netbridge/internal/config"
	"github.com/HerbHall/netbridge/internal/netinfo"
	"github.com/HerbHall/netbridge/internal/version"
	"github.com/HerbHall/netbridge/pkg/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

var deliveries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "netbridge_webhook_deliveries_total",
		Help: "Webhook delivery attempts by result.",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(deliveries)
}

// Config holds the webhook plugin configuration.
type Config struct {
	URL       string        `mapstructure:"url" validate:"omitempty,url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	QueueSize int           `mapstructure:"queue_size" validate:"min=1"`
}

// DefaultConfig returns the webhook defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:   10 * time.Second,
		QueueSize: 64,
	}
}

// Payload is the JSON body sent to the webhook URL. Event carries the same
// event name web content receives over the bridge.
type Payload struct {
	Event     string `json:"event"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// Module posts every report to the configured URL. Delivery happens on a
// single worker goroutine so reports arrive in the order they were made;
// when the queue is full new reports are dropped.
type Module struct {
	logger *zap.Logger
	cfg    Config
	bus    plugin.EventBus
	client *http.Client

	mu     sync.Mutex
	queue  chan Payload // nil when not running
	unsubs []func()
	wg     sync.WaitGroup
	cancel context.CancelFunc

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// New creates a new webhook plugin instance.
func New() *Module {
	return &Module{logger: zap.NewNop(), cfg: DefaultConfig()}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "webhook",
		Version:     "0.1.0",
		Description: "Forwards change reports to an HTTP endpoint",
		Roles:       []string{"notification"},
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
		m.cfg.URL = deps.Config.GetString("url")
		m.cfg.Token = deps.Config.GetString("token")
		if d := deps.Config.GetDuration("timeout"); d != 0 {
			m.cfg.Timeout = d
		}
		if n := deps.Config.GetInt("queue_size"); n != 0 {
			m.cfg.QueueSize = n
		}
	}
	if err := config.Validate(m.cfg); err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}

	m.client = &http.Client{Timeout: m.cfg.Timeout}
	if m.cfg.URL == "" {
		m.logger.Warn("webhook URL not configured; reports will not be forwarded")
	}
	m.logger.Info("webhook module initialized",
		zap.String("url", m.cfg.URL),
		zap.Duration("timeout", m.cfg.Timeout),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error {
	if m.cfg.URL == "" || m.bus == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	queue := make(chan Payload, m.cfg.QueueSize)
	m.mu.Lock()
	m.queue = queue
	m.mu.Unlock()

	m.unsubs = []func(){
		m.bus.Subscribe(netinfo.TopicConnectionChanged, m.enqueue(netinfo.EventNameConnection)),
		m.bus.Subscribe(netinfo.TopicInfoChanged, m.enqueue(netinfo.EventNameNetworkInfo)),
	}

	m.wg.Add(1)
	go m.run(ctx, queue)

	m.logger.Info("webhook module started")
	return nil
}

// Stop unsubscribes, then delivers what is still queued before returning.
// When ctx expires first, the in-flight request is aborted and the rest of
// the queue is dropped.
func (m *Module) Stop(ctx context.Context) error {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil

	m.mu.Lock()
	queue := m.queue
	m.queue = nil
	m.mu.Unlock()
	if queue == nil {
		m.logger.Info("webhook module stopped")
		return nil
	}

	close(queue)
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		m.cancel()
		<-done
		err = fmt.Errorf("webhook drain: %w", ctx.Err())
	}
	m.cancel()

	m.logger.Info("webhook module stopped", zap.Int64("dropped", m.dropped.Load()))
	return err
}

// Health implements plugin.HealthChecker. Failed deliveries degrade health.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	status := "healthy"
	if m.failed.Load() > 0 || m.dropped.Load() > 0 {
		status = "degraded"
	}
	return plugin.HealthStatus{
		Status: status,
		Details: map[string]string{
			"configured": strconv.FormatBool(m.cfg.URL != ""),
			"delivered":  strconv.FormatInt(m.delivered.Load(), 10),
			"failed":     strconv.FormatInt(m.failed.Load(), 10),
			"dropped":    strconv.FormatInt(m.dropped.Load(), 10),
		},
	}
}

func (m *Module) enqueue(eventName string) plugin.EventHandler {
	return func(_ context.Context, event plugin.Event) {
		p := Payload{
			Event:     eventName,
			Source:    event.Source,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Data:      event.Payload,
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.queue == nil {
			return
		}
		select {
		case m.queue <- p:
		default:
			m.dropped.Add(1)
			deliveries.WithLabelValues("dropped").Inc()
			m.logger.Warn("webhook queue full, dropping report", zap.String("event", eventName))
		}
	}
}

func (m *Module) run(ctx context.Context, queue <-chan Payload) {
	defer m.wg.Done()
	for p := range queue {
		if ctx.Err() != nil {
			m.dropped.Add(1)
			deliveries.WithLabelValues("dropped").Inc()
			continue
		}
		m.send(ctx, p)
	}
}

func (m *Module) send(ctx context.Context, p Payload) {
	body, err := json.Marshal(p)
	if err != nil {
		m.logger.Error("failed to marshal webhook payload", zap.String("event", p.Event), zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, bytes.NewReader(body))
	if err != nil {
		m.logger.Error("failed to create webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "netbridge-webhook/"+version.Short())
	if m.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+m.cfg.Token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.fail(p.Event, zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		m.fail(p.Event, zap.Int("status_code", resp.StatusCode))
		return
	}

	m.delivered.Add(1)
	deliveries.WithLabelValues("ok").Inc()
	m.logger.Debug("webhook delivered", zap.String("event", p.Event), zap.Int("status_code", resp.StatusCode))
}

func (m *Module) fail(event string, reason zap.Field) {
	m.failed.Add(1)
	deliveries.WithLabelValues("error").Inc()
	m.logger.Warn("webhook delivery failed",
		zap.String("url", m.cfg.URL),
		zap.String("event", event),
		reason,
	)
}
