package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/HerbHall/netbridge/internal/version"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netbridge",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, owning plugin and status.",
		},
		[]string{"method", "route", "plugin", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "netbridge",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds. Bridge sessions are excluded.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "plugin"},
	)
	bridgeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "netbridge",
			Name:      "bridge_sessions_active",
			Help:      "Open web-content bridge connections.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, bridgeSessions)
}

// BridgePath is the long-lived WebSocket endpoint web content connects to.
const BridgePath = "/api/v1/ws/bridge"

// Plugin label values for routes no plugin owns.
const (
	labelCore   = "core"
	labelBridge = "bridge"
)

// requestClass decides how a request is logged, measured and limited.
type requestClass int

const (
	classAPI requestClass = iota
	classOperational
	classBridge
)

// RouteTable classifies requests by path and maps matched patterns to the
// plugin that mounted them.
type RouteTable struct {
	operational map[string]bool
	bridge      map[string]bool
	plugins     map[string]bool
}

// NewRouteTable builds a table from operational probe paths, long-lived
// bridge paths and the names of plugins with mounted routes.
func NewRouteTable(operational, bridge, plugins []string) *RouteTable {
	set := func(items []string) map[string]bool {
		m := make(map[string]bool, len(items))
		for _, s := range items {
			m[s] = true
		}
		return m
	}
	return &RouteTable{
		operational: set(operational),
		bridge:      set(bridge),
		plugins:     set(plugins),
	}
}

func (t *RouteTable) class(path string) requestClass {
	switch {
	case t.bridge[path]:
		return classBridge
	case t.operational[path]:
		return classOperational
	default:
		return classAPI
	}
}

// pluginLabel returns the plugin owning pattern ("GET /api/v1/netinfo/x"
// gives "netinfo"), "bridge" for the bridge endpoint and "core" otherwise.
func (t *RouteTable) pluginLabel(pattern string) string {
	if _, path, ok := strings.Cut(pattern, " "); ok {
		pattern = path
	}
	if t.bridge[pattern] {
		return labelBridge
	}
	rest, ok := strings.CutPrefix(pattern, "/api/v1/")
	if !ok {
		return labelCore
	}
	name, _, _ := strings.Cut(rest, "/")
	if t.plugins[name] {
		return name
	}
	return labelCore
}

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middleware in order (first argument is outermost).
func Chain(handler http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

type requestIDKey struct{}

// RequestID returns the request ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestIDMiddleware generates or propagates X-Request-ID headers.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// LoggingMiddleware logs API requests and bridge sessions and records
// request metrics labelled by owning plugin. Operational probes are counted
// but not logged. Bridge sessions are tracked in a gauge instead of the
// duration histogram.
func LoggingMiddleware(logger *zap.Logger, routes *RouteTable) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := routes.class(r.URL.Path)
			if class == classBridge {
				bridgeSessions.Inc()
				defer bridgeSessions.Dec()
			}

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			owner := routes.pluginLabel(r.Pattern)
			httpRequestsTotal.WithLabelValues(r.Method, route, owner, strconv.Itoa(sw.status)).Inc()

			if class != classBridge {
				httpRequestDuration.WithLabelValues(r.Method, route, owner).Observe(duration.Seconds())
			}

			switch class {
			case classBridge:
				logger.Info("bridge session closed",
					zap.Int("status", sw.status),
					zap.Duration("session", duration),
					zap.String("remote", r.RemoteAddr),
					zap.String("request_id", RequestID(r.Context())),
				)
			case classAPI:
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("plugin", owner),
					zap.Int("status", sw.status),
					zap.Duration("duration", duration),
					zap.String("remote", r.RemoteAddr),
					zap.String("request_id", RequestID(r.Context())),
				)
			}
		})
	}
}

// ResponseHeadersMiddleware sets the security headers and X-Netbridge-Version.
func ResponseHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("X-Netbridge-Version", version.Short())
		next.ServeHTTP(w, r)
	})
}

// RecoveryMiddleware catches panics and returns a 500 problem response.
func RecoveryMiddleware(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("request_id", RequestID(r.Context())),
					)
					InternalError(w, "an unexpected error occurred", r.URL.Path)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware enforces a per-client token bucket on API requests.
// Probes and the bridge upgrade are never limited: web content reconnects
// after every page load.
func RateLimitMiddleware(rps float64, burst int, routes *RouteTable, trusted []netip.Prefix) Middleware {
	rl := &clientLimiter{rateVal: rate.Limit(rps), burst: burst}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if routes.class(r.URL.Path) != classAPI {
				next.ServeHTTP(w, r)
				return
			}
			if !rl.allow(clientIP(r, trusted)) {
				RateLimited(w, "rate limit exceeded", r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientLimiter holds one limiter per client address. Entries idle for ten
// minutes are evicted once the table fills.
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientEntry
	rateVal  rate.Limit
	burst    int
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const maxTrackedClients = 1024

func (l *clientLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limiters == nil {
		l.limiters = make(map[string]*clientEntry)
	}
	e, ok := l.limiters[client]
	if !ok {
		if len(l.limiters) >= maxTrackedClients {
			cutoff := time.Now().Add(-10 * time.Minute)
			for c, old := range l.limiters {
				if old.lastSeen.Before(cutoff) {
					delete(l.limiters, c)
				}
			}
		}
		e = &clientEntry{limiter: rate.NewLimiter(l.rateVal, l.burst)}
		l.limiters[client] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

// ParseTrustedProxies parses server.trusted_proxies entries. Each entry is a
// CIDR prefix or a bare address.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: not an address or prefix", e)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// clientIP returns the peer address. X-Forwarded-For is honoured only when
// the peer is a trusted proxy; the chain is walked from the right and the
// first untrusted hop is the client.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if len(trusted) == 0 || !isTrusted(host, trusted) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !isTrusted(hop, trusted) {
			return hop
		}
		host = hop
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer so websocket upgrades can hijack it.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
