// Package server provides the netbridge HTTP server: operational probes,
// metrics, plugin routes and the web-content bridge.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/HerbHall/netbridge/internal/version"
	"github.com/HerbHall/netbridge/pkg/plugin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// PluginSource provides the server with plugin metadata, routes and
// lifecycle control. Defined here (consumer-side) rather than importing the
// concrete registry.
type PluginSource interface {
	AllRoutes() map[string][]plugin.Route
	AllHealth(ctx context.Context) map[string]plugin.HealthStatus
	Infos() []plugin.PluginInfo
	IsDisabled(name string) bool
	PauseAll() bool
	ResumeAll(ctx context.Context) bool
	Paused() bool
}

// ReadinessChecker verifies that the server is ready to serve traffic.
// Returns nil if ready, an error describing why not otherwise.
type ReadinessChecker func(ctx context.Context) error

// RouteRegistrar registers extra routes on the server mux.
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Options tunes the server. Zero values select defaults.
type Options struct {
	RateLimit float64
	RateBurst int

	// TrustedProxies may set X-Forwarded-For. Empty means the peer address
	// is always the client.
	TrustedProxies []netip.Prefix
}

// Server is the netbridge HTTP server.
type Server struct {
	httpServer *http.Server
	plugins    PluginSource
	logger     *zap.Logger
	mux        *http.ServeMux
	ready      ReadinessChecker
}

// operationalPaths skip rate limiting and request logging.
var operationalPaths = []string{"/healthz", "/readyz", "/metrics"}

// New creates a new Server with middleware and routes.
func New(addr string, plugins PluginSource, logger *zap.Logger, ready ReadinessChecker, opts Options, extraRoutes ...RouteRegistrar) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 50
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 100
	}

	mux := http.NewServeMux()
	s := &Server{
		plugins: plugins,
		logger:  logger,
		mux:     mux,
		ready:   ready,
	}

	s.registerRoutes()
	for _, r := range extraRoutes {
		r.RegisterRoutes(mux)
	}
	mounted := s.mountPluginRoutes()
	routes := NewRouteTable(operationalPaths, []string{BridgePath}, mounted)

	// Middleware chain: outermost listed first.
	handler := Chain(mux,
		RecoveryMiddleware(logger),
		RequestIDMiddleware,
		LoggingMiddleware(logger, routes),
		ResponseHeadersMiddleware,
		RateLimitMiddleware(opts.RateLimit, opts.RateBurst, routes, opts.TrustedProxies),
	)

	// No WriteTimeout: bridge websockets are long-lived.
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// registerRoutes sets up all core routes.
func (s *Server) registerRoutes() {
	// Unversioned operational endpoints.
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Versioned API endpoints.
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/plugins", s.handlePlugins)
	s.mux.HandleFunc("GET /api/v1/lifecycle", s.handleLifecycle)
	s.mux.HandleFunc("POST /api/v1/lifecycle/{action}", s.handleLifecycleAction)
}

// mountPluginRoutes registers all plugin routes under /api/v1/{plugin}/ and
// returns the names of the plugins it mounted.
func (s *Server) mountPluginRoutes() []string {
	var mounted []string
	for pluginName, routes := range s.plugins.AllRoutes() {
		mounted = append(mounted, pluginName)
		for _, route := range routes {
			pattern := fmt.Sprintf("%s /api/v1/%s%s", route.Method, pluginName, route.Path)
			s.mux.HandleFunc(pattern, route.Handler)
			s.logger.Debug("mounted route",
				zap.String("plugin", pluginName),
				zap.String("pattern", pattern),
			)
		}
	}
	return mounted
}

// Start begins serving HTTP requests on the configured address.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleHealthz is a liveness probe -- returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReadyz checks readiness -- returns 200 if the server can serve traffic.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string                         `json:"status" example:"ok"`
	Service string                         `json:"service" example:"netbridge"`
	Version map[string]string              `json:"version"`
	Paused  bool                           `json:"paused"`
	Plugins map[string]plugin.HealthStatus `json:"plugins"`
}

// PluginResponse describes a registered plugin.
type PluginResponse struct {
	Name        string   `json:"name" example:"netinfo"`
	Version     string   `json:"version" example:"0.1.0"`
	Description string   `json:"description"`
	Roles       []string `json:"roles,omitempty"`
	Enabled     bool     `json:"enabled"`
}

// handleHealth aggregates plugin health. Overall status is "degraded" when
// any plugin is not healthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	plugins := s.plugins.AllHealth(r.Context())
	status := "ok"
	for _, h := range plugins {
		if h.Status != "healthy" {
			status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  status,
		Service: "netbridge",
		Version: version.Map(),
		Paused:  s.plugins.Paused(),
		Plugins: plugins,
	})
}

// handlePlugins returns the list of registered plugins.
func (s *Server) handlePlugins(w http.ResponseWriter, _ *http.Request) {
	infos := s.plugins.Infos()
	out := make([]PluginResponse, 0, len(infos))
	for i := range infos {
		out = append(out, PluginResponse{
			Name:        infos[i].Name,
			Version:     infos[i].Version,
			Description: infos[i].Description,
			Roles:       infos[i].Roles,
			Enabled:     !s.plugins.IsDisabled(infos[i].Name),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// LifecycleResponse reports the host lifecycle state.
type LifecycleResponse struct {
	Paused  bool `json:"paused"`
	Changed bool `json:"changed"`
}

func (s *Server) handleLifecycle(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LifecycleResponse{Paused: s.plugins.Paused()})
}

// handleLifecycleAction pauses or resumes the modules, mirroring the host
// application moving to the background and back.
func (s *Server) handleLifecycleAction(w http.ResponseWriter, r *http.Request) {
	var changed bool
	switch action := r.PathValue("action"); action {
	case "pause":
		changed = s.plugins.PauseAll()
	case "resume":
		changed = s.plugins.ResumeAll(r.Context())
	default:
		NotFound(w, fmt.Sprintf("unknown lifecycle action %q", action), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, LifecycleResponse{Paused: s.plugins.Paused(), Changed: changed})
}
