// Package server hosts the stampd HTTP API: core endpoints, plugin route
// mounting and the middleware chain.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/stampd/internal/config"
	"github.com/HerbHall/stampd/internal/plugin"
	"github.com/HerbHall/stampd/internal/version"
)

// Options configures a Server.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RateLimit RateLimitOptions
	Tracing   bool
}

// OptionsFromConfig reads the server.* keys.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Addr:            net.JoinHostPort(cfg.GetString("server.host"), cfg.GetString("server.port")),
		ReadTimeout:     cfg.GetDuration("server.read_timeout"),
		WriteTimeout:    cfg.GetDuration("server.write_timeout"),
		IdleTimeout:     cfg.GetDuration("server.idle_timeout"),
		ShutdownTimeout: cfg.GetDuration("server.shutdown_timeout"),
		RateLimit: RateLimitOptions{
			Enabled: cfg.GetBool("server.rate_limit.enabled"),
			RPS:     cfg.GetFloat64("server.rate_limit.rps"),
			Burst:   cfg.GetInt("server.rate_limit.burst"),
		},
		Tracing: cfg.GetBool("server.tracing"),
	}
}

// Server is the main stampd server.
type Server struct {
	httpServer *http.Server
	registry   *plugin.Registry
	logger     *zap.Logger
	mux        *http.ServeMux
	metrics    *Metrics
	limiter    *RateLimiter
	handler    http.Handler
}

// New creates a new Server instance.
func New(opts Options, reg *plugin.Registry, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		registry: reg,
		logger:   logger,
		mux:      mux,
		metrics:  NewMetrics(),
	}

	s.registerCoreRoutes()
	s.mountPluginRoutes()

	mw := []Middleware{
		RequestID(),
		Recover(logger),
		Logger(logger),
	}
	if opts.RateLimit.Enabled {
		s.limiter = NewRateLimiter(opts.RateLimit)
		mw = append(mw, s.limiter.Middleware)
	}
	// Metrics sits next to the mux so it sees the matched route pattern.
	mw = append(mw, s.metrics.Middleware)
	if opts.Tracing {
		mw = append([]Middleware{OTel("stampd")}, mw...)
	}
	s.handler = Chain(mux, mw...)

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.handler,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// registerCoreRoutes sets up routes that are always available.
func (s *Server) registerCoreRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/plugins", s.handlePlugins)
	s.mux.HandleFunc("GET /api/v1/version", s.handleVersion)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

// mountPluginRoutes registers all plugin routes under /api/v1/{plugin}.
func (s *Server) mountPluginRoutes() {
	allRoutes := s.registry.AllRoutes()
	for pluginName, routes := range allRoutes {
		for _, route := range routes {
			pattern := fmt.Sprintf("%s /api/v1/%s%s", route.Method, pluginName, route.Path)
			s.mux.HandleFunc(pattern, route.Handler)
			s.logger.Debug("mounted route",
				zap.String("plugin", pluginName),
				zap.String("pattern", pattern),
			)
		}
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.limiter != nil {
		s.limiter.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

// handleHealth returns the server health status.
//
//	@Summary		Health check
//	@Description	Reports service status, build version and per-plugin health.
//	@Produce		json
//	@Success		200 {object} map[string]any
//	@Failure		503 {object} map[string]any
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	plugins := s.registry.Health(r.Context())
	status, code := "ok", http.StatusOK
	for _, h := range plugins {
		if h.Status != "ok" {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"service": "stampd",
		"version": version.Map(),
		"plugins": plugins,
	})
}

// handlePlugins returns the list of registered plugins.
//
//	@Summary	List plugins
//	@Produce	json
//	@Success	200 {array} plugin.Info
//	@Router		/plugins [get]
func (s *Server) handlePlugins(w http.ResponseWriter, _ *http.Request) {
	plugins := s.registry.All()
	info := make([]plugin.Info, 0, len(plugins))
	for _, p := range plugins {
		info = append(info, p.Info())
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.Map())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Stampd-Version", version.Short())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
