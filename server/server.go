// Package server provides the HTTP status server for gymsync.
//
// The server owns one in-memory status.Store holding an activity timer per
// Discord id and exposes it over a small JSON API. Mutations require the
// shared API key as a bearer token; reads are public.
//
// # Endpoints
//
//   - POST /api/v1/status - Start an activity ({discord_id, status:{activity}})
//   - POST /api/v1/status/pause - Pause the running activity
//   - POST /api/v1/status/resume - Resume the paused activity
//   - POST /api/v1/status/stop - Remove the activity
//   - GET /api/v1/status/{id} - Returns {activity, time, paused}
//   - GET / - Banner
//   - GET /success - OAuth2 redirect landing page
//   - GET /health - Simple health check, returns "ok"
//   - GET /version - Build and runtime properties
//   - GET /metrics - Prometheus metrics
//   - POST /reload - Reloads configuration from disk
//
// # Architecture
//
// Config-derived dependencies (the API key verifier and the log level) are
// swapped atomically on reload. The store is created once and its records
// survive reloads.
//
// # Example
//
//	srv, err := server.New("/etc/gymsync/server.yaml", server.WithConfigWatch())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/gymsync/buildinfo"
	"github.com/nomis52/gymsync/logging"
	"github.com/nomis52/gymsync/metrics"
	"github.com/nomis52/gymsync/server/auth"
	"github.com/nomis52/gymsync/server/config"
	"github.com/nomis52/gymsync/server/handlers"
	"github.com/nomis52/gymsync/server/types"
	"github.com/nomis52/gymsync/status"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// serverDeps holds config-derived dependencies that are swapped atomically on reload.
type serverDeps struct {
	config   *config.ServerConfig
	verifier auth.Verifier
}

// Server is the gymsync status server.
type Server struct {
	addr        string
	configPath  string
	logOutput   io.Writer
	clock       status.Clock
	watchConfig bool

	logger     *logging.Logger
	deps       atomic.Pointer[serverDeps]
	store      *status.Store
	registry   *metrics.ScrapeRegistry
	instrument *handlers.Instrument
	startedAt  time.Time

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server) error

// WithListenAddr overrides the configured listen address.
func WithListenAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithClock sets the clock used by the status store.
func WithClock(c status.Clock) Option {
	return func(s *Server) error {
		s.clock = c
		return nil
	}
}

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(s *Server) error {
		s.logOutput = w
		return nil
	}
}

// WithConfigWatch reloads the configuration whenever the config file changes.
func WithConfigWatch() Option {
	return func(s *Server) error {
		if s.configPath == "" {
			return errors.New("config watch requires a config file")
		}
		s.watchConfig = true
		return nil
	}
}

// New creates a new Server with the given config path and options. An empty
// path runs with defaults and environment overrides only.
func New(configPath string, opts ...Option) (*Server, error) {
	s := &Server{
		configPath: configPath,
		logOutput:  os.Stderr,
		clock:      status.SystemClock{},
		startedAt:  time.Now(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	s.logger, err = logging.NewWithWriter(cfg.LoggingConfig(), s.logOutput)
	if err != nil {
		return nil, err
	}
	if s.addr == "" {
		s.addr = cfg.Listener.Addr
	}

	if err := s.initStore(); err != nil {
		return nil, err
	}
	s.instrument, err = handlers.NewInstrument(s.logger.Logger, s.registry)
	if err != nil {
		return nil, fmt.Errorf("creating request metrics: %w", err)
	}
	if err := s.apply(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// initStore creates the metrics registry and the store reporting into it.
func (s *Server) initStore() error {
	registry, err := metrics.NewScrapeRegistry()
	if err != nil {
		return fmt.Errorf("creating metrics registry: %w", err)
	}
	transitions, err := registry.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymsync",
		Subsystem: "status",
		Name:      "transitions_total",
		Help:      "Successful activity timer transitions by operation.",
	}, []string{"op"})
	if err != nil {
		return err
	}
	active, err := registry.NewGauge(prometheus.GaugeOpts{
		Namespace: "gymsync",
		Subsystem: "status",
		Name:      "active_records",
		Help:      "Identities with a live activity timer.",
	})
	if err != nil {
		return err
	}

	s.registry = registry
	s.store = status.NewStore(
		status.WithClock(s.clock),
		status.WithObserver(func(op status.Op, n int) {
			transitions.With(prometheus.Labels{"op": string(op)}).Inc()
			active.Set(float64(n))
		}),
	)
	return nil
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger.Logger
}

// Store returns the status store.
func (s *Server) Store() *status.Store {
	return s.store
}

// Reload reads the config from disk and rebuilds server dependencies.
func (s *Server) Reload() error {
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		return err
	}
	return s.apply(cfg)
}

func (s *Server) apply(cfg *config.ServerConfig) error {
	verifier, err := auth.NewKeyVerifier(cfg.Auth)
	if err != nil {
		return err
	}
	if err := s.logger.SetLevel(cfg.LogLevel); err != nil {
		return err
	}
	if prev := s.deps.Load(); prev != nil && prev.config.Listener != cfg.Listener {
		s.logger.Warn("listener changes take effect after restart",
			"addr", cfg.Listener.Addr)
	}

	s.deps.Store(&serverDeps{
		config:   cfg,
		verifier: verifier,
	})

	s.logger.Info("configuration loaded",
		"config_path", s.configPath,
		"log_level", cfg.LogLevel,
		"bcrypt_key", cfg.Auth.APIKeyBcrypt != "")
	return nil
}

// Config returns the current configuration.
func (s *Server) Config() *config.ServerConfig {
	return s.deps.Load().config
}

// Verifier returns the current API key verifier.
func (s *Server) Verifier() auth.Verifier {
	return s.deps.Load().verifier
}

// Properties returns metadata about the running server.
func (s *Server) Properties() types.ServerProperties {
	hostname, _ := os.Hostname()
	return types.ServerProperties{
		Build:         buildinfo.Get(),
		StartedAt:     s.startedAt,
		Hostname:      hostname,
		ActiveRecords: s.store.Len(),
	}
}

// Handler returns the server's complete HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return handlers.RequestID(handlers.CORS(s.instrument.Wrap(mux)))
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	listener := s.Config().Listener
	if listener.TLSEnabled() {
		certs, err := NewCertLoader(listener.TLSCert, listener.TLSKey, s.logger.Logger)
		if err != nil {
			return err
		}
		s.httpServer.TLSConfig = certs.TLSConfig()
	}

	if s.watchConfig {
		watcher, err := newConfigWatcher(s.configPath, s.Reload, s.logger.Logger)
		if err != nil {
			return fmt.Errorf("watching config: %w", err)
		}
		defer watcher.Close()
		go watcher.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"addr", s.addr,
			"tls", s.httpServer.TLSConfig != nil,
			"config_path", s.configPath,
			"version", buildinfo.Get().Version,
		)
		var err error
		if s.httpServer.TLSConfig != nil {
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	logger := s.logger.Logger
	protect := func(h http.Handler) http.Handler {
		return handlers.RequireBearer(logger, s, h)
	}

	// Status API
	mux.Handle("POST /api/v1/status", protect(handlers.NewStartHandler(logger, s.store)))
	mux.Handle("POST /api/v1/status/pause", protect(handlers.NewPauseHandler(logger, s.store)))
	mux.Handle("POST /api/v1/status/resume", protect(handlers.NewResumeHandler(logger, s.store)))
	mux.Handle("POST /api/v1/status/stop", protect(handlers.NewStopHandler(logger, s.store)))
	mux.Handle("GET /api/v1/status/{id}", handlers.NewQueryHandler(s.store))

	// Operational endpoints
	mux.HandleFunc("GET /{$}", handlers.HandleRoot)
	mux.HandleFunc("GET /success", handlers.HandleSuccess)
	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.Handle("GET /version", handlers.NewPropertiesHandler(s))
	mux.Handle("GET /metrics", s.registry.Handler())
	mux.Handle("POST /reload", protect(handlers.NewReloadHandler(logger, s)))
}
