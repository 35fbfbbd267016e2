package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/i-OmSharma/MLOps-decision/pkg/arbiter"
	"github.com/i-OmSharma/MLOps-decision/pkg/config"
	"github.com/i-OmSharma/MLOps-decision/pkg/decision"
	"github.com/i-OmSharma/MLOps-decision/pkg/rules/store"
	"github.com/i-OmSharma/MLOps-decision/pkg/telemetry/health"
)

// ReloadMetrics records rule reload outcomes.
type ReloadMetrics interface {
	RecordReload(success bool)
}

// Options configures a Server.
type Options struct {
	// Config is the HTTP listener configuration.
	Config config.ServerConfig

	// Orchestrator runs the decision pipeline. Required.
	Orchestrator *decision.Orchestrator

	// Store is the rule store backing /v1/rules and reload. Required.
	Store *store.Store

	// Arbiter is described in /v1/status. Nil means disabled.
	Arbiter arbiter.Arbiter

	// Checker serves the health probes. Nil creates a default checker.
	Checker *health.Checker

	// MetricsHandler, when non-nil, is mounted at MetricsPath.
	MetricsHandler http.Handler

	// MetricsPath defaults to /metrics.
	MetricsPath string

	// ReloadMetrics, when non-nil, counts reload attempts.
	ReloadMetrics ReloadMetrics

	// Version and ReviewMode are reported by /v1/status.
	Version    string
	ReviewMode string

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Server is the decision service HTTP server.
type Server struct {
	config        config.ServerConfig
	orchestrator  *decision.Orchestrator
	store         *store.Store
	arbiter       arbiter.Arbiter
	checker       *health.Checker
	reloadMetrics ReloadMetrics
	version       string
	reviewMode    string
	logger        *slog.Logger

	metricsHandler http.Handler
	metricsPath    string

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.Mutex
	isRunning    bool
}

// New creates a server from options.
func New(opts Options) *Server {
	if opts.Arbiter == nil {
		opts.Arbiter = arbiter.Disabled{}
	}
	if opts.Checker == nil {
		opts.Checker = health.New(0)
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Server{
		config:         opts.Config,
		orchestrator:   opts.Orchestrator,
		store:          opts.Store,
		arbiter:        opts.Arbiter,
		checker:        opts.Checker,
		reloadMetrics:  opts.ReloadMetrics,
		version:        opts.Version,
		reviewMode:     opts.ReviewMode,
		metricsHandler: opts.MetricsHandler,
		metricsPath:    opts.MetricsPath,
		logger:         opts.Logger.With("component", "server"),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting decision server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("decision server stopped")
	})

	return shutdownErr
}

// Handler builds the route table with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/decide", s.handleDecide)
	mux.HandleFunc("/v1/rules", s.handleRules)
	mux.HandleFunc("/v1/rules/reload", s.handleReload)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/healthz", s.checker.LivenessHandler())
	mux.HandleFunc("/readyz", s.checker.ReadinessHandler())

	if s.metricsHandler != nil {
		mux.Handle(s.metricsPath, s.metricsHandler)
	}

	var handler http.Handler = mux
	handler = loggingMiddleware(s.logger)(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger)(handler)

	return handler
}
