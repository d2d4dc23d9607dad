// Package server provides the gateway's HTTP server: routing, the
// middleware chain, and graceful shutdown.
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

	"github.com/h2ogate/h2ogate/pkg/config"
	"github.com/h2ogate/h2ogate/pkg/gateway/handlers"
	"github.com/h2ogate/h2ogate/pkg/gateway/middleware"
)

// Deps carries the handlers the server routes to.
type Deps struct {
	// Chat serves POST /v1/chat/completions.
	Chat http.Handler

	// Pool and Credential feed the health endpoint.
	Pool       handlers.PoolStatus
	Credential handlers.CredentialStatus

	// Metrics serves GET /metrics. Nil disables the endpoint.
	Metrics http.Handler
}

// Server is the gateway HTTP server.
type Server struct {
	config       config.ServerConfig
	deps         Deps
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates the gateway server.
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	return &Server{
		config:       cfg,
		deps:         deps,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown, whether from
// context cancellation, SIGINT/SIGTERM, or a Shutdown call.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:        s.config.ListenAddress,
		Handler:     s.Handler(),
		ReadTimeout: s.config.ReadTimeout,
		// WriteTimeout also bounds SSE streams; it must comfortably
		// exceed the backend's receive timeout.
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting gateway server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("gateway server stopped")
	})

	return shutdownErr
}

// Handler returns the fully wired HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	auth := middleware.Auth(s.config.APIKey)

	// The OpenAI surface requires the API key; operational endpoints
	// stay open for probes and scrapers.
	mux.Handle("POST /v1/chat/completions", auth(s.deps.Chat))
	mux.Handle("GET /v1/models", auth(handlers.NewModelsHandler()))
	mux.Handle("GET /v1/models/{id}", auth(handlers.NewModelHandler()))
	mux.Handle("GET /healthz", handlers.NewHealthHandler(s.deps.Pool, s.deps.Credential))
	mux.Handle("GET /{$}", handlers.NewRootHandler())
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics)
	}

	var handler http.Handler = mux
	handler = middleware.CORS(s.config.CORS)(handler)
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)
	return handler
}

// IsRunning reports whether the server is accepting requests.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
