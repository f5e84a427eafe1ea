// Package api serves the model registry over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"umlreg/internal/auth"
	"umlreg/internal/export"
	"umlreg/internal/registry"
	"umlreg/internal/slogutil"
)

// Server represents the HTTP API server
type Server struct {
	router   *mux.Router
	server   *http.Server
	addr     string
	logger   *slog.Logger
	registry *registry.Registry
	guard    *auth.Guard
	exporter *export.Exporter
	started  time.Time
}

// NewServer creates a new HTTP server instance. A nil guard leaves reload open.
func NewServer(addr string, reg *registry.Registry, guard *auth.Guard, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if guard == nil {
		guard = auth.NewGuard("", auth.RateLimitConfig{}, logger)
	}
	s := &Server{
		addr:     addr,
		logger:   logger,
		registry: reg,
		guard:    guard,
		exporter: export.NewExporter(logger),
		router:   mux.NewRouter(),
		started:  time.Now(),
	}

	s.registerRoutes()

	handler := s.applyMiddleware(s.router)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start serves until the server is shut down. The guard's cleanup runs until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", "addr", s.addr)
	s.guard.Start(ctx)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully")
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the router; the first middleware runs first.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return chain(handler,
		compressMiddleware(),
		corsMiddleware,
		requestIDMiddleware,
		accessLogMiddleware(s.logger),
		recoverMiddleware(s.logger),
	)
}
