// Package api exposes the circulation core over a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"library-circulation/library"
)

// Version is reported by the healthcheck endpoint.
const Version = "1.0.0"

// Config holds the server tunables.
type Config struct {
	Addr      string  // listen address, e.g. ":4000"
	Env       string  // development, staging or production
	RateRPS   float64 // per-IP sustained request rate (default 2)
	RateBurst int     // per-IP burst capacity (default 4)
}

// Server bundles everything the HTTP handlers need.
type Server struct {
	cfg    Config
	logger *zap.Logger
	mgr    *library.Manager
}

// New wires a Server from its dependencies.
func New(cfg Config, logger *zap.Logger, mgr *library.Manager) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RateRPS <= 0 {
		cfg.RateRPS = 2
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 4
	}
	return &Server{cfg: cfg, logger: logger, mgr: mgr}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully, giving in-flight requests 20 seconds to complete.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	shutdownErr := make(chan error)
	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", s.cfg.Env))

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownErr; err != nil {
		return err
	}
	s.logger.Info("server stopped", zap.String("addr", srv.Addr))
	return nil
}
