// Package server runs the HTTP listener for the game backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/brizzai/mobsq/internal/auth/middleware"
	"github.com/brizzai/mobsq/internal/config"
	"github.com/brizzai/mobsq/internal/logger"
	"github.com/brizzai/mobsq/internal/server/handler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// defaultShutdownTimeout is used when the config leaves it unset
	defaultShutdownTimeout = 5 * time.Second
)

// Server owns the http.Server and its listener.
type Server struct {
	config   *config.ServerConfig
	http     *http.Server
	listener net.Listener
	errChan  chan error
}

// NewServer creates a server for the routing table built by h.
func NewServer(cfg *config.ServerConfig, h *handler.Handler) *Server {
	return &Server{
		config: cfg,
		http: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           h.CreateHTTPHandler(),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
		errChan: make(chan error, 1),
	}
}

// Start binds the listen address and serves in the background. Bind errors
// are returned directly; later serve errors are reported on Err.
func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	s.listener = ln

	go func() {
		defer close(s.errChan)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic in HTTP server goroutine", zap.Any("error", r))
			}
		}()
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
			s.errChan <- err
		}
	}()

	logger.Info("Server listening", zap.String("address", ln.Addr().String()))
	return nil
}

// Addr is the bound address once Start has returned.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.http.Addr
	}
	return s.listener.Addr().String()
}

// Err reports a serve failure after Start. It is closed once serving stops.
func (s *Server) Err() <-chan error {
	return s.errChan
}

// Shutdown drains in-flight requests for at most the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	logger.Info("Shutting down server", zap.Duration("timeout", timeout))

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func register(lc fx.Lifecycle, s *Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.Start(ctx); err != nil {
				return err
			}
			go func() {
				if err, ok := <-s.Err(); ok {
					_ = shutdowner.Shutdown(fx.ExitCode(1))
					logger.Error("Stopping after server failure", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: s.Shutdown,
	})
}

// Module provides the HTTP server and ties it to the application lifecycle
var Module = fx.Module("server",
	fx.Provide(
		middleware.NewRateLimiter,
		handler.NewHandler,
		NewServer,
	),
	fx.Invoke(register),
)
