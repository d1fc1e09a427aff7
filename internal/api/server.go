package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/config"
	"go.uber.org/zap"
)

// RouteRegistrar adds its routes to a mux
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// NewRouter builds the mux from registrars and wraps it with the standard
// middleware stack. limiter may be nil.
func NewRouter(cfg config.HTTPConfig, limiter *RateLimiter, logger *zap.Logger, registrars ...RouteRegistrar) http.Handler {
	mux := http.NewServeMux()
	for _, r := range registrars {
		r.RegisterRoutes(mux)
	}

	middlewares := []Middleware{
		RequestID,
		AccessLog(logger),
		Recover(logger),
		CORS(cfg.CORSAllowedOrigins),
	}
	if limiter != nil {
		middlewares = append(middlewares, limiter.Middleware)
	}
	return Chain(mux, middlewares...)
}

// Server runs the HTTP listener
type Server struct {
	cfg        config.HTTPConfig
	httpServer *http.Server
	logger     *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a new HTTP server for handler
func NewServer(cfg config.HTTPConfig, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Start binds the listener and serves in the background. Bind errors are
// returned; serve errors after startup are logged.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))

	go func() {
		defer close(s.done)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped unexpectedly", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop drains in-flight requests within the shutdown timeout
func (s *Server) Stop(ctx context.Context) error {
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}

	s.logger.Info("http server stopped")
	return nil
}
