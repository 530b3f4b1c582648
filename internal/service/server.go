package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server HTTP listener for the wristlet API.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger

	mu    sync.Mutex
	bound net.Addr
	ready chan struct{}
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// alert exports are generated inline
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	return &Server{httpServer: s, logger: logger, ready: make(chan struct{})}
}

// Start serves until Stop. A clean shutdown returns nil.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.bound = ln.Addr()
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("Starting wristlet HTTP server", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr bound listener address; blocks until Start has bound or ctx is done.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound, nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping wristlet HTTP server")
	return s.httpServer.Shutdown(ctx)
}
