package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Mirai3103/fib-api/internal/config"
)

// Server owns the HTTP listener and its lifecycle.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// NewServer configures, but does not open, a server for cfg.Addr.
func NewServer(cfg config.HTTPConfig, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
	}}
}

// Listen opens the listener so Addr reports the bound address (useful with port 0).
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	s.ln = ln
	return nil
}

// Addr is the bound address once Listen has run, the configured one before.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.srv.Addr
	}
	return s.ln.Addr().String()
}

// Start blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) Start() error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	log.Infof("Listening for HTTP on %s", s.Addr())
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
