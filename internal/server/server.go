package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/dbviz/dbviz/internal/config"
)

type Server struct {
	cfg        config.ServerConfig
	handler    http.Handler
	httpServer *http.Server
	listener   net.Listener
	log        zerolog.Logger
	ready      atomic.Bool
}

func NewServer(cfg config.ServerConfig, handler http.Handler, log zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		log:     log,
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	addr := s.cfg.Addr()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", addr, err)
	}
	s.listener = listener

	limit := &limitedListener{
		Listener:  listener,
		semaphore: make(chan struct{}, s.cfg.MaxConnections),
	}

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	s.ready.Store(true)
	s.log.Info().
		Str("addr", listener.Addr().String()).
		Int("max_connections", s.cfg.MaxConnections).
		Msg("HTTP server listening")

	go func() {
		if err := s.httpServer.Serve(limit); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.log.Info().Msg("Shutting down HTTP server gracefully")
	s.ready.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.log.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Server) IsReady() bool {
	return s.ready.Load()
}

func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr()
}

// WaitForShutdown blocks until ctx is done or SIGINT/SIGTERM arrives, then
// stops the server.
func (s *Server) WaitForShutdown(ctx context.Context) error {
	if !s.IsReady() {
		s.log.Warn().Msg("WaitForShutdown called but server not started")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	s.log.Info().Msg("Shutdown requested")

	return s.Stop()
}

// limitedListener caps the number of open connections; Accept blocks while
// the cap is reached.
type limitedListener struct {
	net.Listener
	semaphore chan struct{}
}

func (l *limitedListener) Accept() (net.Conn, error) {
	l.semaphore <- struct{}{}

	conn, err := l.Listener.Accept()
	if err != nil {
		<-l.semaphore
		return nil, err
	}

	return &limitedConn{Conn: conn, semaphore: l.semaphore}, nil
}

type limitedConn struct {
	net.Conn
	semaphore chan struct{}
	once      sync.Once
}

func (c *limitedConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(func() { <-c.semaphore })
	return err
}
