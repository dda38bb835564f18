package httprpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jsonrpcd/jsonrpcd-go/interceptor"
)

// Server binds a Handler to a TCP address and manages its lifecycle. Start
// reports bind failures synchronously and serves on a background goroutine;
// Stop closes the listener and drains in-flight requests without cancelling
// them.
type Server struct {
	log     *slog.Logger
	handler *Handler

	mu  sync.Mutex
	ln  net.Listener
	srv *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger for lifecycle events. Defaults to
// slog.Default().
func WithServerLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// NewServer wraps a handler for serving over TCP.
func NewServer(handler *Handler, opts ...ServerOption) *Server {
	s := &Server{
		log:     slog.Default(),
		handler: handler,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RegisterInterceptor appends a hook to the handler's dispatch chain.
func (s *Server) RegisterInterceptor(ic interceptor.Interceptor) {
	s.handler.RegisterInterceptor(ic)
}

// Start binds addr and begins serving. A bind failure is returned here rather
// than surfacing later from the serve loop; once Start returns nil, the
// listener is accepting connections.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("http.listen.ok", slog.String("addr", ln.Addr().String()))

	go func(srv *http.Server, ln net.Listener) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http.serve.fail", slog.String("err", err.Error()))
		}
	}(s.srv, ln)
	return nil
}

// Addr returns the bound listen address, or "" before Start. With a ":0"
// bind this is how the chosen port is discovered.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop closes the listener and waits for in-flight requests to complete, up
// to ctx's deadline. In-flight work is never cancelled early.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.log.Info("http.shutdown.start")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown did not complete cleanly: %w", err)
	}
	s.log.Info("http.shutdown.ok")
	return nil
}
