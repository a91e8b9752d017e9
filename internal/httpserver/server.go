package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ShutdownTimeout bounds how long in-flight requests, uploads included, may
// take to finish once shutdown starts.
var ShutdownTimeout = 30 * time.Second

// Server wraps the http.Server with sensible defaults.
type Server struct {
	inner *http.Server
}

// Option adjusts the underlying http.Server.
type Option func(*http.Server)

// WithWriteTimeout bounds the time to write a response. Uploads stream the
// request body inside this window, so it is longer than usual.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		if d > 0 {
			s.WriteTimeout = d
		}
	}
}

// New constructs a server listening on the provided port.
func New(port int, handler http.Handler, opts ...Option) *Server {
	inner := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	for _, opt := range opts {
		opt(inner)
	}
	return &Server{inner: inner}
}

// Addr reports the configured listen address.
func (s *Server) Addr() string {
	return s.inner.Addr
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Serve accepts connections on l until the server is shut down. A clean
// shutdown returns nil.
func (s *Server) Serve(l net.Listener) error {
	if err := s.inner.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully terminates the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
