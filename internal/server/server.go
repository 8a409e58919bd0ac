// package server contains the loopback mux, middleware, and OAuth relay handler
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is served on the loopback address under the patterns it reports.
type Handler interface {
	http.Handler
	Routes() []string
}

// LoggingMiddleware logs each request at debug level.
func LoggingMiddleware(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
		})
	}
}

// Loopback is a short-lived HTTP server bound to a local address.
type Loopback struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr and starts serving h in the background.
//
// Use "127.0.0.1:0" to pick a free port.
func Listen(addr string, h http.Handler) (*Loopback, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("loopback server stopped", "error", err)
		}
	}()

	return &Loopback{srv: srv, ln: ln}, nil
}

// Addr returns the bound address, including the chosen port.
func (l *Loopback) Addr() string {
	return l.ln.Addr().String()
}

// URL returns the http URL for path on the bound address.
func (l *Loopback) URL(path string) string {
	return "http://" + l.Addr() + path
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (l *Loopback) Shutdown(ctx context.Context) error {
	return l.srv.Shutdown(ctx)
}
