package server

import (
	"net/http"
)

// RelayMux routes loopback requests through a middleware chain.
//
// Patterns use [http.ServeMux] syntax, so "POST /token" also filters by method.
type RelayMux struct {
	mux   *http.ServeMux
	chain []Middleware
}

// NewRelayMux creates a mux that never lets responses be cached.
func NewRelayMux() *RelayMux {
	return &RelayMux{mux: http.NewServeMux(), chain: []Middleware{NoStore}}
}

// Use appends middleware. The first added runs outermost.
func (m *RelayMux) Use(middleware ...Middleware) {
	m.chain = append(m.chain, middleware...)
}

// Mount registers h under every pattern it reports.
//
// Middleware added after Mount does not apply to h.
func (m *RelayMux) Mount(h Handler) {
	wrapped := m.wrap(h)
	for _, pattern := range h.Routes() {
		m.mux.Handle(pattern, wrapped)
	}
}

func (m *RelayMux) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	m.mux.ServeHTTP(w, req)
}

func (m *RelayMux) wrap(h http.Handler) http.Handler {
	for i := len(m.chain) - 1; i >= 0; i-- {
		h = m.chain[i](h)
	}
	return h
}

// NoStore keeps token-bearing pages out of caches and referrer headers.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
