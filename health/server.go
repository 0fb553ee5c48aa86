package health

import (
	"context"
	"net/http"
	"time"

	"github.com/Keksclan/goSquirrelShield/metrics"
)

// config holds the internal configuration assembled via functional options.
type config struct {
	checkers    []Checker
	withMetrics bool
}

// Option configures a Server.
type Option func(*config)

// WithChecker registers a component checker on the health endpoint.
func WithChecker(c Checker) Option {
	return func(cfg *config) {
		cfg.checkers = append(cfg.checkers, c)
	}
}

// WithMetricsEndpoint mounts the Prometheus metrics handler at /metrics.
func WithMetricsEndpoint() Option {
	return func(cfg *config) {
		cfg.withMetrics = true
	}
}

// Server is a minimal operational HTTP server serving /healthz and,
// optionally, /metrics. It is explicitly started and stopped by the caller.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a Server listening on addr by applying functional
// options. It does not start listening; call Start.
func NewServer(addr string, opts ...Option) *Server {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", Handler(cfg.checkers...))
	if cfg.withMetrics {
		mux.Handle("/metrics", metrics.Handler())
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Mux-free access for callers embedding the endpoints in their own server.
func (s *Server) HTTPHandler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving. It blocks until the server stops, returning
// http.ErrServerClosed on a clean shutdown.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down gracefully, honoring ctx for the drain deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
