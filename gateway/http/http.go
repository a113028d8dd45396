package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platform-mesh/graphql-module-gateway/common/logger"
)

type Server interface {
	Run(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

type ServerConfig struct {
	// Gateway serves the GraphQL endpoint.
	Gateway http.Handler

	// Ready reports whether the gateway can take traffic. Nil means always ready.
	Ready func() bool

	// Addr is the address the server listens on
	Addr string

	Log *logger.Logger
}

type server struct {
	Server *http.Server
	log    *logger.Logger
}

// NewServer creates the main server serving the GraphQL API, health checks and metrics.
func NewServer(c ServerConfig) (Server, error) {
	if c.Gateway == nil {
		return nil, errors.New("gateway handler is required")
	}
	log := c.Log
	if log == nil {
		log = logger.NewNop()
	}

	s := http.NewServeMux()
	s.Handle("/graphql", c.Gateway)
	s.Handle("/healthz", HealthHandler())
	s.Handle("/readyz", ReadyHandler(c.Ready))
	s.Handle("/metrics", promhttp.Handler())

	return &server{
		Server: &http.Server{
			Handler: s,
			Addr:    c.Addr,
		},
		log: log,
	}, nil
}

// NewProbeServer serves only health checks and metrics, for a separate bind address.
func NewProbeServer(addr string, ready func() bool, log *logger.Logger) Server {
	if log == nil {
		log = logger.NewNop()
	}
	s := http.NewServeMux()
	s.Handle("/healthz", HealthHandler())
	s.Handle("/readyz", ReadyHandler(ready))
	s.Handle("/metrics", promhttp.Handler())
	return &server{Server: &http.Server{Handler: s, Addr: addr}, log: log}
}

func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func ReadyHandler(ready func() bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func (s *server) Run(ctx context.Context) error {
	s.log.Info().Str("addr", s.Server.Addr).Msg("Starting HTTP server")
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
