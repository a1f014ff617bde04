// Copyright 2025 Certen Protocol
//
// Package telemetry serves the ambient health and metrics HTTP surface
// every service in this lineage carries: a readiness probe and a
// Prometheus scrape endpoint, each on its own configurable address.

package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server exposes a readiness probe and a Prometheus scrape endpoint.
type Server struct {
	health  *http.Server
	metrics *http.Server
	log     zerolog.Logger
}

// Ready reports whether the node considers itself ready to pre-handle
// transactions. Swapped in by the caller; defaults to always-ready.
type Ready func() bool

// NewServer builds a Server. healthAddr serves GET /healthz; metricsAddr
// serves GET /metrics against reg (pass a prometheus.Gatherer, typically
// the same *prometheus.Registry passed to metrics.NewRegistry).
func NewServer(healthAddr, metricsAddr string, reg prometheus.Gatherer, ready Ready, log zerolog.Logger) *Server {
	if ready == nil {
		ready = func() bool { return true }
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		health:  &http.Server{Addr: healthAddr, Handler: healthMux},
		metrics: &http.Server{Addr: metricsAddr, Handler: metricsMux},
		log:     log.With().Str("component", "telemetry").Logger(),
	}
}

// Start runs both listeners until ctx is cancelled, returning the first
// listener error that isn't a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		s.log.Info().Str("addr", s.health.Addr).Msg("health server listening")
		if err := s.health.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		s.log.Info().Str("addr", s.metrics.Addr).Msg("metrics server listening")
		if err := s.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.health.Shutdown(ctx); err != nil {
		return err
	}
	return s.metrics.Shutdown(ctx)
}
