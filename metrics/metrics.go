// Package metrics exposes license validation counters to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Validation outcome labels.
const (
	OutcomePermanent    = "permanent"
	OutcomeTrial        = "trial"
	OutcomeNotFound     = "not_found"
	OutcomeHWIDMismatch = "hwid_mismatch"
	OutcomeExpired      = "expired"
	OutcomeBadRequest   = "bad_request"
	OutcomeUnavailable  = "unavailable"
)

// MetricsServer owns a private registry and the HTTP server that exposes it.
type MetricsServer struct {
	registry    *prometheus.Registry
	validations *prometheus.CounterVec
	srv         *http.Server
}

// New creates a MetricsServer whose metric names are prefixed with namespace.
// addr may be empty when metrics are collected but not served.
func New(namespace, addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validations_total",
		Help:      "License validations by outcome.",
	}, []string{"outcome"})

	for _, c := range []prometheus.Collector{
		validations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &MetricsServer{
		registry:    registry,
		validations: validations,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}, nil
}

// ObserveValidation counts one validation with the given outcome label.
func (m *MetricsServer) ObserveValidation(outcome string) {
	m.validations.WithLabelValues(outcome).Inc()
}

// ValidationCounter returns the counter behind an outcome label.
func (m *MetricsServer) ValidationCounter(outcome string) prometheus.Counter {
	return m.validations.WithLabelValues(outcome)
}

// Handler returns the /metrics handler.
func (m *MetricsServer) Handler() http.Handler {
	return m.srv.Handler
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
