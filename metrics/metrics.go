// Package metrics exposes Prometheus metrics on a standalone listener,
// separate from the API listener so scrapes never compete with operator
// traffic.
package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the Prometheus scrape endpoint and owns the
// gateway's counters.
type MetricsServer struct {
	srv      *http.Server
	registry *prometheus.Registry

	// AttestationResults counts /attest outcomes by status label
	// (success, rejected, error).
	AttestationResults *prometheus.CounterVec

	// MetadataRefreshes counts metadata snapshot requests by category and
	// result label (success, error).
	MetadataRefreshes *prometheus.CounterVec
}

// New creates a metrics server for the given service name listening on
// addr. An empty addr disables the listener but counters still work.
func New(name, addr string) (*MetricsServer, error) {
	// Service names may carry dashes; metric namespaces may not
	name = strings.ReplaceAll(name, "-", "_")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	m := &MetricsServer{
		registry: registry,
		AttestationResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: name,
			Name:      "attestation_results_total",
			Help:      "Attestation request outcomes.",
		}, []string{"status"}),
		MetadataRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: name,
			Name:      "metadata_refreshes_total",
			Help:      "Metadata snapshot requests by category.",
		}, []string{"category", "result"}),
	}

	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		m.srv = &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		}
	}

	return m, nil
}

// ListenAndServe starts the scrape listener. Returns immediately when the
// listener is disabled.
func (m *MetricsServer) ListenAndServe() error {
	if m.srv == nil {
		return nil
	}
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the scrape listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}
