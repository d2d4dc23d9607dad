// Package metrics provides Prometheus metrics for H2Ogate.
//
// All metrics live on a private registry so tests and embedders never collide
// with the global default registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns every Prometheus metric exported by the gateway.
type Collector struct {
	registry *prometheus.Registry

	// Backend call metrics
	backendCalls        *prometheus.CounterVec
	backendCallDuration *prometheus.HistogramVec

	// Credential metrics
	credentialRefreshes *prometheus.CounterVec

	// Pool metrics
	poolReadySessions prometheus.Gauge
	poolCreated       *prometheus.CounterVec
	poolDeleted       *prometheus.CounterVec

	// Turn metrics
	turns        *prometheus.CounterVec
	turnDuration prometheus.Histogram
}

// NewCollector creates a metrics collector with all metrics registered on a
// fresh private registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "h2ogate"
	}

	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_calls_total",
			Help:      "Backend RPC calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),

		backendCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Backend RPC call latency by endpoint.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		}, []string{"endpoint"}),

		credentialRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_refreshes_total",
			Help:      "Credential refresh attempts by kind (renew, fresh) and outcome.",
		}, []string{"kind", "outcome"}),

		poolReadySessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_ready_sessions",
			Help:      "Number of pre-warmed chat sessions currently queued.",
		}),

		poolCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_sessions_created_total",
			Help:      "Chat sessions created by mode (replenish, on_demand).",
		}, []string{"mode"}),

		poolDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_sessions_deleted_total",
			Help:      "Chat session deletions by outcome.",
		}, []string{"outcome"}),

		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed chat turns by mode (stream, complete) and outcome.",
		}, []string{"mode", "outcome"}),

		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End-to-end chat turn latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0},
		}),
	}

	registry.MustRegister(
		c.backendCalls,
		c.backendCallDuration,
		c.credentialRefreshes,
		c.poolReadySessions,
		c.poolCreated,
		c.poolDeleted,
		c.turns,
		c.turnDuration,
	)

	return c
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordBackendCall records one backend RPC call.
func (c *Collector) RecordBackendCall(endpoint, outcome string, duration time.Duration) {
	c.backendCalls.WithLabelValues(endpoint, outcome).Inc()
	c.backendCallDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCredentialRefresh records one refresh attempt.
// kind is "renew" or "fresh"; outcome is "success" or "failure".
func (c *Collector) RecordCredentialRefresh(kind, outcome string) {
	c.credentialRefreshes.WithLabelValues(kind, outcome).Inc()
}

// SetPoolReady sets the ready-session gauge.
func (c *Collector) SetPoolReady(n int) {
	c.poolReadySessions.Set(float64(n))
}

// RecordPoolCreated records one session creation.
// mode is "replenish" or "on_demand".
func (c *Collector) RecordPoolCreated(mode string) {
	c.poolCreated.WithLabelValues(mode).Inc()
}

// RecordPoolDeleted records one session deletion attempt.
func (c *Collector) RecordPoolDeleted(outcome string) {
	c.poolDeleted.WithLabelValues(outcome).Inc()
}

// RecordTurn records one completed chat turn.
func (c *Collector) RecordTurn(mode, outcome string, duration time.Duration) {
	c.turns.WithLabelValues(mode, outcome).Inc()
	c.turnDuration.Observe(duration.Seconds())
}
