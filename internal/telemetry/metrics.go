// Package telemetry collects search telemetry: Prometheus collectors on a
// private registry and an in-memory summary of recent queries. Nothing is
// reported anywhere; /metrics is scraped.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "frivillig"

// Metrics holds the Prometheus collectors. The zero value is not usable;
// a nil *Metrics ignores every call.
type Metrics struct {
	registry *prometheus.Registry

	backendCalls   *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
	fallbacks      *prometheus.CounterVec
	corpusSize     prometheus.Gauge
	corpusShards   *prometheus.GaugeVec
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// NewMetrics registers the collectors on a fresh registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		backendCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "backend_requests_total",
			Help:      "Search backend calls by backend and outcome.",
		}, []string{"backend", "outcome"}),
		backendLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "backend_duration_seconds",
			Help:      "Search backend call latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"backend"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "fallbacks_total",
			Help:      "Searches that moved past a backend.",
		}, []string{"from"}),
		corpusSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "organizations",
			Help:      "Records in the loaded flat-file corpus.",
		}),
		corpusShards: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "shards",
			Help:      "Corpus shards by load state in the last load.",
		}, []string{"state"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveBackend records one backend call.
func (m *Metrics) ObserveBackend(backend, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.backendCalls.WithLabelValues(backend, outcome).Inc()
	if d > 0 {
		m.backendLatency.WithLabelValues(backend).Observe(d.Seconds())
	}
}

// ObserveFallback records that a search moved past backend from.
func (m *Metrics) ObserveFallback(from string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(from).Inc()
}

// SetCorpus records the outcome of a corpus load.
func (m *Metrics) SetCorpus(organizations, loadedShards, failedShards int) {
	if m == nil {
		return
	}
	m.corpusSize.Set(float64(organizations))
	m.corpusShards.WithLabelValues("loaded").Set(float64(loadedShards))
	m.corpusShards.WithLabelValues("failed").Set(float64(failedShards))
}

// ObserveHTTP records one HTTP request. route is the route pattern, not
// the raw path.
func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}
