// Package metrics exposes the prometheus collectors moviesearch records.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moviesearch"

type Metrics struct {
	registry *prometheus.Registry

	CatalogRequests *prometheus.CounterVec
	CatalogDuration prometheus.Histogram
	StaleResponses  prometheus.Counter
	ActiveSessions  prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		CatalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_requests_total",
			Help:      "Catalog search requests by outcome.",
		}, []string{"outcome"}),
		CatalogDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_request_duration_seconds",
			Help:      "Latency of catalog search requests.",
			Buckets:   prometheus.DefBuckets,
		}),
		StaleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_total",
			Help:      "Fetch results dropped because a newer intent superseded them.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Search sessions currently held in memory.",
		}),
	}

	reg.MustRegister(
		m.CatalogRequests,
		m.CatalogDuration,
		m.StaleResponses,
		m.ActiveSessions,
		collectors.NewGoCollector(),
	)

	return m
}

// ObserveFetch records one catalog call.
func (m *Metrics) ObserveFetch(start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.CatalogRequests.WithLabelValues(outcome).Inc()
	m.CatalogDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) StaleDropped() {
	if m == nil {
		return
	}
	m.StaleResponses.Inc()
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
