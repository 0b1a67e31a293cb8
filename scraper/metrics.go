package scraper

import (
	"time"

	"github.com/aluiziolira/sitemap-explorer/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the explorer.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	SitemapsTotal   *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	ReportsTotal    *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitemap_explorer_requests_total",
			Help: "Total sitemap fetches issued, by phase (root or child).",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitemap_explorer_request_duration_seconds",
			Help:    "Latency of sitemap fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	sitemaps := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitemap_explorer_sitemaps_total",
			Help: "Total child sitemaps resolved, by category.",
		},
		[]string{"category"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitemap_explorer_errors_total",
			Help: "Total fetch and decode errors by type.",
		},
		[]string{"error_type"},
	)
	reports := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitemap_explorer_reports_total",
			Help: "Total explorations finished, by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(requests, requestDuration, sitemaps, errorsTotal, reports)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		SitemapsTotal:   sitemaps,
		ErrorsTotal:     errorsTotal,
		ReportsTotal:    reports,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncSitemap counts one resolved sitemap under its category.
func (m *Metrics) IncSitemap(category models.Category) {
	if m == nil {
		return
	}
	m.SitemapsTotal.WithLabelValues(string(category)).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncReport counts a finished exploration. Outcome is "ok", "invalid",
// "unavailable" or "internal".
func (m *Metrics) IncReport(outcome string) {
	if m == nil {
		return
	}
	m.ReportsTotal.WithLabelValues(outcome).Inc()
}
