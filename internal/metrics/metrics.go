// Package metrics provides the Prometheus instruments for the script service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the script service.
type Metrics struct {
	// HTTP request metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Domain metrics
	ScriptsCreatedTotal   prometheus.Counter
	VersionsAppendedTotal prometheus.Counter
	ScriptsDeletedTotal   prometheus.Counter
	PreviewRunsTotal      *prometheus.CounterVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates and registers all metrics on the given registerer. Tests
// pass a fresh registry so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptregistry_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scriptregistry_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "scriptregistry_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	m.ScriptsCreatedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "scriptregistry_scripts_created_total",
			Help: "Total number of scripts created",
		},
	)

	m.VersionsAppendedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "scriptregistry_versions_appended_total",
			Help: "Total number of script versions appended by updates",
		},
	)

	m.ScriptsDeletedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "scriptregistry_scripts_deleted_total",
			Help: "Total number of scripts deleted",
		},
	)

	m.PreviewRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scriptregistry_preview_runs_total",
			Help: "Total number of preview executions by outcome",
		},
		[]string{"status"},
	)

	return m
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordPreview records one preview execution outcome.
func (m *Metrics) RecordPreview(status string) {
	m.PreviewRunsTotal.WithLabelValues(status).Inc()
}
