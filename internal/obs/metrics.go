package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth result labels
const (
	AuthVerified      = "verified"
	AuthMalformedKey  = "malformed_key"
	AuthMissingBearer = "missing_bearer"
	AuthUnknownKey    = "unknown_key"
	AuthCorruptRecord = "corrupt_record"
	AuthStoreError    = "store_error"
)

// Metrics bundles the collectors used by the service
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	KeysIssued      prometheus.Counter
	KeyCollisions   prometheus.Counter
	AuthResults     *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		KeysIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apikeys_issued_total",
			Help: "API keys issued.",
		}),
		KeyCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apikeys_key_collisions_total",
			Help: "Generated candidate keys rejected because they were already taken.",
		}),
		AuthResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apikeys_auth_results_total",
				Help: "Authentication outcomes on protected routes.",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.KeysIssued,
		m.KeyCollisions,
		m.AuthResults,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
