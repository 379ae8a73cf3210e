package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace is the namespace of every ldcrawl metric.
	Namespace = "ldcrawl"

	// Subsystem is the subsystem of crawler metrics.
	Subsystem = "crawler"
)

// Metrics holds the crawler's Prometheus metrics.
//
// Design decision: Each Metrics owns a private registry instead of using
// prometheus.DefaultRegisterer because:
//  1. Tests can create many instances without duplicate registration panics
//  2. The served metrics contain only what this process registered
type Metrics struct {
	registry *prometheus.Registry

	ResourcesTotal       *prometheus.CounterVec
	FetchDurationSeconds *prometheus.HistogramVec
	InFlight             prometheus.Gauge
	ListenerFaultsTotal  prometheus.Counter
}

// New creates and registers the crawler metrics together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.ResourcesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "resources_total",
			Help:      "Total number of resources delivered to listeners",
		},
		[]string{"status"},
	)

	m.FetchDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a fetch holding a worker slot, including body conversion",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"status"},
	)

	m.InFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "in_flight",
			Help:      "Number of fetches currently holding a worker slot",
		},
	)

	m.ListenerFaultsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Subsystem,
			Name:      "listener_faults_total",
			Help:      "Total number of listener notifications that failed or panicked",
		},
	)

	return m
}

// FetchStarted records a fetch entering a worker slot.
func (m *Metrics) FetchStarted() {
	m.InFlight.Inc()
}

// FetchFinished records a fetch leaving its worker slot.
func (m *Metrics) FetchFinished(status string, d time.Duration) {
	m.InFlight.Dec()
	m.FetchDurationSeconds.WithLabelValues(status).Observe(d.Seconds())
}

// ResourceDelivered counts a resource by status. Requests aborted before a
// worker slot was free are counted here but have no fetch duration.
func (m *Metrics) ResourceDelivered(status string) {
	m.ResourcesTotal.WithLabelValues(status).Inc()
}

// ListenerFault records a failed listener notification.
func (m *Metrics) ListenerFault() {
	m.ListenerFaultsTotal.Inc()
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the metrics in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
