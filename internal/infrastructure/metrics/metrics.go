// Package metrics exposes assetsync Prometheus collectors.
//
// Collectors live on a private registry rather than the global default so
// that tests and multiple servers in one process do not collide.
//
//	m := metrics.New()
//	router.Handle("/metrics", m.Handler())
//	m.ObserveReconciliation("gateway_routed", "pass", 180*time.Millisecond)
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "assetsync"

// Metrics holds every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	reconciliations    *prometheus.CounterVec
	reconcileDuration  *prometheus.HistogramVec
	steps              *prometheus.CounterVec
	invalidEvents      prometheus.Counter
	trackingItemWrites *prometheus.CounterVec
}

// New registers the collectors, plus Go runtime and process collectors, on
// a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		reconciliations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_total",
				Help:      "Reconciliation runs by device class and final status",
			},
			[]string{"class", "status"},
		),
		reconcileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reconciliation_duration_seconds",
				Help:      "Wall time of one reconciliation run",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"class"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliation_steps_total",
				Help:      "Side-effecting calls by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		invalidEvents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invalid_events_total",
				Help:      "Change events rejected before reconciliation",
			},
		),
		trackingItemWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tracking_item_writes_total",
				Help:      "Tracking board item writes by kind (created, updated, none)",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.reconciliations,
		m.reconcileDuration,
		m.steps,
		m.invalidEvents,
		m.trackingItemWrites,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served HTTP request. route should be the
// matched pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObserveReconciliation records one finished run.
func (m *Metrics) ObserveReconciliation(class, status string, d time.Duration) {
	m.reconciliations.WithLabelValues(class, status).Inc()
	m.reconcileDuration.WithLabelValues(class).Observe(d.Seconds())
}

// ObserveStep records one side-effecting call.
func (m *Metrics) ObserveStep(operation, status string) {
	m.steps.WithLabelValues(operation, status).Inc()
}

// ObserveTrackingWrite records what happened to the tracking board item.
func (m *Metrics) ObserveTrackingWrite(kind string) {
	m.trackingItemWrites.WithLabelValues(kind).Inc()
}

// IncInvalidEvents counts a rejected change event.
func (m *Metrics) IncInvalidEvents() {
	m.invalidEvents.Inc()
}
