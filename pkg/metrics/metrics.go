// Package metrics exposes gateway Prometheus collectors on a private registry.
//
// All recording methods are safe to call on a nil *Metrics, so components
// can take metrics as an optional dependency.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gateway"

// Metrics holds the gateway collectors.
type Metrics struct {
	registry      *prometheus.Registry
	inFlight      prometheus.Gauge
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	admissions    *prometheus.CounterVec
	authRejects   prometheus.Counter
	downstream    *prometheus.HistogramVec
	fallbacks     *prometheus.CounterVec
	breakerStates *prometheus.GaugeVec
	mountFailures prometheus.Counter
}

// New creates a registry with the gateway collectors plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"method", "route"}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Admission control decisions by result.",
		}, []string{"result"}),
		authRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "rejections_total",
			Help:      "Requests rejected by the authentication gate.",
		}),
		downstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "downstream",
			Name:      "call_duration_seconds",
			Help:      "Duration of downstream service calls.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"service", "result"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downstream",
			Name:      "fallbacks_total",
			Help:      "Degraded responses served per service.",
		}, []string{"service"}),
		breakerStates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "downstream",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per service (0 closed, 1 half-open, 2 open).",
		}, []string{"service"}),
		mountFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "mount_failures_total",
			Help:      "Route registrars that failed to mount.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.inFlight,
		m.requests,
		m.duration,
		m.admissions,
		m.authRejects,
		m.downstream,
		m.fallbacks,
		m.breakerStates,
		m.mountFailures,
	)

	return m
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestStarted increments the in-flight gauge. Call the returned func when
// the request completes.
func (m *Metrics) RequestStarted() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// ObserveRequest records a completed request. route should be the matched
// route pattern, not the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Admission records a rate-limit decision: "allowed", "denied", "bypassed"
// or "error".
func (m *Metrics) Admission(result string) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(result).Inc()
}

// AuthRejected counts a request turned away by the authentication gate.
func (m *Metrics) AuthRejected() {
	if m == nil {
		return
	}
	m.authRejects.Inc()
}

// DownstreamCall records one downstream round-trip.
func (m *Metrics) DownstreamCall(service, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.downstream.WithLabelValues(service, result).Observe(elapsed.Seconds())
}

// Fallback counts a degraded response for service.
func (m *Metrics) Fallback(service string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(service).Inc()
}

// BreakerState records the breaker state for service.
func (m *Metrics) BreakerState(service string, state int) {
	if m == nil {
		return
	}
	m.breakerStates.WithLabelValues(service).Set(float64(state))
}

// MountFailed counts a registrar that could not be mounted.
func (m *Metrics) MountFailed() {
	if m == nil {
		return
	}
	m.mountFailures.Inc()
}
