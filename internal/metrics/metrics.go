package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the portal's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	GateDecisions *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	Notifications *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// latencyBuckets are request latency boundaries in seconds.
var latencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// New builds the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		GateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "samaj",
			Name:      "gate_decisions_total",
			Help:      "Access gate decisions by feature and outcome.",
		}, []string{"feature", "decision"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "samaj",
			Name:      "verification_transitions_total",
			Help:      "Verification state changes by source and target state.",
		}, []string{"from", "to"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "samaj",
			Name:      "notifications_total",
			Help:      "Notification dispatch attempts by result.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "samaj",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "samaj",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   latencyBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.GateDecisions,
		m.Transitions,
		m.Notifications,
		m.HTTPRequests,
		m.HTTPDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveGate counts one access decision. Safe on a nil receiver.
func (m *Metrics) ObserveGate(feature, decision string) {
	if m == nil {
		return
	}
	m.GateDecisions.WithLabelValues(feature, decision).Inc()
}

// ObserveTransition counts one verification state change.
func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

// ObserveNotification counts one dispatch attempt by result.
func (m *Metrics) ObserveNotification(result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result).Inc()
}

// Middleware records a request count and latency per chi route pattern.
// Unmatched paths are labelled "unknown" to keep cardinality bounded.
// A nil receiver returns next unchanged.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && status != http.StatusNotFound {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
