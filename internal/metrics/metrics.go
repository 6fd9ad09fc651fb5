// Package metrics exposes Prometheus instrumentation for the HTTP surface, the
// remote source, the patch store and edit sessions.
//
// All methods are safe to call on a nil *Metrics, so components can take an
// optional instance without guarding every call.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics owns a private registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	remoteDuration  *prometheus.HistogramVec
	remoteTotal     *prometheus.CounterVec
	patchOps        *prometheus.CounterVec
	sessionOps      *prometheus.CounterVec
	liveSessions    prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "holocron_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holocron_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "holocron_remote_request_duration_seconds",
			Help:    "Latency of requests to the remote record source",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		remoteTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holocron_remote_requests_total",
			Help: "Requests to the remote record source by outcome",
		}, []string{"op", "outcome"}),
		patchOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holocron_patch_operations_total",
			Help: "Local patch store operations by outcome",
		}, []string{"op", "outcome"}),
		sessionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holocron_session_operations_total",
			Help: "Edit session transitions by outcome",
		}, []string{"op", "outcome"}),
		liveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "holocron_sessions_live",
			Help: "Edit sessions currently held by the registry",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration,
		m.requestTotal,
		m.remoteDuration,
		m.remoteTotal,
		m.patchOps,
		m.sessionOps,
		m.liveSessions,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Middleware records request count and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := prometheus.Labels{
			"method": r.Method,
			"route":  route,
			"status": strconv.Itoa(status),
		}
		m.requestTotal.With(labels).Inc()
		m.requestDuration.With(labels).Observe(time.Since(start).Seconds())
	})
}

// ObserveRemote records one remote source call.
func (m *Metrics) ObserveRemote(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.remoteTotal.WithLabelValues(op, outcome(err)).Inc()
	m.remoteDuration.WithLabelValues(op).Observe(d.Seconds())
}

// PatchOp records one patch store operation.
func (m *Metrics) PatchOp(op string, err error) {
	if m == nil {
		return
	}
	m.patchOps.WithLabelValues(op, outcome(err)).Inc()
}

// SessionOp records one edit session operation.
func (m *Metrics) SessionOp(op string, err error) {
	if m == nil {
		return
	}
	m.sessionOps.WithLabelValues(op, outcome(err)).Inc()
}

// SetLiveSessions reports the number of sessions held by the registry.
func (m *Metrics) SetLiveSessions(n int) {
	if m == nil {
		return
	}
	m.liveSessions.Set(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
