package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded for code requests and submissions.
const (
	OutcomeSent     = "sent"
	OutcomeBlocked  = "blocked"
	OutcomeRejected = "rejected"
	OutcomeInFlight = "in_flight"
	OutcomeError    = "error"
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
)

// Metrics holds the server's Prometheus collectors on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CodeRequests    *prometheus.CounterVec
	Submissions     *prometheus.CounterVec
	ActiveViews     prometheus.Gauge
}

// NewMetrics creates and registers the server metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signin",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signin",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		CodeRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signin",
				Name:      "validation_code_requests_total",
				Help:      "Verification code requests by outcome",
			},
			[]string{"outcome"},
		),
		Submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signin",
				Name:      "submissions_total",
				Help:      "Sign-in form submissions by outcome",
			},
			[]string{"outcome"},
		),
		ActiveViews: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "signin",
				Name:      "active_views",
				Help:      "Sign-in views currently held in memory",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) codeRequest(outcome string) {
	if m == nil {
		return
	}
	m.CodeRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) submission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) viewAdded() {
	if m == nil {
		return
	}
	m.ActiveViews.Inc()
}

func (m *Metrics) viewRemoved() {
	if m == nil {
		return
	}
	m.ActiveViews.Dec()
}

// middleware records request counts and durations by route pattern.
func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
