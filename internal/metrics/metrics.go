// Package metrics exposes Prometheus collectors for the redirector.
package metrics

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

	"github.com/dgnsrekt/archive_redirector/internal/types"
)

const namespace = "archive_redirector"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Navigation metrics
	Decisions      *prometheus.CounterVec
	NavigateErrors prometheus.Counter
	TrackedTabs    prometheus.Gauge
	AttachedTabs   prometheus.Gauge

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Event stream metrics
	StreamClients *prometheus.GaugeVec

	// Settings metrics
	RecommendedFetches *prometheus.CounterVec
}

// New creates collectors on a private registry so several instances can
// coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Navigation decisions by hook and outcome",
			},
			[]string{"hook", "outcome"},
		),
		NavigateErrors: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "navigate_errors_total",
				Help:      "Redirects whose tab navigation request failed",
			},
		),
		TrackedTabs: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tracked_tabs",
				Help:      "Tabs with handled URLs in the tracker",
			},
		),
		AttachedTabs: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "attached_tabs",
				Help:      "Browser tabs attached over CDP",
			},
		),

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),

		StreamClients: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "event_stream_clients",
				Help:      "Connected decision stream clients by transport",
			},
			[]string{"transport"},
		),

		RecommendedFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recommended_fetches_total",
				Help:      "Recommended domain list fetches by result",
			},
			[]string{"result"},
		),
	}
}

// Registry returns the registry backing these collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDecision counts one interceptor decision.
func (m *Metrics) RecordDecision(rec types.DecisionRecord) {
	m.Decisions.WithLabelValues(string(rec.Hook), rec.Outcome).Inc()
	if rec.Target != "" && rec.Error != "" {
		m.NavigateErrors.Inc()
	}
}

// SetTrackedTabs matches tracker.WithOnChange.
func (m *Metrics) SetTrackedTabs(n int) {
	m.TrackedTabs.Set(float64(n))
}

func (m *Metrics) SetAttachedTabs(n int) {
	m.AttachedTabs.Set(float64(n))
}

// StreamConnected increments the client gauge and returns its decrement.
func (m *Metrics) StreamConnected(transport string) func() {
	g := m.StreamClients.WithLabelValues(transport)
	g.Inc()
	return g.Dec
}

// RecordRecommendedFetch counts a fetch of the recommended list.
func (m *Metrics) RecordRecommendedFetch(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RecommendedFetches.WithLabelValues(result).Inc()
}

// Middleware records request counts and latency keyed by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
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
