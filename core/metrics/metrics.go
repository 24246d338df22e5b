// Package metrics holds the Prometheus collectors exposed on /metrics.
//
//	m := metrics.New("cgiprobe")
//	r.Use(middleware.Metrics[*router.Context](m))
//	r.Get("/metrics", func(*router.Context) handler.Response { return response.Handler(m.Handler()) })
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Render outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeMalformed = "malformed_length"
	OutcomeBodyError = "body_error"
	OutcomeError     = "error"
)

// DefaultBuckets are latency buckets in seconds.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Metrics owns a private registry, not the global default one.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	renders  *prometheus.CounterVec
	bodySize prometheus.Histogram
}

// New registers the collectors under namespace, plus the Go runtime and
// process collectors.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_latency_seconds",
			Help:      "HTTP request latency.",
			Buckets:   DefaultBuckets,
		}, []string{"method"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_renders_total",
			Help:      "Diagnostic page renders by layout, mode and outcome.",
		}, []string{"layout", "mode", "outcome"}),
		bodySize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "post_body_bytes",
			Help:      "Declared length of POST bodies echoed on the page.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.latency,
		m.renders,
		m.bodySize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveRender records one page render.
func (m *Metrics) ObserveRender(layout, mode, outcome string) {
	m.renders.WithLabelValues(layout, mode, outcome).Inc()
}

// ObserveBody records the declared length of an echoed POST body.
func (m *Metrics) ObserveBody(n int64) {
	m.bodySize.Observe(float64(n))
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
