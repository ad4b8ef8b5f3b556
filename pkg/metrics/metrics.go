// Package metrics exposes request and session metrics to prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics groups the collectors recorded by the request plugs.
type Metrics struct {
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	halted   *prometheus.CounterVec
	sessions prometheus.Gauge
}

// New registers the collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feather",
			Name:      "http_requests_total",
			Help:      "Requests served, by method and status.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "feather",
			Name:      "http_request_duration_seconds",
			Help:      "Time spent in the plug pipeline.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		halted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feather",
			Name:      "pipeline_halted_total",
			Help:      "Requests halted before reaching a handler, by status.",
		}, []string{"status"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "feather",
			Name:      "sessions_active",
			Help:      "Sessions held in memory.",
		}),
	}
	m.reg.MustRegister(
		m.requests, m.duration, m.halted, m.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records one finished request.
func (m *Metrics) Observe(method string, status int, halted bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
	if halted {
		m.halted.WithLabelValues(code).Inc()
	}
}

// SetSessions records the number of live sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the metrics in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// FastHTTPHandler serves the metrics on a fasthttp server.
func (m *Metrics) FastHTTPHandler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(m.Handler())
}
