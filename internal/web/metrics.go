package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lintpad/internal/analysis"
)

// Metrics owns a private registry so several servers can coexist in one
// process.
type Metrics struct {
	registry *prometheus.Registry

	analyses *prometheus.CounterVec
	duration prometheus.Histogram
	sessions prometheus.Gauge
	markers  prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		// Labels: outcome (ok, error, panic)
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lintpad",
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Analysis runs by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lintpad",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lintpad",
			Subsystem: "ws",
			Name:      "open_sessions",
			Help:      "Live websocket sessions",
		}),
		markers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lintpad",
			Subsystem: "analysis",
			Name:      "diagnostics",
			Help:      "Diagnostics per successful run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	m.registry.MustRegister(m.analyses, m.duration, m.sessions, m.markers)
	return m
}

// Observe records one runner result. It is installed as the runner observer.
func (m *Metrics) Observe(res analysis.Result) {
	m.duration.Observe(res.Duration.Seconds())
	switch {
	case res.Err == nil:
		m.analyses.WithLabelValues("ok").Inc()
		m.markers.Observe(float64(len(res.Diagnostics)))
	case res.Err.Panicked:
		m.analyses.WithLabelValues("panic").Inc()
	default:
		m.analyses.WithLabelValues("error").Inc()
	}
}

func (m *Metrics) sessionOpened() { m.sessions.Inc() }
func (m *Metrics) sessionClosed() { m.sessions.Dec() }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
