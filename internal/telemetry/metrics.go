package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "codex_relay"

// Metrics owns a private Prometheus registry so tests and multiple servers
// in one process never collide on the default registry.
type Metrics struct {
	registry     *prometheus.Registry
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	codexRuns    *prometheus.CounterVec
	pagesServed  *prometheus.CounterVec
}

// NewMetrics registers all relay collectors plus the Go runtime and process
// collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "MCP tool calls by tool and outcome.",
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "MCP tool call latency.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"tool"}),
		codexRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codex_runs_total",
			Help:      "Codex subprocess invocations by outcome.",
		}, []string{"status"}),
		pagesServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_served_total",
			Help:      "Answer pages returned, first pages and continuations.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.toolCalls,
		m.toolDuration,
		m.codexRuns,
		m.pagesServed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveStores registers gauges that read live counts on every scrape.
func (m *Metrics) ObserveStores(activeSessions, pendingPages func() float64) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Live conversation sessions.",
		}, activeSessions),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_pages",
			Help:      "Unread answer remainders awaiting a page token.",
		}, pendingPages),
	)
}

// RecordToolCall counts one tool call and its latency.
func (m *Metrics) RecordToolCall(tool, status string, d time.Duration) {
	m.toolCalls.WithLabelValues(tool, status).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// CodexRun counts one codex invocation.
func (m *Metrics) CodexRun(status string) {
	m.codexRuns.WithLabelValues(status).Inc()
}

// PageServed counts one returned page.
func (m *Metrics) PageServed(kind string) {
	m.pagesServed.WithLabelValues(kind).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
