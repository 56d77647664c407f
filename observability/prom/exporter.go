// Package prom exposes the observability.Metrics calls made across the
// module as Prometheus collectors.
package prom

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/observability"
)

const namespace = "csagent"

// family groups the request counter and latency histogram of one kind of
// instrumented call. key is the label that identifies the kind.
type family struct {
	kind     string
	key      string
	labels   []string
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// Exporter implements observability.Metrics on a private Prometheus registry.
type Exporter struct {
	registry *prometheus.Registry
	families []*family
	generic  *family
	tokens   *prometheus.CounterVec
	errors   *prometheus.CounterVec
	active   prometheus.Gauge
}

// New creates an exporter with Go runtime collectors registered.
func New() *Exporter {
	e := &Exporter{registry: prometheus.NewRegistry()}
	e.families = []*family{
		e.newFamily("http", "route", "route", "method", "status_code"),
		e.newFamily("llm", "direction", "model"),
		e.newFamily("tool", "tool_name", "tool_name"),
		e.newFamily("screen", "screen", "screen", "context"),
	}
	e.generic = e.newFamily("other", "")
	e.tokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_tokens_total",
		Help:      "Tokens consumed by model calls.",
	}, []string{"direction", "model"})
	e.errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Errors by type and the kind of call that produced them.",
	}, []string{"type", "kind"})
	e.active = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_agents",
		Help:      "Agents currently serving a request.",
	})
	e.registry.MustRegister(e.tokens, e.errors, e.active, collectors.NewGoCollector())
	return e
}

func (e *Exporter) newFamily(kind, key string, labels ...string) *family {
	f := &family{
		kind:   kind,
		key:    key,
		labels: labels,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      kind + "_requests_total",
			Help:      "Instrumented " + kind + " calls.",
		}, labels),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      kind + "_request_duration_seconds",
			Help:      "Latency of instrumented " + kind + " calls.",
			Buckets:   prometheus.DefBuckets,
		}, labels),
	}
	e.registry.MustRegister(f.requests, f.latency)
	return f
}

// Registry returns the registry backing the exporter.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler(e *Exporter) http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) familyFor(labels map[string]string) (*family, prometheus.Labels) {
	for _, f := range e.families {
		if _, ok := labels[f.key]; !ok {
			continue
		}
		values := make(prometheus.Labels, len(f.labels))
		for _, name := range f.labels {
			values[name] = labels[name]
		}
		return f, values
	}
	return e.generic, prometheus.Labels{}
}

func (e *Exporter) IncrementRequests(labels map[string]string) {
	f, values := e.familyFor(labels)
	f.requests.With(values).Inc()
}

func (e *Exporter) RecordLatency(d time.Duration, labels map[string]string) {
	f, values := e.familyFor(labels)
	f.latency.With(values).Observe(d.Seconds())
}

func (e *Exporter) IncrementTokensUsed(tokens int, labels map[string]string) {
	e.tokens.WithLabelValues(labels["direction"], labels["model"]).Add(float64(tokens))
}

func (e *Exporter) RecordError(errorType string, labels map[string]string) {
	f, _ := e.familyFor(labels)
	e.errors.WithLabelValues(errorType, f.kind).Inc()
}

func (e *Exporter) SetActiveAgents(count int) { e.active.Set(float64(count)) }

var _ observability.Metrics = (*Exporter)(nil)
