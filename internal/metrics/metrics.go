// Package metrics holds the Prometheus counters for sends, drafts and log
// appends. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mailscribe"

// Send statuses.
const (
	StatusOK          = "ok"
	StatusFailed      = "failed"
	StatusUnsupported = "unsupported"
)

// Draft outcomes.
const (
	OutcomeGenerated = "generated"
	OutcomeFallback  = "fallback"
	OutcomeError     = "error"
)

// Metrics groups the application counters.
type Metrics struct {
	registry          *prometheus.Registry
	emailsSent        *prometheus.CounterVec
	drafts            *prometheus.CounterVec
	logAppendFailures prometheus.Counter
}

// New creates the counters and registers them on a fresh registry together
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Send attempts by provider and status.",
		}, []string{"provider", "status"}),
		drafts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drafts_total",
			Help:      "Draft requests by backend and outcome.",
		}, []string{"backend", "outcome"}),
		logAppendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_append_failures_total",
			Help:      "Sent-mail log appends that failed after a successful send.",
		}),
	}
	reg.MustRegister(
		m.emailsSent,
		m.drafts,
		m.logAppendFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// EmailSent counts one send attempt.
func (m *Metrics) EmailSent(provider, status string) {
	if m == nil {
		return
	}
	m.emailsSent.WithLabelValues(provider, status).Inc()
}

// Draft counts one draft request.
func (m *Metrics) Draft(backend, outcome string) {
	if m == nil {
		return
	}
	m.drafts.WithLabelValues(backend, outcome).Inc()
}

// LogAppendFailed counts one failed log append.
func (m *Metrics) LogAppendFailed() {
	if m == nil {
		return
	}
	m.logAppendFailures.Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
