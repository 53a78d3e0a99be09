// Package metrics exposes the service's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sessionhalt"

// Metrics owns its registry so tests and multiple instances never collide on
// the global one. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	decisions   *prometheus.CounterVec
	classifier  *prometheus.CounterVec
	enrollments *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_decisions_total",
			Help:      "Authentication decisions by operation and terminal state.",
		}, []string{"operation", "state"}),
		classifier: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_calls_total",
			Help:      "Classifier calls by outcome or diagnostic.",
		}, []string{"result"}),
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollments_total",
			Help:      "Fingerprint enrollment attempts by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.decisions,
		m.classifier,
		m.enrollments,
	)
	return m
}

func (m *Metrics) Decision(operation, state string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(operation, state).Inc()
}

func (m *Metrics) ClassifierCall(result string) {
	if m == nil {
		return
	}
	m.classifier.WithLabelValues(result).Inc()
}

// Enrollment records "added", "present" or "failed".
func (m *Metrics) Enrollment(result string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
