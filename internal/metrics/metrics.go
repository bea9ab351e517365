// Package metrics exposes Prometheus instrumentation for the chatbot.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatbot"

// Metrics holds the chatbot collectors.
type Metrics struct {
	turns         *prometheus.CounterVec
	turnDuration  *prometheus.HistogramVec
	emailCaptures *prometheus.CounterVec
	escalations   *prometheus.CounterVec
	gatherer      prometheus.Gatherer
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Turns handled, by decision branch.",
		}, []string{"branch"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time to produce a reply, by decision branch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"branch"}),
		emailCaptures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_captures_total",
			Help:      "Email opt-ins, by persistence outcome.",
		}, []string{"outcome"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Support notifications, by channel and result.",
		}, []string{"channel", "result"}),
		gatherer: g,
	}
	reg.MustRegister(m.turns, m.turnDuration, m.emailCaptures, m.escalations)
	return m
}

// ObserveTurn records one handled turn.
func (m *Metrics) ObserveTurn(branch string, d time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(branch).Inc()
	m.turnDuration.WithLabelValues(branch).Observe(d.Seconds())
}

// ObserveEmailCapture records an email opt-in outcome.
func (m *Metrics) ObserveEmailCapture(outcome string) {
	if m == nil {
		return
	}
	m.emailCaptures.WithLabelValues(outcome).Inc()
}

// ObserveEscalation records a notification attempt.
func (m *Metrics) ObserveEscalation(channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.escalations.WithLabelValues(channel, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
