package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics счетчики фасада. Регистрируются в собственном реестре,
// чтобы тесты могли создавать независимые экземпляры.
type Metrics struct {
	registry *prometheus.Registry

	WorkflowStarts *prometheus.CounterVec
	WebhookEvents  *prometheus.CounterVec
	Outcomes       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		WorkflowStarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "workflow_starts_total",
			Help:      "Workflow start requests by workflow and result.",
		}, []string{"workflow", "result"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "payment_webhook_events_total",
			Help:      "Payment webhook events by type and outcome.",
		}, []string{"type", "outcome"}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "checkout",
			Name:      "operation_outcomes_total",
			Help:      "Facade operation outcomes.",
		}, []string{"operation", "outcome"}),
	}
	m.registry.MustRegister(m.WorkflowStarts, m.WebhookEvents, m.Outcomes)
	return m
}

// Handler отдает метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) StartRecorded(workflow, result string) {
	if m == nil {
		return
	}
	m.WorkflowStarts.WithLabelValues(workflow, result).Inc()
}

func (m *Metrics) WebhookRecorded(eventType, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) OutcomeRecorded(operation, outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(operation, outcome).Inc()
}
