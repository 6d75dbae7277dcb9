package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wpchat"

// GatewayMetrics exposes counters/histograms for the webhook pipeline.
// All methods are safe on a nil receiver.
type GatewayMetrics struct {
	webhookEvents    *prometheus.CounterVec
	webhookLatency   prometheus.Histogram
	deliveryAttempts *prometheus.CounterVec
	llmCompletions   *prometheus.CounterVec
	toolInvocations  *prometheus.CounterVec
	summarizations   *prometheus.CounterVec
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Inbound WhatsApp webhook events by outcome",
		}, []string{"outcome"}),
		webhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_latency_seconds",
			Help:      "End-to-end latency of one webhook turn",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
		deliveryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_attempts_total",
			Help:      "Outbound WhatsApp delivery attempts by status",
		}, []string{"status"}),
		llmCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_completions_total",
			Help:      "LLM completion calls by stage and status",
		}, []string{"stage", "status"}),
		toolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Booking tool invocations by tool and status",
		}, []string{"tool", "status"}),
		summarizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summarizations_total",
			Help:      "History summarizations by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.webhookEvents,
		m.webhookLatency,
		m.deliveryAttempts,
		m.llmCompletions,
		m.toolInvocations,
		m.summarizations,
	)
	return m
}

// ObserveWebhook records one processed event. outcome is processed, skipped,
// failed or duplicate.
func (m *GatewayMetrics) ObserveWebhook(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(outcome).Inc()
	m.webhookLatency.Observe(elapsed.Seconds())
}

func (m *GatewayMetrics) ObserveDeliveryAttempt(status string) {
	if m == nil {
		return
	}
	m.deliveryAttempts.WithLabelValues(status).Inc()
}

func (m *GatewayMetrics) ObserveCompletion(stage, status string) {
	if m == nil {
		return
	}
	m.llmCompletions.WithLabelValues(stage, status).Inc()
}

func (m *GatewayMetrics) ObserveTool(tool, status string) {
	if m == nil {
		return
	}
	m.toolInvocations.WithLabelValues(tool, status).Inc()
}

func (m *GatewayMetrics) ObserveSummarization(status string) {
	if m == nil {
		return
	}
	m.summarizations.WithLabelValues(status).Inc()
}
