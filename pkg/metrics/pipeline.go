package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records outcomes of the payment webhook and payout flows.
type PipelineMetrics struct {
	webhookDuration *prometheus.HistogramVec
	webhookOutcomes *prometheus.CounterVec
	payoutDecisions *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	webhookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_processing_seconds",
		Help:    "Duration of inbound provider webhook processing.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	webhookOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Inbound provider events by outcome.",
	}, []string{"provider", "outcome"})
	payoutDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_decisions_total",
		Help: "Payout admin decisions by result.",
	}, []string{"decision"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_dispatch_total",
		Help: "Notification outbox dispatch attempts by result.",
	}, []string{"result"})
	reg.MustRegister(webhookDuration, webhookOutcomes, payoutDecisions, notifications)
	return &PipelineMetrics{
		webhookDuration: webhookDuration,
		webhookOutcomes: webhookOutcomes,
		payoutDecisions: payoutDecisions,
		notifications:   notifications,
	}
}

// ObserveWebhookDuration records processing time for the named provider.
func (p *PipelineMetrics) ObserveWebhookDuration(provider string, duration time.Duration) {
	if p == nil || p.webhookDuration == nil {
		return
	}
	p.webhookDuration.WithLabelValues(normalizeLabel(provider)).Observe(duration.Seconds())
}

// IncWebhookOutcome counts one inbound event outcome (processed, duplicate, stale, error...).
func (p *PipelineMetrics) IncWebhookOutcome(provider, outcome string) {
	if p == nil || p.webhookOutcomes == nil {
		return
	}
	p.webhookOutcomes.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// IncPayoutDecision counts an admin payout decision result.
func (p *PipelineMetrics) IncPayoutDecision(decision string) {
	if p == nil || p.payoutDecisions == nil {
		return
	}
	p.payoutDecisions.WithLabelValues(normalizeLabel(decision)).Inc()
}

// IncNotificationDispatch counts a notification dispatch attempt result.
func (p *PipelineMetrics) IncNotificationDispatch(result string) {
	if p == nil || p.notifications == nil {
		return
	}
	p.notifications.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
