package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics counts gateway webhook outcomes by event type.
type WebhookMetrics struct {
	received   *prometheus.CounterVec
	processed  *prometheus.CounterVec
	idempotent *prometheus.CounterVec
	skipped    *prometheus.CounterVec
	failed     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewWebhookMetrics registers webhook counters on the provided registerer. A
// nil registerer yields a no-op collector, which tests rely on.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received_total",
		Help: "Webhook deliveries received, by event type.",
	}, []string{"event"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed_total",
		Help: "Webhook deliveries that mutated an order.",
	}, []string{"event"})
	idempotent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_idempotent_total",
		Help: "Webhook redeliveries absorbed by the processed-event ledger.",
	}, []string{"event"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_skipped_total",
		Help: "Webhook deliveries skipped (unknown order, illegal source state).",
	}, []string{"event"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed_total",
		Help: "Webhook deliveries that hit an internal error.",
	}, []string{"event"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_handle_duration_seconds",
		Help:    "Webhook handling duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})
	reg.MustRegister(received, processed, idempotent, skipped, failed, duration)
	return &WebhookMetrics{
		received:   received,
		processed:  processed,
		idempotent: idempotent,
		skipped:    skipped,
		failed:     failed,
		duration:   duration,
	}
}

// IncReceived counts one delivery of the event type.
func (m *WebhookMetrics) IncReceived(event string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncProcessed counts one applied delivery.
func (m *WebhookMetrics) IncProcessed(event string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncIdempotent counts one absorbed redelivery.
func (m *WebhookMetrics) IncIdempotent(event string) {
	if m == nil || m.idempotent == nil {
		return
	}
	m.idempotent.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncSkipped counts one delivery that caused no mutation.
func (m *WebhookMetrics) IncSkipped(event string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncFailed counts one delivery that hit an internal error.
func (m *WebhookMetrics) IncFailed(event string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(event)).Inc()
}

// ObserveDuration records handling time for the event type.
func (m *WebhookMetrics) ObserveDuration(event string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(event)).Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
