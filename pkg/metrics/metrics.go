// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// GenerationDuration tracks end-to-end AI response generation duration.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_generation_duration_seconds",
			Help:    "AI response generation duration, pipeline entry to terminal outcome",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"model", "outcome"},
	)

	// GenerationConfidence tracks the calibrated confidence distribution.
	GenerationConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_generation_confidence",
			Help:    "Calibrated confidence score of generated responses",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	// ActionsTotal tracks decided actions per organization.
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_actions_total",
			Help: "Terminal pipeline actions decided",
		},
		[]string{"organization_id", "action"},
	)

	// GenerationErrorsTotal tracks pipeline failures by kind.
	GenerationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_generation_errors_total",
			Help: "AI generation failures by error kind",
		},
		[]string{"kind"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// RelaySendsTotal tracks outbound mail-relay deliveries.
	RelaySendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_relay_sends_total",
			Help: "Outbound messages handed to the mail relay",
		},
		[]string{"status"},
	)

	// NotificationsTotal tracks escalation notifications created.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notifications created by type",
		},
		[]string{"type"},
	)

	// EventPublishFailures tracks JetStream publish failures.
	EventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_publish_failures_total",
			Help: "Failed JetStream event publishes",
		},
	)

	// MessagesTotal tracks messages created by source.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Messages created by source",
		},
		[]string{"organization_id", "source"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordGeneration records metrics for a completed generation turn.
func RecordGeneration(model, outcome string, durationSec, confidence float64, tokensIn, tokensOut int) {
	GenerationDuration.WithLabelValues(model, outcome).Observe(durationSec)
	GenerationConfidence.Observe(confidence)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}
