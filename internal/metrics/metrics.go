// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxdesk_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rxdesk_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Provider metrics
	ValidationProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxdesk_validation_probes_total",
			Help: "Credential validation probes by region and result",
		},
		[]string{"region", "result"}, // "valid" or "invalid"
	)

	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxdesk_webhook_deliveries_total",
			Help: "Outbound webhook deliveries",
		},
		[]string{"category", "result"},
	)

	WebhookVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxdesk_webhook_verifications_total",
			Help: "Inbound webhook signature checks",
		},
		[]string{"result"}, // "ok" or "rejected"
	)

	// Conversation metrics
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxdesk_messages_appended_total",
			Help: "Messages appended to conversations",
		},
		[]string{"sender"}, // "user" or "agent"
	)

	Responses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxdesk_responses_total",
			Help: "Generated chat replies",
		},
		[]string{"strategy", "outcome"}, // outcome: "ok" or "fallback"
	)

	ResponseLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rxdesk_response_latency_seconds",
			Help:    "Reply generation latency",
			Buckets: []float64{.001, .01, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"strategy"},
	)
)
