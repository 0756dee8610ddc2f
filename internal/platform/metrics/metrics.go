// Package metrics registers the engine's Prometheus collectors
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tve_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tve_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})

	HTTPPanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tve_http_panics_recovered_total",
		Help: "Handler panics turned into 500 responses, labeled by route",
	}, []string{"route"})

	GateSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tve_gate_submissions_total",
		Help: "Verification gate submissions, labeled by gate and outcome",
	}, []string{"gate", "outcome"})

	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tve_settlements_total",
		Help: "Settlement attempts, labeled by transfer type and outcome",
	}, []string{"transfer_type", "outcome"})

	OutboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tve_outbox_messages_total",
		Help: "Outbox messages handled by the poller, labeled by result",
	}, []string{"result"})

	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tve_events_consumed_total",
		Help: "Transfer events consumed by the dispatcher, labeled by type and result",
	}, []string{"event_type", "result"})
)

// Outcome labels
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeThrottled = "throttled"
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeError     = "error"
	OutcomeSuccess   = "success"
	OutcomePurged    = "purged"
)
