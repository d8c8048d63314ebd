// Package observability defines the service's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChatRequests counts chat requests by terminal outcome.
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookchat_chat_requests_total",
		Help: "Chat relay requests by outcome.",
	}, []string{"outcome"})

	// RateLimitRejections counts requests turned away before reaching the model.
	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookchat_rate_limit_rejections_total",
		Help: "Requests rejected by the per-client rate limiter.",
	})

	// StreamDuration observes wall-clock time of one chat stream, tool rounds
	// included.
	StreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookchat_stream_duration_seconds",
		Help:    "End-to-end chat stream duration.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
	})

	// StreamIncrements counts text increments forwarded to clients.
	StreamIncrements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookchat_stream_increments_total",
		Help: "Text increments written to client streams.",
	})

	// ToolInvocations counts tool calls resolved mid-generation.
	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookchat_tool_invocations_total",
		Help: "Tool invocations by tool name and outcome.",
	}, []string{"tool", "outcome"})

	// CatalogRequests counts direct (non-model) catalog lookups.
	CatalogRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookchat_catalog_requests_total",
		Help: "Direct book catalog requests by outcome.",
	}, []string{"outcome"})
)

// Outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
	OutcomeRejected    = "rejected"
	OutcomeNoRepair    = "no_repair"
)
