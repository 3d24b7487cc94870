// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Blocked reasons.
const (
	BlockedSafety = "safety"
	BlockedScope  = "scope"
)

// LLM call stages and outcomes.
const (
	StageGenerate = "generate"
	StageRetry    = "generate_retry"
	StageEvaluate = "evaluate"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "courtside_build_info",
			Help: "Build information of the courtside service",
		},
		[]string{"version"},
	)

	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtside_chat_requests_total",
			Help: "Chat requests by final result type",
		},
		[]string{"type"},
	)

	ChatIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "courtside_chat_iterations",
			Help:    "Generate/execute/evaluate iterations per chat request",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	ChatBlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtside_chat_blocked_total",
			Help: "Generated statements rejected by a validator",
		},
		[]string{"reason"},
	)

	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtside_llm_calls_total",
			Help: "Model calls by pipeline stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "courtside_query_duration_seconds",
			Help:    "Duration of read-only chat query execution",
			Buckets: prometheus.DefBuckets,
		},
	)

	ChatLogFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "courtside_chat_log_failures_total",
			Help: "Chat log writes that failed",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "courtside_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "courtside_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "courtside_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// RecordLLMCall counts one model call.
func RecordLLMCall(stage string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	LLMCallsTotal.WithLabelValues(stage, outcome).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
