// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praxis_http_requests_total",
		Help: "HTTP requests by method, route pattern, and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "praxis_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praxis_llm_requests_total",
		Help: "Model provider requests by model and outcome.",
	}, []string{"model", "outcome"})

	LLMTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praxis_llm_tokens_total",
		Help: "Tokens consumed by direction (prompt or completion).",
	}, []string{"model", "direction"})

	TasksProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "praxis_tasks_processed_total",
		Help: "Background tasks processed by type and outcome.",
	}, []string{"type", "outcome"})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "praxis_queue_depth",
		Help: "Pending items per Redis task queue.",
	}, []string{"queue"})

	CircuitBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "praxis_llm_circuit_breaker_state",
		Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
	})

	WebsocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "praxis_websocket_connections",
		Help: "Currently open websocket connections.",
	})
)

// ObserveLLM records one provider call.
func ObserveLLM(model, outcome string, promptTokens, completionTokens int) {
	LLMRequestsTotal.WithLabelValues(model, outcome).Inc()
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// SetBreakerState maps a breaker state name onto the gauge.
func SetBreakerState(state string) {
	switch state {
	case "open":
		CircuitBreakerState.Set(2)
	case "half_open":
		CircuitBreakerState.Set(1)
	default:
		CircuitBreakerState.Set(0)
	}
}
