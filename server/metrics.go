// Package server exposes a workflow registry over HTTP/SSE (the
// SUPPLEMENTED `server` surface), grounded on the teacher's
// pkg/transport package: a responseWriter wrapper that captures
// status/size and passes through http.Flusher (http_metrics_middleware.go),
// and its SSE framing convention (`event: <kind>\ndata: <json>\n\n`,
// immediate Flush per frame) from rest_gateway.go's restStreamWrapper —
// rebuilt on chi instead of the teacher's plain ServeMux/grpc-gateway, and
// emitting agent.Event frames instead of A2A protobuf responses.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus collectors served at /metrics, grounded on
// the teacher's RecordHTTPRequest-style per-request metrics but scoped to
// workflow execution. The server updates httpRequests, httpDuration and
// nodesRun; toolCalls, modelCalls and turnIterations are registered but
// nothing in the module updates them.
type metrics struct {
	nodesRun      *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	modelCalls    *prometheus.CounterVec
	turnIterations prometheus.Histogram
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		nodesRun: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowforge",
			Name:      "nodes_run_total",
			Help:      "Compiled workflow graph nodes per finished run, by workflow and run outcome.",
		}, []string{"workflow", "outcome"}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowforge",
			Name:      "tool_calls_total",
			Help:      "Tool invocations dispatched by agents, by tool name.",
		}, []string{"tool"}),
		modelCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowforge",
			Name:      "model_calls_total",
			Help:      "Model.GenerateContent calls, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		turnIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flowforge",
			Name:      "turn_loop_iterations",
			Help:      "Number of turns a single agent run took before answering.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowforge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route and status class.",
		}, []string{"route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowforge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by route.",
		}, []string{"route"}),
	}
}
