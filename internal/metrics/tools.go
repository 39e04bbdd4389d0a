package metrics

import "github.com/prometheus/client_golang/prometheus"

// Tool invocation metrics.
var (
	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdpserve",
			Name:      "tool_calls_total",
			Help:      "Total tool invocations",
		},
		[]string{"tool", "status"},
	)

	ToolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdpserve",
			Name:      "tool_call_duration_seconds",
			Help:      "End-to-end tool invocation duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"tool"},
	)

	RetrievalHits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdpserve",
			Name:      "retrieval_hits",
			Help:      "Number of passages returned per retrieval",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
		},
		[]string{"tool"},
	)
)

var toolMetricsRegistered bool

// RegisterToolMetrics registers tool metrics. Must be called once from main.
func RegisterToolMetrics() {
	if toolMetricsRegistered {
		return
	}
	prometheus.MustRegister(ToolCallsTotal)
	prometheus.MustRegister(ToolCallDuration)
	prometheus.MustRegister(RetrievalHits)
	toolMetricsRegistered = true
}
