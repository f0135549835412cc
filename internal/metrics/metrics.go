package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Workflow metrics
	WorkflowRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_workflow_total",
			Help: "Total number of facade workflow invocations",
		},
		[]string{"workflow", "outcome"},
	)

	WorkflowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_workflow_duration_seconds",
			Help:    "Duration of facade workflows in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"workflow"},
	)

	// Market item join metrics
	ItemsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_items_dropped_total",
			Help: "Market items dropped because their metadata could not be resolved",
		},
	)

	// Session metrics
	SessionsConnected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_sessions_connected_total",
			Help: "Total number of successful wallet connections",
		},
	)
)

// ObserveWorkflow records one workflow run.
func ObserveWorkflow(workflow string, seconds float64, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	WorkflowRuns.WithLabelValues(workflow, outcome).Inc()
	WorkflowDuration.WithLabelValues(workflow).Observe(seconds)
}
