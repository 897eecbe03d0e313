// Package metrics exposes Prometheus counters for automation activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "linkpilot"

var (
	// ActionsRecorded counts quota-recorded actions per category.
	ActionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Total number of recorded automation actions",
		},
		[]string{"category"},
	)

	// AuthAttempts counts authentication attempts per strategy and result.
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Total number of authentication attempts",
		},
		[]string{"method", "result"},
	)

	// Applications counts application attempts per terminal outcome.
	Applications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "applications_total",
			Help:      "Total number of job application attempts",
		},
		[]string{"outcome"},
	)

	// ScheduledRuns counts scheduler task executions per task and result.
	ScheduledRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_runs_total",
			Help:      "Total number of scheduled task executions",
		},
		[]string{"task", "result"},
	)
)
