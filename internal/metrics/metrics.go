// Package metrics defines the Prometheus collectors for deployment runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every launchpad collector. The CLI writes it to a textfile
// on exit and the status server exposes it at /metrics.
var Registry = prometheus.NewRegistry()

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launchpad",
			Subsystem: "orchestrator",
			Name:      "runs_total",
			Help:      "Total number of orchestration runs by terminal phase",
		},
		[]string{"phase"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "launchpad",
			Subsystem: "orchestrator",
			Name:      "run_duration_seconds",
			Help:      "Duration of orchestration runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5min
		},
		[]string{"phase"},
	)

	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launchpad",
			Name:      "state_transitions_total",
			Help:      "Total number of state transitions by state machine and target state",
		},
		[]string{"machine", "state"},
	)

	illegalTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launchpad",
			Name:      "illegal_transitions_total",
			Help:      "Transitions applied although not reachable from the current state",
		},
		[]string{"machine"},
	)

	rollbackActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launchpad",
			Subsystem: "rollback",
			Name:      "actions_total",
			Help:      "Compensating actions by resource type and result",
		},
		[]string{"resource_type", "result"},
	)

	checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launchpad",
			Subsystem: "verify",
			Name:      "checks_total",
			Help:      "Postcondition checks by type and status",
		},
		[]string{"type", "status"},
	)

	apiCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launchpad",
			Subsystem: "api",
			Name:      "calls_total",
			Help:      "Control plane API calls by system, operation and result",
		},
		[]string{"system", "operation", "result"},
	)

	apiLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "launchpad",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of control plane API calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"system", "operation"},
	)
)

func init() {
	Registry.MustRegister(
		runsTotal,
		runDuration,
		transitionsTotal,
		illegalTransitionsTotal,
		rollbackActionsTotal,
		checksTotal,
		apiCallsTotal,
		apiLatency,
	)
}

// RecordRun records a finished orchestration run.
func RecordRun(phase string, seconds float64) {
	runsTotal.WithLabelValues(phase).Inc()
	runDuration.WithLabelValues(phase).Observe(seconds)
}

// RecordTransition records a state change of the named state machine.
func RecordTransition(machine, state string, legal bool) {
	transitionsTotal.WithLabelValues(machine, state).Inc()
	if !legal {
		illegalTransitionsTotal.WithLabelValues(machine).Inc()
	}
}

// RecordRollback records one compensating action. result is "deleted",
// "skipped" or "failed".
func RecordRollback(resourceType, result string) {
	rollbackActionsTotal.WithLabelValues(resourceType, result).Inc()
}

// RecordCheck records one postcondition result.
func RecordCheck(checkType, status string) {
	checksTotal.WithLabelValues(checkType, status).Inc()
}

// RecordAPICall records a call against a remote control plane.
func RecordAPICall(system, operation string, err error, seconds float64) {
	result := "success"
	if err != nil {
		result = "error"
	}
	apiCallsTotal.WithLabelValues(system, operation, result).Inc()
	apiLatency.WithLabelValues(system, operation).Observe(seconds)
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
