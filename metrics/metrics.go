// Package metrics holds the prometheus collectors shared by the engine.
// Collectors register on the default registry and are served by the api
// package at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultTimeout = "timeout"
	ResultDenied  = "rejected"
)

var (
	gatewayCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpsbot_gateway_calls_total",
		Help: "External tool invocations by subcommand and result",
	}, []string{"subcommand", "result"})

	gatewayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vpsbot_gateway_duration_seconds",
		Help:    "External tool invocation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	}, []string{"subcommand"})

	lifecycleOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpsbot_lifecycle_operations_total",
		Help: "Lifecycle operations by action and result",
	}, []string{"action", "result"})

	reconcileUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vpsbot_reconcile_updates_total",
		Help: "Records whose declared status was corrected by reconciliation",
	})

	reconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpsbot_reconcile_runs_total",
		Help: "Reconciliation passes by result",
	}, []string{"result"})

	bulkStops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpsbot_bulk_stops_total",
		Help: "Bulk stop operations by trigger",
	}, []string{"trigger"})

	taskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpsbot_scheduler_task_runs_total",
		Help: "Scheduled task executions by task and result",
	}, []string{"task", "result"})

	hostCPU = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vpsbot_host_cpu_percent",
		Help: "Last sampled host CPU utilisation",
	})

	creditsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpsbot_credits_total",
		Help: "Credits moved by the economy guard, by direction",
	}, []string{"direction"})
)

// ObserveGateway records one external invocation.
func ObserveGateway(subcommand, result string, d time.Duration) {
	gatewayCalls.WithLabelValues(subcommand, result).Inc()
	gatewayDuration.WithLabelValues(subcommand).Observe(d.Seconds())
}

// ObserveLifecycle records one lifecycle operation outcome.
func ObserveLifecycle(action, result string) {
	lifecycleOps.WithLabelValues(action, result).Inc()
}

// ObserveReconcile records one reconciliation pass and how many records it corrected.
func ObserveReconcile(updated int, err error) {
	reconcileUpdates.Add(float64(updated))
	reconcileRuns.WithLabelValues(resultOf(err)).Inc()
}

// ObserveBulkStop records one bulk stop by its trigger (manual or cpu).
func ObserveBulkStop(trigger string) {
	bulkStops.WithLabelValues(trigger).Inc()
}

// ObserveTask records one scheduler task execution.
func ObserveTask(task string, err error) {
	taskRuns.WithLabelValues(task, resultOf(err)).Inc()
}

// SetHostCPU publishes the latest CPU sample.
func SetHostCPU(percent float64) {
	hostCPU.Set(percent)
}

// ObserveCredits records credits charged, refunded, granted or debited.
func ObserveCredits(direction string, amount int64) {
	if amount > 0 {
		creditsMoved.WithLabelValues(direction).Add(float64(amount))
	}
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
