// Prometheus metrics for the task engine.
package task

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filetasks_tasks_started_total",
			Help: "Total number of tasks started",
		},
		[]string{"task"},
	)

	tasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filetasks_tasks_completed_total",
			Help: "Total number of tasks that ran to completion",
		},
		[]string{"task"},
	)

	tasksCancelled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filetasks_tasks_cancelled_total",
			Help: "Total number of tasks aborted by cancellation",
		},
		[]string{"task"},
	)

	tasksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filetasks_tasks_failed_total",
			Help: "Total number of tasks that failed with an error",
		},
		[]string{"task"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filetasks_task_duration_seconds",
			Help:    "Task wall-clock duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task"},
	)

	progressEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filetasks_progress_events_emitted_total",
			Help: "Progress messages delivered to the host channel",
		},
	)

	progressDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filetasks_progress_events_dropped_total",
			Help: "Progress messages dropped because the channel was full",
		},
	)
)

// RecordStart counts a task start.
func RecordStart(kind Kind) {
	tasksStarted.WithLabelValues(string(kind)).Inc()
}

// RecordOutcome counts the terminal state of a task run.
func RecordOutcome(kind Kind, seconds float64, err error) {
	taskDuration.WithLabelValues(string(kind)).Observe(seconds)
	switch {
	case err == nil:
		tasksCompleted.WithLabelValues(string(kind)).Inc()
	case IsCancelledErr(err):
		tasksCancelled.WithLabelValues(string(kind)).Inc()
	default:
		tasksFailed.WithLabelValues(string(kind)).Inc()
	}
}
