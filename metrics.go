/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package taskqueue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector represents a collector of metrics to analyze how the queue is used.
type MetricsCollector interface {
	// SetRunningAmount sets the number of tasks currently in the running state.
	SetRunningAmount(int)

	// SetBacklogAmount sets the number of tasks currently waiting in the backlog.
	SetBacklogAmount(int)

	// IncSubmittedTasks increments the total number of submitted tasks.
	IncSubmittedTasks()

	// ObserveTaskDone observes the execution duration of a settled task along with its status.
	ObserveTaskDone(status TaskStatus, duration time.Duration)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// See PrometheusMetrics.MustCurryWith method for more details.
	// Keep in mind that if this list is not empty,
	// PrometheusMetrics.MustCurryWith method must be called further with the same labels.
	// Otherwise, the collector will panic.
	CurriedLabelNames []string

	// TaskDurationBuckets is a list of buckets for the task duration histogram.
	// If empty, DefaultTaskDurationBuckets is used.
	TaskDurationBuckets []float64
}

// DefaultTaskDurationBuckets is default buckets for the task duration histogram.
var DefaultTaskDurationBuckets = []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

const metricsLabelStatus = "status"

// PrometheusMetrics represents Prometheus metrics for the task queue.
type PrometheusMetrics struct {
	RunningTasks        *prometheus.GaugeVec
	BacklogTasks        *prometheus.GaugeVec
	SubmittedTasksTotal *prometheus.CounterVec
	DoneTasksTotal      *prometheus.CounterVec
	TaskDurationSeconds *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	durationBuckets := opts.TaskDurationBuckets
	if durationBuckets == nil {
		durationBuckets = DefaultTaskDurationBuckets
	}

	runningTasks := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "task_queue_running_tasks",
			Help:        "Number of tasks currently in the running state.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	backlogTasks := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "task_queue_backlog_tasks",
			Help:        "Number of tasks waiting in the backlog for a free slot.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	submittedTasksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "task_queue_submitted_tasks_total",
			Help:        "Total number of submitted tasks.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	doneTasksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "task_queue_done_tasks_total",
			Help:        "Total number of settled tasks.",
			ConstLabels: opts.ConstLabels,
		},
		append(append([]string{}, opts.CurriedLabelNames...), metricsLabelStatus),
	)

	taskDurationSeconds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "task_queue_task_duration_seconds",
			Help:        "Task execution time in seconds.",
			Buckets:     durationBuckets,
			ConstLabels: opts.ConstLabels,
		},
		append(append([]string{}, opts.CurriedLabelNames...), metricsLabelStatus),
	)

	return &PrometheusMetrics{
		RunningTasks:        runningTasks,
		BacklogTasks:        backlogTasks,
		SubmittedTasksTotal: submittedTasksTotal,
		DoneTasksTotal:      doneTasksTotal,
		TaskDurationSeconds: taskDurationSeconds,
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		RunningTasks:        pm.RunningTasks.MustCurryWith(labels),
		BacklogTasks:        pm.BacklogTasks.MustCurryWith(labels),
		SubmittedTasksTotal: pm.SubmittedTasksTotal.MustCurryWith(labels),
		DoneTasksTotal:      pm.DoneTasksTotal.MustCurryWith(labels),
		TaskDurationSeconds: pm.TaskDurationSeconds.MustCurryWith(labels).(*prometheus.HistogramVec),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.RunningTasks,
		pm.BacklogTasks,
		pm.SubmittedTasksTotal,
		pm.DoneTasksTotal,
		pm.TaskDurationSeconds,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.RunningTasks)
	prometheus.Unregister(pm.BacklogTasks)
	prometheus.Unregister(pm.SubmittedTasksTotal)
	prometheus.Unregister(pm.DoneTasksTotal)
	prometheus.Unregister(pm.TaskDurationSeconds)
}

// SetRunningAmount sets the number of tasks currently in the running state.
func (pm *PrometheusMetrics) SetRunningAmount(amount int) {
	pm.RunningTasks.With(nil).Set(float64(amount))
}

// SetBacklogAmount sets the number of tasks currently waiting in the backlog.
func (pm *PrometheusMetrics) SetBacklogAmount(amount int) {
	pm.BacklogTasks.With(nil).Set(float64(amount))
}

// IncSubmittedTasks increments the total number of submitted tasks.
func (pm *PrometheusMetrics) IncSubmittedTasks() {
	pm.SubmittedTasksTotal.With(nil).Inc()
}

// ObserveTaskDone observes the execution duration of a settled task along with its status.
func (pm *PrometheusMetrics) ObserveTaskDone(status TaskStatus, duration time.Duration) {
	labels := prometheus.Labels{metricsLabelStatus: string(status)}
	pm.DoneTasksTotal.With(labels).Inc()
	pm.TaskDurationSeconds.With(labels).Observe(duration.Seconds())
}

type disabledMetrics struct{}

func (disabledMetrics) SetRunningAmount(int)                      {}
func (disabledMetrics) SetBacklogAmount(int)                      {}
func (disabledMetrics) IncSubmittedTasks()                        {}
func (disabledMetrics) ObserveTaskDone(TaskStatus, time.Duration) {}
