package prometheus

import (
	"errors"
	"sync"

	"github.com/fluxorio/workpool/pkg/core/concurrency"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DefaultRegistry is the default Prometheus registry
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer is the default Prometheus registerer
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "workpool"}, DefaultRegistry)

	// Metrics collection
	metricsOnce sync.Once
	metrics     *Metrics
)

// Metrics holds the executor event metrics. It implements concurrency.Observer,
// so it can be passed as ExecutorConfig.Observer directly.
type Metrics struct {
	TasksSubmitted     *prometheus.CounterVec
	TasksRejected      *prometheus.CounterVec
	TasksCompleted     *prometheus.CounterVec
	TasksFailed        *prometheus.CounterVec
	TasksCancelled     *prometheus.CounterVec
	TaskDuration       *prometheus.HistogramVec
	WorkerReplacements *prometheus.CounterVec
}

var _ concurrency.Observer = (*Metrics)(nil)

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics creates a new metrics collection
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		TasksSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workpool_tasks_submitted_total",
				Help: "Total number of tasks accepted into the queue",
			},
			[]string{"executor"},
		),
		TasksRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workpool_tasks_rejected_total",
				Help: "Total number of rejected submissions",
			},
			[]string{"executor", "reason"}, // reason: queue_full, closed
		),
		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workpool_tasks_completed_total",
				Help: "Total number of tasks that completed without error",
			},
			[]string{"executor"},
		),
		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workpool_tasks_failed_total",
				Help: "Total number of tasks that failed",
			},
			[]string{"executor", "cause"}, // cause: error, panic
		),
		TasksCancelled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workpool_tasks_cancelled_total",
				Help: "Total number of queued tasks discarded by shutdown",
			},
			[]string{"executor"},
		),
		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "workpool_task_duration_seconds",
				Help:    "Task execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"executor", "outcome"}, // outcome: completed, failed
		),
		WorkerReplacements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workpool_worker_replacements_total",
				Help: "Total number of workers restarted after an internal fault",
			},
			[]string{"executor"},
		),
	}
}

// Observe implements concurrency.Observer
func (m *Metrics) Observe(e concurrency.Event) {
	name := normalizeLabel(e.Executor, "unknown")

	switch e.Type {
	case concurrency.EventTaskSubmitted:
		m.TasksSubmitted.WithLabelValues(name).Inc()
	case concurrency.EventTaskRejected:
		m.TasksRejected.WithLabelValues(name, rejectReason(e.Err)).Inc()
	case concurrency.EventTaskCompleted:
		m.TasksCompleted.WithLabelValues(name).Inc()
		m.TaskDuration.WithLabelValues(name, "completed").Observe(e.Duration.Seconds())
	case concurrency.EventTaskFailed:
		m.TasksFailed.WithLabelValues(name, failureCause(e.Err)).Inc()
		m.TaskDuration.WithLabelValues(name, "failed").Observe(e.Duration.Seconds())
	case concurrency.EventTaskCancelled:
		m.TasksCancelled.WithLabelValues(name).Inc()
	case concurrency.EventWorkerReplaced:
		m.WorkerReplacements.WithLabelValues(name).Inc()
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, concurrency.ErrPoolClosed):
		return "closed"
	case errors.Is(err, concurrency.ErrQueueFull):
		return "queue_full"
	default:
		return "unknown"
	}
}

func failureCause(err error) string {
	var panicErr *concurrency.PanicError
	if errors.As(err, &panicErr) {
		return "panic"
	}
	return "error"
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
