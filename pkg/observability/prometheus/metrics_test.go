package prometheus

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fluxorio/workpool/pkg/core/concurrency"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prom.NewRegistry()
	m := NewMetrics(reg)

	m.Observe(concurrency.Event{Type: concurrency.EventTaskSubmitted, Executor: "pool"})
	m.Observe(concurrency.Event{Type: concurrency.EventTaskCompleted, Executor: "pool", Duration: 20 * time.Millisecond})
	m.Observe(concurrency.Event{Type: concurrency.EventTaskFailed, Executor: "pool", Err: errors.New("bad")})
	m.Observe(concurrency.Event{Type: concurrency.EventTaskFailed, Executor: "pool", Err: &concurrency.TaskFailure{Cause: &concurrency.PanicError{Value: "boom"}}})
	m.Observe(concurrency.Event{Type: concurrency.EventTaskRejected, Executor: "pool", Err: concurrency.ErrQueueFull})
	m.Observe(concurrency.Event{Type: concurrency.EventTaskRejected, Executor: "pool", Err: concurrency.ErrPoolClosed})
	m.Observe(concurrency.Event{Type: concurrency.EventTaskCancelled, Executor: "pool"})
	m.Observe(concurrency.Event{Type: concurrency.EventWorkerReplaced})

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"submitted", testutil.ToFloat64(m.TasksSubmitted.WithLabelValues("pool")), 1},
		{"completed", testutil.ToFloat64(m.TasksCompleted.WithLabelValues("pool")), 1},
		{"failed error", testutil.ToFloat64(m.TasksFailed.WithLabelValues("pool", "error")), 1},
		{"failed panic", testutil.ToFloat64(m.TasksFailed.WithLabelValues("pool", "panic")), 1},
		{"rejected full", testutil.ToFloat64(m.TasksRejected.WithLabelValues("pool", "queue_full")), 1},
		{"rejected closed", testutil.ToFloat64(m.TasksRejected.WithLabelValues("pool", "closed")), 1},
		{"cancelled", testutil.ToFloat64(m.TasksCancelled.WithLabelValues("pool")), 1},
		{"replacements", testutil.ToFloat64(m.WorkerReplacements.WithLabelValues("unknown")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if n := testutil.CollectAndCount(m.TaskDuration); n != 2 {
		t.Errorf("duration series = %d, want 2 (completed, failed)", n)
	}
}

func TestMetrics_WithExecutor(t *testing.T) {
	reg := prom.NewRegistry()
	m := NewMetrics(reg)

	exec, err := concurrency.NewExecutor(context.Background(), concurrency.ExecutorConfig{
		Name:      "wired",
		Workers:   2,
		QueueSize: 8,
		Observer:  m,
		Logger:    concurrency.NopLogger(),
	})
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	if err := RegisterExecutor(reg, "wired", exec); err != nil {
		t.Fatalf("RegisterExecutor() error = %v", err)
	}

	for i := 0; i < 4; i++ {
		if _, err := exec.Submit(concurrency.TaskFunc(func(ctx context.Context) error { return nil })); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := exec.Shutdown(ctx, true); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if got := testutil.ToFloat64(m.TasksCompleted.WithLabelValues("wired")); got != 4 {
		t.Errorf("completed = %v, want 4", got)
	}

	expected := `
# HELP workpool_queue_capacity Maximum queue capacity
# TYPE workpool_queue_capacity gauge
workpool_queue_capacity{executor="wired"} 8
# HELP workpool_shutdown 1 once shutdown has been initiated
# TYPE workpool_shutdown gauge
workpool_shutdown{executor="wired"} 1
# HELP workpool_workers_active Number of live worker goroutines
# TYPE workpool_workers_active gauge
workpool_workers_active{executor="wired"} 0
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"workpool_queue_capacity", "workpool_shutdown", "workpool_workers_active"); err != nil {
		t.Errorf("GatherAndCompare() error = %v", err)
	}
}

func TestGetMetrics_Singleton(t *testing.T) {
	if GetMetrics() != GetMetrics() {
		t.Error("GetMetrics() should return the same instance")
	}
}
