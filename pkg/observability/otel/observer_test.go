package otel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fluxorio/workpool/pkg/core/concurrency"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingObserver(t *testing.T) (*TracingObserver, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewTracingObserver(tp), recorder
}

func attr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingObserver_TaskSpan(t *testing.T) {
	observer, recorder := newRecordingObserver(t)

	start := time.Now()
	observer.Observe(concurrency.Event{Type: concurrency.EventTaskStarted, Executor: "pool",
		TaskID: "t1", TaskName: "resize", Seq: 7, WorkerID: 2, Time: start})
	if observer.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", observer.Pending())
	}
	if len(recorder.Ended()) != 0 {
		t.Fatal("span ended before completion")
	}

	observer.Observe(concurrency.Event{Type: concurrency.EventTaskCompleted, Executor: "pool",
		TaskID: "t1", TaskName: "resize", Seq: 7, WorkerID: 2,
		Duration: 15 * time.Millisecond, Time: start.Add(15 * time.Millisecond)})

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	span := ended[0]
	if span.Name() != "workpool.task resize" {
		t.Errorf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", span.Status().Code)
	}
	if got := span.EndTime().Sub(span.StartTime()); got != 15*time.Millisecond {
		t.Errorf("span duration = %v, want 15ms", got)
	}
	if v, ok := attr(span, "workpool.seq"); !ok || v.AsInt64() != 7 {
		t.Errorf("workpool.seq = %v, %v", v.AsInt64(), ok)
	}
	if observer.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", observer.Pending())
	}
}

func TestTracingObserver_FailedTaskRecordsError(t *testing.T) {
	observer, recorder := newRecordingObserver(t)

	now := time.Now()
	observer.Observe(concurrency.Event{Type: concurrency.EventTaskStarted, TaskID: "t1", TaskName: "boom", Time: now})
	observer.Observe(concurrency.Event{Type: concurrency.EventTaskFailed, TaskID: "t1", TaskName: "boom",
		Err: &concurrency.TaskFailure{TaskName: "boom", Cause: errors.New("disk full")}, Time: now})

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", ended[0].Status().Code)
	}
	if len(ended[0].Events()) == 0 || ended[0].Events()[0].Name != "exception" {
		t.Errorf("expected an exception event, got %v", ended[0].Events())
	}
}

func TestTracingObserver_TasksThatNeverRan(t *testing.T) {
	observer, recorder := newRecordingObserver(t)

	observer.Observe(concurrency.Event{Type: concurrency.EventTaskRejected, Executor: "pool",
		Err: concurrency.ErrQueueFull, Time: time.Now()})
	observer.Observe(concurrency.Event{Type: concurrency.EventTaskCancelled, Executor: "pool",
		TaskID: "t2", TaskName: "queued", Time: time.Now()})
	observer.Observe(concurrency.Event{Type: concurrency.EventWorkerReplaced, Executor: "pool",
		WorkerID: 1, Err: concurrency.ErrWorkerFault, Time: time.Now()})
	// submission alone opens no span
	observer.Observe(concurrency.Event{Type: concurrency.EventTaskSubmitted, TaskID: "t3", Time: time.Now()})

	ended := recorder.Ended()
	if len(ended) != 3 {
		t.Fatalf("ended spans = %d, want 3", len(ended))
	}
	names := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range ended {
		names[s.Name()] = s
	}
	if s, ok := names["workpool.reject"]; !ok || s.Status().Code != codes.Error {
		t.Error("expected an error span for the rejection")
	}
	if s, ok := names["workpool.task queued"]; !ok {
		t.Error("expected a span for the cancelled task")
	} else if v, _ := attr(s, "workpool.cancelled"); !v.AsBool() {
		t.Error("cancelled span should carry workpool.cancelled=true")
	}
	if _, ok := names["workpool.worker_replaced"]; !ok {
		t.Error("expected a worker replacement span")
	}
	if observer.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", observer.Pending())
	}
}

func TestTracingObserver_WithExecutor(t *testing.T) {
	observer, recorder := newRecordingObserver(t)

	exec, err := concurrency.NewExecutor(context.Background(), concurrency.ExecutorConfig{
		Name:      "traced",
		Workers:   2,
		QueueSize: 10,
		Observer:  observer,
		Logger:    concurrency.NopLogger(),
	})
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := exec.Submit(concurrency.NewNamedTask("ok", func(ctx context.Context) error { return nil })); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	if _, err := exec.Submit(concurrency.NewNamedTask("bad", func(ctx context.Context) error { return errors.New("bad") })); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := exec.Shutdown(ctx, true); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	ended := recorder.Ended()
	if len(ended) != 4 {
		t.Fatalf("ended spans = %d, want 4", len(ended))
	}
	failed := 0
	for _, s := range ended {
		if s.Status().Code == codes.Error {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("error spans = %d, want 1", failed)
	}
}
