package concurrency

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingObserver) Observe(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingObserver) types(taskID string) []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventType
	for _, e := range r.events {
		if e.TaskID == taskID {
			out = append(out, e.Type)
		}
	}
	return out
}

func (r *recordingObserver) count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func TestExecutor_EmitsLifecycleEvents(t *testing.T) {
	rec := &recordingObserver{}
	executor := newTestExecutor(t, ExecutorConfig{Name: "events", Workers: 1, QueueSize: 4, Observer: rec})

	ok, err := executor.Submit(noopTask("ok"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	bad, err := executor.Submit(TaskFunc(func(ctx context.Context) error { return errors.New("bad") }))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	ok.Await(time.Second)
	bad.Await(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := executor.Shutdown(ctx, true); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	executor.Submit(noopTask("late"))

	// Submitted may be observed after Started since they come from different goroutines
	for _, tc := range []struct {
		future *Future
		last   EventType
	}{{ok, EventTaskCompleted}, {bad, EventTaskFailed}} {
		got := rec.types(tc.future.ID())
		if len(got) != 3 {
			t.Fatalf("events for %s = %v, want 3", tc.future.Name(), got)
		}
		if got[len(got)-1] != tc.last {
			t.Errorf("last event = %v, want %v", got[len(got)-1], tc.last)
		}
	}
	if rec.count(EventTaskRejected) != 1 {
		t.Errorf("rejected events = %d, want 1", rec.count(EventTaskRejected))
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, e := range rec.events {
		if e.Executor != "events" {
			t.Errorf("Event.Executor = %q, want events", e.Executor)
		}
		if e.Time.IsZero() {
			t.Error("Event.Time should be set")
		}
		if e.Type == EventTaskFailed && e.Err == nil {
			t.Error("failed event should carry the error")
		}
	}
}

func TestMultiObserver(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	multi := MultiObserver{a, nil, b}

	multi.Observe(Event{Type: EventTaskStarted, TaskID: "x"})

	if a.count(EventTaskStarted) != 1 || b.count(EventTaskStarted) != 1 {
		t.Error("MultiObserver should forward to every non-nil observer")
	}
}

func TestLoggingObserver(t *testing.T) {
	var out, errOut bytes.Buffer
	observer := NewLoggingObserver(NewLevelLogger(LevelDebug, &out, &errOut))

	observer.Observe(Event{Type: EventTaskFailed, Executor: "pool", TaskName: "job", Seq: 3, Err: errors.New("kaput")})
	observer.Observe(Event{Type: EventTaskCancelled, Executor: "pool", TaskName: "queued", Seq: 4})
	observer.Observe(Event{Type: EventTaskCompleted, Executor: "pool", TaskName: "fine", Seq: 5})

	if !strings.Contains(errOut.String(), "[ERROR]") || !strings.Contains(errOut.String(), "kaput") {
		t.Errorf("error output = %q, want failure logged at error level", errOut.String())
	}
	if !strings.Contains(errOut.String(), "[WARN]") || !strings.Contains(errOut.String(), "queued") {
		t.Errorf("error output = %q, want cancellation logged at warn level", errOut.String())
	}
	if !strings.Contains(out.String(), "[DEBUG]") || !strings.Contains(out.String(), "fine") {
		t.Errorf("output = %q, want completion logged at debug level", out.String())
	}
}

func TestEventType_String(t *testing.T) {
	if EventWorkerReplaced.String() != "worker_replaced" {
		t.Errorf("EventWorkerReplaced.String() = %q", EventWorkerReplaced.String())
	}
	if EventType(42).String() != "unknown" {
		t.Errorf("EventType(42).String() = %q, want unknown", EventType(42).String())
	}
}
