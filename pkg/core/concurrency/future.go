package concurrency

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TaskState is the lifecycle state of a submitted task
type TaskState int32

const (
	// StatePending means the task is queued and has not started
	StatePending TaskState = iota
	// StateRunning means a worker is executing the task
	StateRunning
	// StateCompleted means the task returned without error
	StateCompleted
	// StateFailed means the task returned an error, panicked, or lost its worker
	StateFailed
	// StateCancelled means the task was discarded before it started
	StateCancelled
)

func (s TaskState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible
func (s TaskState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Future is the caller-visible handle for one submitted task.
// The executor resolves it exactly once; any number of goroutines may await it.
type Future struct {
	id    string
	seq   uint64
	name  string
	state atomic.Int32
	done  chan struct{}

	// written once before done is closed
	value interface{}
	err   error
}

func newFuture(seq uint64, name string) *Future {
	return &Future{
		id:   uuid.NewString(),
		seq:  seq,
		name: name,
		done: make(chan struct{}),
	}
}

// ID returns the unique identifier assigned at submission
func (f *Future) ID() string {
	return f.id
}

// Seq returns the submission sequence number (1-based, per executor)
func (f *Future) Seq() uint64 {
	return f.seq
}

// Name returns the submitted task's name
func (f *Future) Name() string {
	return f.name
}

// State returns the current task state
func (f *Future) State() TaskState {
	return TaskState(f.state.Load())
}

// Done returns a channel that is closed once the task resolves
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the task resolves or timeout elapses.
// A non-positive timeout polls without blocking.
// Returns ErrTimeout on deadline, *TaskFailure if the task failed,
// ErrCancelled if it was discarded.
func (f *Future) Await(timeout time.Duration) (interface{}, error) {
	if timeout <= 0 {
		select {
		case <-f.done:
			return f.result()
		default:
			return nil, ErrTimeout
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.result()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// AwaitContext blocks until the task resolves or ctx is done
func (f *Future) AwaitContext(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.result()
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}

// Get blocks until the task resolves
func (f *Future) Get() (interface{}, error) {
	<-f.done
	return f.result()
}

func (f *Future) result() (interface{}, error) {
	switch f.State() {
	case StateCompleted:
		return f.value, nil
	case StateCancelled:
		return nil, ErrCancelled
	default:
		return nil, f.err
	}
}

// start moves the task to running; false means it was already cancelled
func (f *Future) start() bool {
	return f.state.CompareAndSwap(int32(StatePending), int32(StateRunning))
}

// cancel discards a task that has not started
func (f *Future) cancel() bool {
	return f.resolve(StatePending, StateCancelled, nil, nil)
}

// resolve performs the single transition into a terminal state
func (f *Future) resolve(from, to TaskState, value interface{}, err error) bool {
	if !f.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	f.value = value
	f.err = err
	close(f.done)
	return true
}

// AwaitValue awaits f and asserts the result to T.
// A nil result yields the zero value of T.
func AwaitValue[T any](f *Future, timeout time.Duration) (T, error) {
	var zero T
	v, err := f.Await(timeout)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("result type mismatch: expected %T, got %T", zero, v)
	}
	return typed, nil
}
