package concurrency

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned by NewExecutor for a non-positive
	// worker count or a negative queue size
	ErrInvalidConfiguration = errors.New("invalid executor configuration")

	// ErrRejected is the parent of every submission refusal
	ErrRejected = errors.New("task rejected")

	// ErrQueueFull is returned when the bounded queue has no room (backpressure)
	ErrQueueFull = fmt.Errorf("%w: queue is full", ErrRejected)

	// ErrPoolClosed is returned when submitting to an executor that is shutting down
	ErrPoolClosed = fmt.Errorf("%w: executor is shut down", ErrRejected)

	// ErrTimeout is returned by Await when the deadline passes before the task resolves.
	// The task may still complete later.
	ErrTimeout = errors.New("await timeout")

	// ErrShutdownTimeout is returned by Shutdown when workers are still running at the deadline
	ErrShutdownTimeout = errors.New("shutdown timeout")

	// ErrCancelled is returned by Await for a task discarded by a non-draining shutdown
	ErrCancelled = errors.New("task cancelled")

	// ErrNilTask is returned when submitting a nil task
	ErrNilTask = errors.New("task cannot be nil")

	// ErrWorkerFault is recorded on a task whose worker died before resolving it
	ErrWorkerFault = errors.New("worker terminated unexpectedly")
)

// TaskFailure records the error a task body returned or raised.
// Unwrap exposes the original cause so callers can use errors.Is/errors.As.
type TaskFailure struct {
	TaskName string
	Cause    error
}

func (e *TaskFailure) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.TaskName, e.Cause)
}

func (e *TaskFailure) Unwrap() error {
	return e.Cause
}

// PanicError wraps a value recovered from a panicking task body
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
