package concurrency

import (
	"context"
)

// Task represents a unit of work that produces no value
// ctx is the executor's base context
type Task interface {
	// Execute performs the task work
	Execute(ctx context.Context) error

	// Name returns a human-readable name for the task (for logging/debugging)
	Name() string
}

// Callable represents a unit of work that produces a value or fails
type Callable interface {
	// Call computes the task result
	Call(ctx context.Context) (interface{}, error)

	// Name returns a human-readable name for the task (for logging/debugging)
	Name() string
}

// TaskFunc is a function type that implements Task
// Allows functions to be used as tasks without creating a struct
type TaskFunc func(ctx context.Context) error

// Execute implements Task interface for TaskFunc
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Name returns a default name for TaskFunc
func (f TaskFunc) Name() string {
	return "TaskFunc"
}

// CallableFunc is a function type that implements Callable
type CallableFunc func(ctx context.Context) (interface{}, error)

// Call implements Callable interface for CallableFunc
func (f CallableFunc) Call(ctx context.Context) (interface{}, error) {
	return f(ctx)
}

// Name returns a default name for CallableFunc
func (f CallableFunc) Name() string {
	return "CallableFunc"
}

// NamedTask wraps a TaskFunc with a custom name
type NamedTask struct {
	name string
	task TaskFunc
}

// NewNamedTask creates a new NamedTask
func NewNamedTask(name string, task TaskFunc) *NamedTask {
	return &NamedTask{
		name: name,
		task: task,
	}
}

// Execute implements Task interface
func (nt *NamedTask) Execute(ctx context.Context) error {
	return nt.task(ctx)
}

// Name returns the task name
func (nt *NamedTask) Name() string {
	return nt.name
}

// NamedCallable wraps a CallableFunc with a custom name
type NamedCallable struct {
	name string
	call CallableFunc
}

// NewNamedCallable creates a new NamedCallable
func NewNamedCallable(name string, call CallableFunc) *NamedCallable {
	return &NamedCallable{
		name: name,
		call: call,
	}
}

// Call implements Callable interface
func (nc *NamedCallable) Call(ctx context.Context) (interface{}, error) {
	return nc.call(ctx)
}

// Name returns the callable name
func (nc *NamedCallable) Name() string {
	return nc.name
}

// taskCallable adapts a Task to Callable so the executor runs a single kind of work
type taskCallable struct {
	task Task
}

func (tc taskCallable) Call(ctx context.Context) (interface{}, error) {
	return nil, tc.task.Execute(ctx)
}

func (tc taskCallable) Name() string {
	return tc.task.Name()
}
