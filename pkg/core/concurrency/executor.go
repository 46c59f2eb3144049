package concurrency

import (
	"context"
	"time"
)

// ExecutorStats provides statistics about executor performance
type ExecutorStats struct {
	QueuedTasks        int64   // Current number of queued tasks
	RunningTasks       int64   // Tasks currently executing
	ActiveWorkers      int     // Number of live worker goroutines
	SubmittedTasks     int64   // Total accepted submissions
	CompletedTasks     int64   // Total tasks that returned without error
	FailedTasks        int64   // Total tasks that failed (error, panic or worker fault)
	CancelledTasks     int64   // Total queued tasks discarded by a non-draining shutdown
	RejectedTasks      int64   // Total rejected submissions (backpressure or closed)
	WorkerReplacements int64   // Total workers restarted after an internal fault
	QueueCapacity      int     // Maximum queue capacity
	QueueUtilization   float64 // Queue utilization percentage
	Shutdown           bool    // Shutdown has been initiated
}

// Executor runs submitted work on a fixed set of workers fed by one bounded FIFO queue
// Hides channel operations and goroutine creation from application code
type Executor interface {
	// Submit queues a task for execution and returns its Future
	// Fails with ErrQueueFull (backpressure) or ErrPoolClosed, both ErrRejected.
	// With ExecutorConfig.BlockOnFull the call waits for room instead of failing on a full queue.
	Submit(task Task) (*Future, error)

	// SubmitCallable queues a value-producing task
	SubmitCallable(c Callable) (*Future, error)

	// SubmitContext queues a task, waiting for room until ctx is done
	SubmitContext(ctx context.Context, task Task) (*Future, error)

	// SubmitCallableContext queues a value-producing task, waiting for room until ctx is done
	SubmitCallableContext(ctx context.Context, c Callable) (*Future, error)

	// SubmitWithTimeout queues a task with a timeout
	// Returns ErrQueueFull if task cannot be queued within timeout
	SubmitWithTimeout(task Task, timeout time.Duration) (*Future, error)

	// Shutdown stops accepting work and waits for workers to exit (up to ctx)
	// drain=true runs every queued task first; drain=false cancels queued tasks
	// and lets only running tasks finish. Idempotent: later calls just wait.
	// Returns ErrShutdownTimeout if ctx ends first; workers keep running.
	Shutdown(ctx context.Context, drain bool) error

	// AwaitTermination blocks until all workers have exited after Shutdown
	AwaitTermination(ctx context.Context) error

	// IsShutdown returns true once Shutdown has been called
	IsShutdown() bool

	// Workers returns the configured number of workers
	Workers() int

	// Stats returns current executor statistics
	Stats() ExecutorStats
}
