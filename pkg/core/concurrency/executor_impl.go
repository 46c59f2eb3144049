package concurrency

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// job pairs submitted work with the Future it resolves
type job struct {
	callable Callable
	future   *Future
}

// defaultExecutor implements Executor using a bounded Mailbox and worker goroutines
// Hides all Go concurrency primitives from public API
type defaultExecutor struct {
	name        string
	queue       Mailbox
	workers     int
	blockOnFull bool
	ctx         context.Context // handed to every task
	observer    Observer
	logger      Logger

	wg           sync.WaitGroup
	shutdownOnce sync.Once
	terminated   chan struct{}
	closed       atomic.Bool
	discard      atomic.Bool // set by a non-draining shutdown
	seq          atomic.Uint64
	nextWorkerID atomic.Int64

	// Metrics (atomic for thread-safety)
	liveWorkers        int64
	queuedTasks        int64
	runningTasks       int64
	submittedTasks     int64
	completedTasks     int64
	failedTasks        int64
	cancelledTasks     int64
	rejectedTasks      int64
	workerReplacements int64
}

// ExecutorConfig configures an Executor
type ExecutorConfig struct {
	Name        string   `yaml:"name" json:"name"`                   // Used in events and logs
	Workers     int      `yaml:"workers" json:"workers"`             // Number of worker goroutines, must be positive
	QueueSize   int      `yaml:"queue_size" json:"queue_size"`       // Bounded queue size; 0 means direct hand-off
	BlockOnFull bool     `yaml:"block_on_full" json:"block_on_full"` // Submit waits for room instead of failing fast
	Observer    Observer `yaml:"-" json:"-"`                         // Optional lifecycle hook
	Logger      Logger   `yaml:"-" json:"-"`                         // Defaults to NewDefaultLogger()
}

// DefaultExecutorConfig returns default executor configuration
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Name:      "executor",
		Workers:   10,
		QueueSize: 1000,
	}
}

// Validate checks the worker count and queue size
func (c ExecutorConfig) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfiguration, c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: queue size must not be negative, got %d", ErrInvalidConfiguration, c.QueueSize)
	}
	return nil
}

// NewExecutor creates a new Executor and starts its workers
// ctx is passed to every task; it does not control the executor's lifetime
func NewExecutor(ctx context.Context, config ExecutorConfig) (Executor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if config.Name == "" {
		config.Name = "executor"
	}
	if config.Logger == nil {
		config.Logger = NewDefaultLogger()
	}

	exec := &defaultExecutor{
		name:        config.Name,
		queue:       NewBoundedMailbox(config.QueueSize),
		workers:     config.Workers,
		blockOnFull: config.BlockOnFull,
		ctx:         ctx,
		observer:    config.Observer,
		logger:      config.Logger,
		terminated:  make(chan struct{}),
	}

	exec.startWorkers()

	return exec, nil
}

// NewFixedExecutor creates an executor with a fixed number of workers
func NewFixedExecutor(ctx context.Context, workers, queueSize int) (Executor, error) {
	config := DefaultExecutorConfig()
	config.Name = "fixed"
	config.Workers = workers
	config.QueueSize = queueSize
	return NewExecutor(ctx, config)
}

// NewSingleExecutor creates an executor with one worker, so tasks run
// strictly one after another in submission order
func NewSingleExecutor(ctx context.Context, queueSize int) (Executor, error) {
	config := DefaultExecutorConfig()
	config.Name = "single"
	config.Workers = 1
	config.QueueSize = queueSize
	return NewExecutor(ctx, config)
}

// startWorkers starts worker goroutines (hides go func() calls)
func (e *defaultExecutor) startWorkers() {
	for i := 0; i < e.workers; i++ {
		e.startWorker()
	}
}

func (e *defaultExecutor) startWorker() {
	id := int(e.nextWorkerID.Add(1) - 1)
	e.wg.Add(1)
	atomic.AddInt64(&e.liveWorkers, 1)
	go e.worker(id) // Hidden: goroutine creation
}

// workerState tracks what a worker holds so a dying worker can clean up after itself
type workerState struct {
	job    *job
	inCall bool
}

// worker processes tasks from the queue until it is closed and drained
func (e *defaultExecutor) worker(id int) {
	state := &workerState{}
	exited := false

	defer func() {
		atomic.AddInt64(&e.liveWorkers, -1)
		if !exited {
			e.replaceWorker(id, state, recover())
		}
		e.wg.Done()
	}()

	for {
		msg, err := e.queue.Receive(context.Background()) // Hidden: channel receive
		if err != nil {
			exited = true
			return // Closed and drained
		}
		j := msg.(*job)
		atomic.AddInt64(&e.queuedTasks, -1)

		if e.discard.Load() {
			e.cancelJob(j)
			continue
		}
		if !j.future.start() {
			continue
		}

		state.job = j
		e.execute(id, j, state)
		state.job = nil
	}
}

// execute runs one task and records its outcome on the Future
func (e *defaultExecutor) execute(id int, j *job, state *workerState) {
	name := j.callable.Name()
	e.emit(Event{Type: EventTaskStarted, TaskID: j.future.id, TaskName: name, Seq: j.future.seq, WorkerID: id})

	atomic.AddInt64(&e.runningTasks, 1)
	state.inCall = true
	start := time.Now()
	value, err := e.call(j.callable)
	duration := time.Since(start)
	state.inCall = false
	atomic.AddInt64(&e.runningTasks, -1)

	if err != nil {
		failure := &TaskFailure{TaskName: name, Cause: err}
		atomic.AddInt64(&e.failedTasks, 1)
		j.future.resolve(StateRunning, StateFailed, nil, failure)
		e.emit(Event{Type: EventTaskFailed, TaskID: j.future.id, TaskName: name, Seq: j.future.seq, WorkerID: id, Err: failure, Duration: duration})
		return
	}

	atomic.AddInt64(&e.completedTasks, 1)
	j.future.resolve(StateRunning, StateCompleted, value, nil)
	e.emit(Event{Type: EventTaskCompleted, TaskID: j.future.id, TaskName: name, Seq: j.future.seq, WorkerID: id, Duration: duration})
}

// call invokes the task body, converting a panic into a *PanicError
func (e *defaultExecutor) call(c Callable) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return c.Call(e.ctx)
}

// replaceWorker runs on a worker that died outside normal exit: a panic
// escaped the task wrapper (observer hooks) or the task called runtime.Goexit.
// The held task fails with ErrWorkerFault and a fresh worker takes the slot.
func (e *defaultExecutor) replaceWorker(id int, state *workerState, r interface{}) {
	var cause error
	if r != nil {
		cause = fmt.Errorf("%w: %w", ErrWorkerFault, &PanicError{Value: r, Stack: debug.Stack()})
	} else {
		cause = fmt.Errorf("%w: goroutine exited", ErrWorkerFault)
	}

	if state.inCall {
		atomic.AddInt64(&e.runningTasks, -1)
	}
	var failed *job
	if j := state.job; j != nil {
		if j.future.State() == StateRunning {
			atomic.AddInt64(&e.failedTasks, 1)
			j.future.resolve(StateRunning, StateFailed, nil, &TaskFailure{TaskName: j.callable.Name(), Cause: cause})
			failed = j
		}
	}

	atomic.AddInt64(&e.workerReplacements, 1)
	e.logger.Errorf("executor %s: worker %d terminated, starting replacement: %v", e.name, id, cause)
	e.startWorker()

	if failed != nil {
		e.safeEmit(Event{Type: EventTaskFailed, TaskID: failed.future.id, TaskName: failed.callable.Name(),
			Seq: failed.future.seq, WorkerID: id, Err: &TaskFailure{TaskName: failed.callable.Name(), Cause: cause}})
	}
	e.safeEmit(Event{Type: EventWorkerReplaced, WorkerID: id, Err: cause})
}

// safeEmit is emit for goroutines that are already unwinding a worker fault
func (e *defaultExecutor) safeEmit(event Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("executor %s: observer panicked on %s event: %v", e.name, event.Type, r)
		}
	}()
	e.emit(event)
}

func (e *defaultExecutor) cancelJob(j *job) {
	if j.future.State() != StatePending {
		return
	}
	atomic.AddInt64(&e.cancelledTasks, 1)
	j.future.cancel()
	e.emit(Event{Type: EventTaskCancelled, TaskID: j.future.id, TaskName: j.callable.Name(), Seq: j.future.seq, WorkerID: -1})
}

func (e *defaultExecutor) emit(event Event) {
	if e.observer == nil {
		return
	}
	event.Executor = e.name
	event.Time = time.Now()
	e.observer.Observe(event)
}

// Submit implements Executor interface
func (e *defaultExecutor) Submit(task Task) (*Future, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	return e.submit(context.Background(), taskCallable{task: task}, e.blockOnFull)
}

// SubmitCallable implements Executor interface
func (e *defaultExecutor) SubmitCallable(c Callable) (*Future, error) {
	if c == nil {
		return nil, ErrNilTask
	}
	return e.submit(context.Background(), c, e.blockOnFull)
}

// SubmitContext implements Executor interface
func (e *defaultExecutor) SubmitContext(ctx context.Context, task Task) (*Future, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	return e.submit(ctx, taskCallable{task: task}, true)
}

// SubmitCallableContext implements Executor interface
func (e *defaultExecutor) SubmitCallableContext(ctx context.Context, c Callable) (*Future, error) {
	if c == nil {
		return nil, ErrNilTask
	}
	return e.submit(ctx, c, true)
}

// SubmitWithTimeout implements Executor interface
func (e *defaultExecutor) SubmitWithTimeout(task Task, timeout time.Duration) (*Future, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return e.SubmitContext(ctx, task)
}

// submit enqueues c; block selects waiting for room over failing fast
func (e *defaultExecutor) submit(ctx context.Context, c Callable, block bool) (*Future, error) {
	if e.closed.Load() {
		return nil, e.reject(c, ErrPoolClosed)
	}

	f := newFuture(e.seq.Add(1), c.Name())
	j := &job{callable: c, future: f}

	atomic.AddInt64(&e.queuedTasks, 1)
	var err error
	if block {
		err = e.queue.SendContext(ctx, j) // Hidden: channel send
	} else {
		err = e.queue.Send(j)
	}
	if err != nil {
		atomic.AddInt64(&e.queuedTasks, -1)
		switch {
		case errors.Is(err, ErrMailboxClosed):
			return nil, e.reject(c, ErrPoolClosed)
		case errors.Is(err, ErrMailboxFull):
			return nil, e.reject(c, ErrQueueFull)
		default:
			return nil, e.reject(c, fmt.Errorf("%w: %w", ErrQueueFull, err))
		}
	}

	atomic.AddInt64(&e.submittedTasks, 1)
	e.emit(Event{Type: EventTaskSubmitted, TaskID: f.id, TaskName: f.name, Seq: f.seq, WorkerID: -1})
	return f, nil
}

func (e *defaultExecutor) reject(c Callable, err error) error {
	atomic.AddInt64(&e.rejectedTasks, 1)
	e.emit(Event{Type: EventTaskRejected, TaskName: c.Name(), WorkerID: -1, Err: err})
	return err
}

// Shutdown implements Executor interface
func (e *defaultExecutor) Shutdown(ctx context.Context, drain bool) error {
	e.shutdownOnce.Do(func() {
		e.closed.Store(true)
		if !drain {
			e.discard.Store(true)
		}

		// Blocked submitters return ErrPoolClosed; no send can follow
		e.queue.Close()

		// Wait for workers in the background (hidden: goroutine creation)
		go func() {
			e.wg.Wait()
			close(e.terminated)
		}()

		e.logger.Infof("executor %s: shutdown initiated (drain=%t)", e.name, drain)
		if !drain {
			e.cancelQueued()
		}
	})

	return e.AwaitTermination(ctx)
}

// cancelQueued discards whatever is still buffered; workers cancel anything they dequeue concurrently
func (e *defaultExecutor) cancelQueued() {
	for {
		msg, ok, err := e.queue.TryReceive()
		if err != nil || !ok {
			return
		}
		atomic.AddInt64(&e.queuedTasks, -1)
		e.cancelJob(msg.(*job))
	}
}

// AwaitTermination implements Executor interface
func (e *defaultExecutor) AwaitTermination(ctx context.Context) error {
	select {
	case <-e.terminated:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

// IsShutdown implements Executor interface
func (e *defaultExecutor) IsShutdown() bool {
	return e.closed.Load()
}

// Workers implements Executor interface
func (e *defaultExecutor) Workers() int {
	return e.workers
}

// Stats implements Executor interface
func (e *defaultExecutor) Stats() ExecutorStats {
	queued := atomic.LoadInt64(&e.queuedTasks)
	if queued < 0 {
		queued = 0
	}
	capacity := e.queue.Capacity()

	queueUtilization := 0.0
	if capacity > 0 {
		queueUtilization = float64(queued) / float64(capacity) * 100.0
		if queueUtilization > 100.0 {
			queueUtilization = 100.0
		}
	}

	return ExecutorStats{
		QueuedTasks:        queued,
		RunningTasks:       atomic.LoadInt64(&e.runningTasks),
		ActiveWorkers:      int(atomic.LoadInt64(&e.liveWorkers)),
		SubmittedTasks:     atomic.LoadInt64(&e.submittedTasks),
		CompletedTasks:     atomic.LoadInt64(&e.completedTasks),
		FailedTasks:        atomic.LoadInt64(&e.failedTasks),
		CancelledTasks:     atomic.LoadInt64(&e.cancelledTasks),
		RejectedTasks:      atomic.LoadInt64(&e.rejectedTasks),
		WorkerReplacements: atomic.LoadInt64(&e.workerReplacements),
		QueueCapacity:      capacity,
		QueueUtilization:   queueUtilization,
		Shutdown:           e.closed.Load(),
	}
}
