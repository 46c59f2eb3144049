package concurrency

import (
	"time"
)

// EventType identifies a task or worker lifecycle transition
type EventType int

const (
	EventTaskSubmitted EventType = iota
	EventTaskRejected
	EventTaskStarted
	EventTaskCompleted
	EventTaskFailed
	EventTaskCancelled
	EventWorkerReplaced
)

func (t EventType) String() string {
	switch t {
	case EventTaskSubmitted:
		return "submitted"
	case EventTaskRejected:
		return "rejected"
	case EventTaskStarted:
		return "started"
	case EventTaskCompleted:
		return "completed"
	case EventTaskFailed:
		return "failed"
	case EventTaskCancelled:
		return "cancelled"
	case EventWorkerReplaced:
		return "worker_replaced"
	default:
		return "unknown"
	}
}

// Event is the structured record handed to observers.
// Task fields are empty for EventWorkerReplaced and for rejections.
type Event struct {
	Type     EventType
	Executor string
	TaskID   string
	TaskName string
	Seq      uint64
	WorkerID int // -1 when no worker is involved
	Err      error
	Duration time.Duration // execution time for Completed/Failed
	Time     time.Time
}

// Observer receives lifecycle events. Observe runs synchronously on the
// emitting goroutine (submitter, worker or shutdown caller) and must not block.
// Events for one task come from different goroutines, so Submitted may be
// observed after Started. A panicking observer on a worker kills that worker,
// which is then replaced.
type Observer interface {
	Observe(event Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(event Event)

// Observe implements Observer
func (f ObserverFunc) Observe(event Event) {
	f(event)
}

// MultiObserver fans each event out to several observers in order
type MultiObserver []Observer

// Observe implements Observer
func (m MultiObserver) Observe(event Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(event)
		}
	}
}

// NewLoggingObserver logs every event through logger.
// Failures and worker replacements log at error level, rejections and
// cancellations at warn, everything else at debug.
func NewLoggingObserver(logger Logger) Observer {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return ObserverFunc(func(e Event) {
		switch e.Type {
		case EventTaskFailed:
			logger.Errorf("executor %s: worker %d: task %s (#%d) failed after %v: %v",
				e.Executor, e.WorkerID, e.TaskName, e.Seq, e.Duration, e.Err)
		case EventWorkerReplaced:
			logger.Errorf("executor %s: worker %d replaced: %v", e.Executor, e.WorkerID, e.Err)
		case EventTaskRejected:
			logger.Warnf("executor %s: task %s rejected: %v", e.Executor, e.TaskName, e.Err)
		case EventTaskCancelled:
			logger.Warnf("executor %s: task %s (#%d) cancelled", e.Executor, e.TaskName, e.Seq)
		case EventTaskCompleted:
			logger.Debugf("executor %s: worker %d: task %s (#%d) completed in %v",
				e.Executor, e.WorkerID, e.TaskName, e.Seq, e.Duration)
		default:
			logger.Debugf("executor %s: worker %d: task %s (#%d) %s",
				e.Executor, e.WorkerID, e.TaskName, e.Seq, e.Type)
		}
	})
}
