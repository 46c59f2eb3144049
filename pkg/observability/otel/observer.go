package otel

import (
	"context"
	"sync"

	"github.com/fluxorio/workpool/pkg/core/concurrency"
	gotel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the tracer name used by TracingObserver
const InstrumentationName = "github.com/fluxorio/workpool"

// TracingObserver turns executor events into spans. Each task gets one span
// from Started to Completed/Failed. Tasks that never run (rejected or cancelled)
// and worker replacements are recorded as zero-length spans.
type TracingObserver struct {
	tracer trace.Tracer
	spans  sync.Map // task ID -> trace.Span
}

var _ concurrency.Observer = (*TracingObserver)(nil)

// NewTracingObserver creates an observer on tp, or on the global provider when tp is nil
func NewTracingObserver(tp trace.TracerProvider) *TracingObserver {
	if tp == nil {
		tp = gotel.GetTracerProvider()
	}
	return &TracingObserver{tracer: tp.Tracer(InstrumentationName)}
}

// Observe implements concurrency.Observer
func (o *TracingObserver) Observe(e concurrency.Event) {
	switch e.Type {
	case concurrency.EventTaskStarted:
		_, span := o.tracer.Start(context.Background(), spanName(e),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithTimestamp(e.Time),
			trace.WithAttributes(taskAttributes(e)...),
		)
		o.spans.Store(e.TaskID, span)

	case concurrency.EventTaskCompleted:
		if span, ok := o.take(e.TaskID); ok {
			span.SetAttributes(attribute.Int64("workpool.duration_ms", e.Duration.Milliseconds()))
			span.SetStatus(codes.Ok, "")
			span.End(trace.WithTimestamp(e.Time))
		}

	case concurrency.EventTaskFailed:
		span, ok := o.take(e.TaskID)
		if !ok {
			// failed without a Started event: the worker died before running it
			_, span = o.tracer.Start(context.Background(), spanName(e),
				trace.WithTimestamp(e.Time),
				trace.WithAttributes(taskAttributes(e)...),
			)
		}
		span.SetAttributes(attribute.Int64("workpool.duration_ms", e.Duration.Milliseconds()))
		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		} else {
			span.SetStatus(codes.Error, "task failed")
		}
		span.End(trace.WithTimestamp(e.Time))

	case concurrency.EventTaskCancelled:
		span, ok := o.take(e.TaskID)
		if !ok {
			_, span = o.tracer.Start(context.Background(), spanName(e),
				trace.WithTimestamp(e.Time),
				trace.WithAttributes(taskAttributes(e)...),
			)
		}
		span.SetAttributes(attribute.Bool("workpool.cancelled", true))
		span.End(trace.WithTimestamp(e.Time))

	case concurrency.EventTaskRejected:
		_, span := o.tracer.Start(context.Background(), "workpool.reject",
			trace.WithTimestamp(e.Time),
			trace.WithAttributes(attribute.String("workpool.executor", e.Executor)),
		)
		if e.Err != nil {
			span.RecordError(e.Err)
			span.SetStatus(codes.Error, e.Err.Error())
		}
		span.End(trace.WithTimestamp(e.Time))

	case concurrency.EventWorkerReplaced:
		_, span := o.tracer.Start(context.Background(), "workpool.worker_replaced",
			trace.WithTimestamp(e.Time),
			trace.WithAttributes(
				attribute.String("workpool.executor", e.Executor),
				attribute.Int("workpool.worker_id", e.WorkerID),
			),
		)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.SetStatus(codes.Error, "worker replaced")
		span.End(trace.WithTimestamp(e.Time))
	}
}

// Pending returns the number of spans still open
func (o *TracingObserver) Pending() int {
	n := 0
	o.spans.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (o *TracingObserver) take(taskID string) (trace.Span, bool) {
	v, ok := o.spans.LoadAndDelete(taskID)
	if !ok {
		return nil, false
	}
	return v.(trace.Span), true
}

func spanName(e concurrency.Event) string {
	if e.TaskName != "" {
		return "workpool.task " + e.TaskName
	}
	return "workpool.task"
}

func taskAttributes(e concurrency.Event) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("workpool.executor", e.Executor),
		attribute.String("workpool.task_id", e.TaskID),
		attribute.String("workpool.task_name", e.TaskName),
		attribute.Int64("workpool.seq", int64(e.Seq)),
		attribute.Int("workpool.worker_id", e.WorkerID),
	}
}
