package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fluxorio/workpool/pkg/core/concurrency"
	"github.com/fluxorio/workpool/pkg/core/failfast"
	"github.com/fluxorio/workpool/pkg/observability/otel"
	"github.com/fluxorio/workpool/pkg/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
)

// App runs the demo workload on a fixed pool and a single-worker executor
type App struct {
	Config     *AppConfig
	Logger     concurrency.Logger
	Out        io.Writer
	Registerer prom.Registerer
	Gatherer   prom.Gatherer
}

// Run starts the executors and metrics server, runs the workload and shuts
// everything down. Cancelling ctx stops the workload and discards queued tasks.
func (a *App) Run(ctx context.Context) (err error) {
	defer failfast.Recover(&err)
	failfast.NotNil(a.Config, "config")
	failfast.NotNil(a.Logger, "logger")
	failfast.NotNil(a.Out, "output writer")
	failfast.If(!a.Config.Metrics.Enabled || (a.Registerer != nil && a.Gatherer != nil),
		"metrics enabled without a registerer and gatherer")

	cfg := a.Config
	out := &lockedWriter{w: a.Out}

	observers := concurrency.MultiObserver{concurrency.NewLoggingObserver(a.Logger)}

	if cfg.Metrics.Enabled {
		observers = append(observers, prometheus.NewMetrics(a.Registerer))
	}

	if cfg.Tracing.Exporter != "" && cfg.Tracing.Exporter != otel.ExporterNone {
		tp, err := otel.NewTracerProvider(ctx, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(flushCtx); err != nil {
				a.Logger.Warnf("tracing shutdown: %v", err)
			}
		}()
		observers = append(observers, otel.NewTracingObserver(tp))
		a.Logger.Infof("tracing enabled, exporter=%s", cfg.Tracing.Exporter)
	}

	poolConfig := cfg.Executor
	poolConfig.Observer = observers
	poolConfig.Logger = a.Logger
	pool, err := concurrency.NewExecutor(ctx, poolConfig)
	if err != nil {
		return err
	}

	singleConfig := concurrency.ExecutorConfig{
		Name:      poolConfig.Name + "-single",
		Workers:   1,
		QueueSize: cfg.SingleQueueSize,
		Observer:  observers,
		Logger:    a.Logger,
	}
	single, err := concurrency.NewExecutor(ctx, singleConfig)
	if err != nil {
		pool.Shutdown(context.Background(), false)
		return err
	}

	if cfg.Metrics.Enabled {
		if err := prometheus.RegisterExecutor(a.Registerer, poolConfig.Name, pool); err != nil {
			a.Logger.Warnf("register executor collector: %v", err)
		}
		if err := prometheus.RegisterExecutor(a.Registerer, singleConfig.Name, single); err != nil {
			a.Logger.Warnf("register executor collector: %v", err)
		}

		srv := prometheus.NewServer(cfg.Metrics.Path, a.Gatherer)
		go func() {
			a.Logger.Infof("metrics listening on %s%s", cfg.Metrics.Addr, cfg.Metrics.Path)
			if err := srv.ListenAndServe(cfg.Metrics.Addr); err != nil {
				a.Logger.Errorf("metrics server: %v", err)
			}
		}()
		defer srv.Shutdown()
	}

	done := make(chan error, 1)
	go func() {
		done <- runWorkload(ctx, pool, single, cfg.Count, out)
	}()

	var runErr error
	drain := true
	select {
	case runErr = <-done:
	case <-ctx.Done():
		a.Logger.Warnf("interrupted, discarding queued tasks")
		drain = false
	}

	if runErr == nil && drain && cfg.Metrics.Enabled && cfg.Metrics.Linger {
		a.Logger.Infof("workload finished, serving metrics until interrupted")
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := pool.Shutdown(shutdownCtx, drain); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", poolConfig.Name, err))
	}
	if err := single.Shutdown(shutdownCtx, drain); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", singleConfig.Name, err))
	}

	stats := pool.Stats()
	a.Logger.Infof("%s: submitted=%d completed=%d failed=%d cancelled=%d rejected=%d",
		poolConfig.Name, stats.SubmittedTasks, stats.CompletedTasks, stats.FailedTasks,
		stats.CancelledTasks, stats.RejectedTasks)

	return errors.Join(errs...)
}

// runWorkload mirrors the classic thread-creation walkthrough: two counting
// tasks, a letters task that joins on one of them before handing work to the
// single-worker executor, a callable with a result, and a split-and-sum job.
func runWorkload(ctx context.Context, pool, single concurrency.Executor, count int, out io.Writer) error {
	even, err := pool.Submit(concurrency.NewNamedTask("even", func(ctx context.Context) error {
		for i := 0; i <= count; i += 2 {
			if err := ctx.Err(); err != nil {
				return err
			}
			fmt.Fprintf(out, "even: %d\n", i)
		}
		return nil
	}))
	if err != nil {
		return err
	}

	odd, err := pool.Submit(concurrency.NewNamedTask("odd", func(ctx context.Context) error {
		for i := 1; i <= count; i += 2 {
			if err := ctx.Err(); err != nil {
				return err
			}
			fmt.Fprintf(out, "odd: %d\n", i)
		}
		fmt.Fprintln(out, "----- odd numbers done -----")
		return nil
	}))
	if err != nil {
		return err
	}

	letters, err := pool.Submit(concurrency.NewNamedTask("letters", func(ctx context.Context) error {
		for c := 'A'; c <= 'Z'; c++ {
			fmt.Fprintf(out, "letters: %c\n", c)
		}
		fmt.Fprintln(out, "----- upper case done -----")

		// join on the odd task before continuing
		if _, err := odd.AwaitContext(ctx); err != nil {
			return err
		}
		after, err := single.Submit(concurrency.NewNamedTask("after-letters", func(ctx context.Context) error {
			fmt.Fprintln(out, "after-letters: runs once odd and letters are done")
			return nil
		}))
		if err != nil {
			return err
		}
		if _, err := after.AwaitContext(ctx); err != nil {
			return err
		}

		for c := 'a'; c <= 'z'; c++ {
			fmt.Fprintf(out, "letters: %c\n", c)
		}
		return nil
	}))
	if err != nil {
		return err
	}

	runnable, err := single.Submit(concurrency.NewNamedTask("runnable", func(ctx context.Context) error {
		fmt.Fprintln(out, "----- runnable on the single executor")
		return nil
	}))
	if err != nil {
		return err
	}

	callable, err := pool.SubmitCallable(concurrency.NewNamedCallable("callable", func(ctx context.Context) (interface{}, error) {
		sum := 0
		for i := 1; i <= count; i++ {
			sum += i
		}
		return sum, nil
	}))
	if err != nil {
		return err
	}

	total, err := splitSum(ctx, pool, count, 4)
	if err != nil {
		return err
	}

	for _, f := range []*concurrency.Future{even, odd, letters, runnable} {
		if _, err := f.AwaitContext(ctx); err != nil {
			return fmt.Errorf("task %s: %w", f.Name(), err)
		}
	}

	sum, err := awaitInt(ctx, callable)
	if err != nil {
		return fmt.Errorf("task %s: %w", callable.Name(), err)
	}
	fmt.Fprintf(out, "----- callable result: %d\n", sum)
	fmt.Fprintf(out, "----- split sum result: %d\n", total)
	return nil
}

// splitSum adds 1..n by splitting the range into parts callables and joining
// their results
func splitSum(ctx context.Context, pool concurrency.Executor, n, parts int) (int, error) {
	if parts < 1 {
		parts = 1
	}
	step := (n + parts - 1) / parts
	if step < 1 {
		step = 1
	}

	futures := make([]*concurrency.Future, 0, parts)
	for lo := 1; lo <= n; lo += step {
		lo, hi := lo, min(lo+step-1, n)
		f, err := pool.SubmitCallable(concurrency.NewNamedCallable(
			fmt.Sprintf("sum[%d..%d]", lo, hi),
			func(ctx context.Context) (interface{}, error) {
				s := 0
				for i := lo; i <= hi; i++ {
					s += i
				}
				return s, nil
			}))
		if err != nil {
			return 0, err
		}
		futures = append(futures, f)
	}

	total := 0
	for _, f := range futures {
		v, err := awaitInt(ctx, f)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

func awaitInt(ctx context.Context, f *concurrency.Future) (int, error) {
	if _, err := f.AwaitContext(ctx); err != nil {
		return 0, err
	}
	return concurrency.AwaitValue[int](f, 0)
}

// lockedWriter serializes writes from concurrent tasks
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
