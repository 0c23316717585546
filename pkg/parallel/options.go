package parallel

import (
	"runtime"
	"sync/atomic"
	"time"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/executor"
	"github.com/vnykmshr/taskflow/pkg/logger"
	"github.com/vnykmshr/taskflow/pkg/metrics"
)

const module = "parallel"

// Option configures a single Map, MapSeq, Each or EachSeq call.
type Option func(*options)

// ProgressFunc is called after every task with the number of finished
// tasks so far and the total-count hint of the run.
type ProgressFunc func(done int, total executor.Total)

type options struct {
	workers    int
	workersSet bool
	collect    executor.CollectMode
	policy     executor.FailurePolicy
	values     executor.Values
	name       string
	log        *logger.Logger
	metrics    *metrics.Registry
	rateLimit  float64
	burst      int
	timeout    time.Duration
	progress   ProgressFunc
}

// WithWorkers sets the worker count. Zero or a negative count makes the
// call fail with errors.ErrInvalidConfiguration.
// If not specified, defaults to min(len(items), runtime.GOMAXPROCS(0)).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
		o.workersSet = true
	}
}

// WithCollectMode selects Eager (default) or Lazy result collection.
// It has no effect on Each and EachSeq, which never collect.
func WithCollectMode(mode executor.CollectMode) Option {
	return func(o *options) {
		o.collect = mode
	}
}

// WithFailurePolicy selects what a worker does after a task fails.
func WithFailurePolicy(policy executor.FailurePolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithValues forwards fixed values to every task invocation.
func WithValues(values executor.Values) Option {
	return func(o *options) {
		o.values = values
	}
}

// WithName names the executor in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger receiving task failures.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(registry *metrics.Registry) Option {
	return func(o *options) {
		o.metrics = registry
	}
}

// WithRateLimit caps task starts per second across all workers.
//
// Example:
//
//	WithRateLimit(10, 5) // 10 tasks/sec with bursts of 5
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(o *options) {
		o.rateLimit = tasksPerSecond
		o.burst = burst
	}
}

// WithTaskTimeout bounds the context of each task invocation.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithProgress registers a callback run after every task, from the worker
// that finished it. It must be safe for concurrent use.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

func buildOptions(opts []Option) *options {
	o := &options{
		collect: executor.Eager,
		name:    module,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// workerCount resolves the pool size. size is the number of items of a
// materialized source, or -1 for a streaming one.
func (o *options) workerCount(size int) int {
	if o.workersSet {
		return o.workers
	}
	n := runtime.GOMAXPROCS(0)
	if size >= 0 && size < n {
		n = size
	}
	return max(n, 1)
}

func (o *options) config(size int, collect bool, total executor.Total) (executor.Config, error) {
	cfg := executor.Config{
		Workers:       o.workerCount(size),
		Collect:       executor.Discard,
		FailurePolicy: o.policy,
		Values:        o.values,
		Name:          o.name,
		Logger:        o.log,
		Metrics:       o.metrics,
		RateLimit:     o.rateLimit,
		Burst:         o.burst,
		TaskTimeout:   o.timeout,
	}

	if collect {
		if o.collect == executor.Discard {
			return cfg, tferrors.NewValidationError(module, "CollectMode", o.collect, "results are requested").
				WithHint("use Eager or Lazy")
		}
		cfg.Collect = o.collect
	}

	if o.progress != nil {
		var done atomic.Int64
		progress := o.progress
		cfg.OnTaskDone = func(_, _ int, _ error) {
			progress(int(done.Add(1)), total)
		}
	}
	return cfg, nil
}
