package executor

import (
	"context"
	"strconv"
	"time"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/logger"
	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// Total is the task-count hint handed to every task. It either holds the
// length of a materialized task source or is Unknown for a streaming one.
type Total struct {
	n     int
	known bool
}

// Unknown is the hint used when the task source has no countable length.
var Unknown = Total{}

// Count returns a known total of n tasks.
func Count(n int) Total {
	return Total{n: n, known: true}
}

// Value returns the count and whether it is known.
func (t Total) Value() (int, bool) {
	return t.n, t.known
}

// Known reports whether the total is a real count.
func (t Total) Known() bool {
	return t.known
}

// String renders the count, or "unknown".
func (t Total) String() string {
	if !t.known {
		return "unknown"
	}
	return strconv.Itoa(t.n)
}

// Task is the immutable descriptor of one unit of work.
type Task[T any] struct {
	Payload    T
	SequenceID int
	Total      Total
}

// Values is fixed extra context shared read-only by every task invocation.
type Values map[string]any

// Get returns the value stored under key.
func (v Values) Get(key string) (any, bool) {
	val, ok := v[key]
	return val, ok
}

// Call is everything a task function receives: the descriptor fields, the
// identity of the worker running it and the executor's fixed Values.
type Call[T any] struct {
	Payload    T
	SequenceID int
	Total      Total

	// WorkerID is the 0-indexed identity of the executing worker.
	WorkerID int

	Values Values
}

// TaskFunc processes one task. A returned error or a panic is a task failure.
type TaskFunc[T, R any] func(ctx context.Context, call Call[T]) (R, error)

// CollectMode selects whether and how results are gathered.
type CollectMode int

const (
	// Discard runs tasks for their side effects; results are dropped.
	Discard CollectMode = iota

	// Eager drains results while Stop joins the workers and keeps them in memory.
	Eager

	// Lazy joins the workers first; results are drained on demand afterwards.
	Lazy
)

// String returns the mode name.
func (m CollectMode) String() string {
	switch m {
	case Discard:
		return "discard"
	case Eager:
		return "eager"
	case Lazy:
		return "lazy"
	default:
		return "CollectMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// FailurePolicy decides what a worker does after one of its tasks fails.
type FailurePolicy int

const (
	// FailFast terminates the worker that observed the failure. The pool
	// keeps running with one worker fewer.
	FailFast FailurePolicy = iota

	// Isolate records the failure and lets the worker continue.
	Isolate
)

// String returns the policy name.
func (p FailurePolicy) String() string {
	switch p {
	case FailFast:
		return "fail_fast"
	case Isolate:
		return "isolate"
	default:
		return "FailurePolicy(" + strconv.Itoa(int(p)) + ")"
	}
}

// Config holds configuration options for creating an executor.
type Config struct {
	// Workers is the number of workers in the pool.
	// Must be greater than 0.
	Workers int

	// Collect selects the result collection mode. Defaults to Discard.
	Collect CollectMode

	// FailurePolicy defaults to FailFast.
	FailurePolicy FailurePolicy

	// Values is forwarded to every task invocation.
	Values Values

	// Name identifies the executor in logs and metrics. Defaults to "executor".
	Name string

	// Logger receives task failures and lifecycle events.
	// Defaults to logger.Default().
	Logger *logger.Logger

	// Metrics enables Prometheus instrumentation when non-nil.
	Metrics *metrics.Registry

	// RateLimit caps task starts per second across the pool. Zero disables it.
	RateLimit float64

	// Burst is the rate limiter bucket size. Defaults to 1 when RateLimit is set.
	Burst int

	// TaskTimeout bounds each task invocation's context. Zero means no timeout.
	TaskTimeout time.Duration

	// OnWorkerStart is called on the worker goroutine before its loop begins.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker exits; err is the task failure
	// that terminated it, or nil after a stop signal.
	OnWorkerStop func(workerID int, err error)

	// OnTaskDone is called after every task, with the failure if any.
	OnTaskDone func(workerID, sequenceID int, err error)
}

// Report summarises one executor run.
type Report struct {
	Workers   int
	Alive     int
	Submitted int64
	Completed int64
	Failed    int64

	// Abandoned counts tasks left in the queue because every worker died.
	Abandoned int64

	Failures []*tferrors.TaskError
}

// Err returns a *errors.RunError when any task failed or was abandoned,
// nil otherwise.
func (r Report) Err() error {
	if len(r.Failures) == 0 && r.Abandoned == 0 {
		return nil
	}
	return &tferrors.RunError{Failures: r.Failures, Abandoned: r.Abandoned}
}

// message is what travels on the task queue: either a job or the stop signal.
type message[T, R any] interface {
	isMessage()
}

// job carries one descriptor and the function that processes it.
type job[T, R any] struct {
	fn   TaskFunc[T, R]
	task Task[T]
}

func (job[T, R]) isMessage() {}

// stop tells the worker that receives it to exit.
type stop struct{}

func (stop) isMessage() {}
