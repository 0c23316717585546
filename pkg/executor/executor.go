package executor

import (
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/logger"
	"github.com/vnykmshr/taskflow/pkg/queue"
)

const module = "executor"

// drainPoll bounds each wait of an incremental Drain for the next result.
const drainPoll = 5 * time.Millisecond

type lifecycle int

const (
	created lifecycle = iota
	running
	stopped
)

// Executor owns a fixed pool of workers, the task queue feeding them and,
// unless results are discarded, the results queue they fill.
type Executor[T, R any] struct {
	config Config
	log    *logger.Logger
	env    *environment
	tally  tally

	tasks    *queue.Queue[message[T, R]]
	results  *queue.Queue[R]
	failures *queue.Queue[*tferrors.TaskError]

	workers sync.WaitGroup

	// mu guards the lifecycle state and everything Stop produces.
	mu        sync.RWMutex
	state     lifecycle
	finished  bool
	drained   bool
	collected []R
	failed    []*tferrors.TaskError
	abandoned int64
}

// New validates config and creates an executor. No worker runs until Start.
func New[T, R any](config Config) (*Executor[T, R], error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	if config.Name == "" {
		config.Name = module
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.RateLimit > 0 && config.Burst <= 0 {
		config.Burst = 1
	}

	e := &Executor[T, R]{
		config:   config,
		log:      config.Logger.WithPrefix(config.Name),
		tasks:    queue.New[message[T, R]](),
		failures: queue.New[*tferrors.TaskError](),
	}
	if config.Collect != Discard {
		e.results = queue.New[R]()
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst)
	}

	e.env = &environment{
		values:        config.Values,
		policy:        config.FailurePolicy,
		log:           e.log,
		limiter:       limiter,
		timeout:       config.TaskTimeout,
		inst:          newInstrument(config.Metrics, config.Name),
		tally:         &e.tally,
		onWorkerStart: config.OnWorkerStart,
		onWorkerStop:  config.OnWorkerStop,
		onTaskDone:    config.OnTaskDone,
	}

	return e, nil
}

func validateConfig(config Config) error {
	if err := validation.ValidatePositive(module, "Workers", config.Workers); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative(module, "RateLimit", config.RateLimit); err != nil {
		return err
	}
	if err := validation.ValidateNonNegativeDuration(module, "TaskTimeout", config.TaskTimeout); err != nil {
		return err
	}
	if config.Collect < Discard || config.Collect > Lazy {
		return tferrors.NewValidationError(module, "Collect", config.Collect, "unknown collect mode").
			WithHint("use Discard, Eager or Lazy")
	}
	if config.FailurePolicy < FailFast || config.FailurePolicy > Isolate {
		return tferrors.NewValidationError(module, "FailurePolicy", config.FailurePolicy, "unknown failure policy").
			WithHint("use FailFast or Isolate")
	}
	return nil
}

func stateError(operation, detail string) error {
	return tferrors.NewOperationError(module, operation, tferrors.ErrInvalidState).WithContext(detail)
}

// Start spawns the workers and returns once every one of them is running.
// ctx is passed to each task invocation; cancelling it does not stop the pool.
func (e *Executor[T, R]) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	e.mu.Lock()
	if e.state != created {
		e.mu.Unlock()
		return stateError("Start", "executor already started")
	}
	e.state = running
	e.mu.Unlock()

	var ready sync.WaitGroup
	ready.Add(e.config.Workers)
	for id := 0; id < e.config.Workers; id++ {
		e.workers.Add(1)
		go func(id int) {
			defer e.workers.Done()
			_ = work(ctx, id, e.tasks, e.results, e.failures, e.env, ready.Done)
		}(id)
	}
	ready.Wait()

	e.log.Debug("started %d workers (collect=%s, policy=%s)",
		e.config.Workers, e.config.Collect, e.config.FailurePolicy)
	return nil
}

// Submit enqueues one task. It never blocks and is safe to call from any
// goroutine, before or after Start. After Stop it returns errors.ErrClosed.
func (e *Executor[T, R]) Submit(fn TaskFunc[T, R], payload T, sequenceID int, total Total) error {
	if err := validation.ValidateNotNil(module, "fn", fn); err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.state == stopped {
		return tferrors.NewOperationError(module, "Submit", tferrors.ErrClosed).
			WithContext("executor has been stopped")
	}

	// counted before the push so a fast worker never completes an uncounted task
	e.tally.submitted.Add(1)
	err := e.tasks.Push(job[T, R]{
		fn:   fn,
		task: Task[T]{Payload: payload, SequenceID: sequenceID, Total: total},
	})
	if err != nil {
		e.tally.submitted.Add(-1)
		return tferrors.NewOperationError(module, "Submit", err)
	}
	e.env.inst.submitted(e.tasks)
	return nil
}

// Stop sends one stop signal per worker and waits for all of them to exit.
// In Eager mode results are drained while waiting. Tasks still queued after
// the join (possible only when every worker died) are discarded and counted
// as abandoned. Stop may be called once, after Start.
func (e *Executor[T, R]) Stop() error {
	e.mu.Lock()
	switch e.state {
	case created:
		e.mu.Unlock()
		return stateError("Stop", "executor was not started")
	case stopped:
		e.mu.Unlock()
		return stateError("Stop", "executor already stopped")
	}
	e.state = stopped
	e.mu.Unlock()

	for i := 0; i < e.config.Workers; i++ {
		_ = e.tasks.Push(stop{})
	}

	var collected []R
	if e.config.Collect == Eager {
		go func() {
			e.workers.Wait()
			e.results.Close()
		}()
		collected = make([]R, 0, e.results.Len())
		for {
			v, err := e.results.Pop(context.Background())
			if err != nil {
				break
			}
			collected = append(collected, v)
		}
	} else {
		e.workers.Wait()
		if e.results != nil {
			e.results.Close()
		}
	}

	var abandoned int64
	for _, msg := range e.tasks.Drain() {
		if _, ok := msg.(job[T, R]); ok {
			abandoned++
		}
	}
	failed := e.failures.Drain()

	e.mu.Lock()
	e.collected = collected
	e.failed = failed
	e.abandoned = abandoned
	e.finished = true
	e.mu.Unlock()

	e.env.inst.abandoned(int(abandoned))
	if abandoned > 0 {
		e.log.Warn("%d tasks abandoned: no worker left to run them", abandoned)
	}
	e.log.Debug("stopped: submitted=%d completed=%d failed=%d",
		e.tally.submitted.Load(), e.tally.completed.Load(), e.tally.failed.Load())
	return nil
}

// Results returns every collected result. Discard yields nil. Eager returns
// the results drained by Stop and may be called repeatedly. Lazy drains the
// results queue once; a second call reports errors.ErrInvalidState.
// Results must be called after Stop.
func (e *Executor[T, R]) Results() ([]R, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.finished {
		return nil, stateError("Results", "results are available once Stop returns")
	}

	switch e.config.Collect {
	case Eager:
		return slices.Clone(e.collected), nil
	case Lazy:
		if e.drained {
			return nil, stateError("Results", "results already drained")
		}
		e.drained = true
		return e.results.Drain(), nil
	default:
		return nil, nil
	}
}

// Drain returns an iterator that yields results as they are buffered.
// Before Stop it keeps polling while tasks are queued or running and at
// least one worker is alive, so it returns once both the task queue and the
// results queue are empty. After Stop it yields everything not yet consumed.
// Only valid in Lazy mode; Discard yields nothing.
func (e *Executor[T, R]) Drain() (iter.Seq[R], error) {
	switch e.config.Collect {
	case Discard:
		return func(func(R) bool) {}, nil
	case Eager:
		return nil, stateError("Drain", "results are collected eagerly by Stop; use Results")
	}

	e.mu.RLock()
	drained := e.drained
	e.mu.RUnlock()
	if drained {
		return nil, stateError("Drain", "results already drained")
	}

	return func(yield func(R) bool) {
		for {
			v, ok := e.results.TryPop()
			if !ok {
				if !e.pending() {
					return
				}
				ctx, cancel := context.WithTimeout(context.Background(), drainPoll)
				var err error
				v, err = e.results.Pop(ctx)
				cancel()
				if err != nil {
					if e.results.IsClosed() {
						return
					}
					continue
				}
			}
			e.env.inst.buffered(e.results)
			if !yield(v) {
				return
			}
		}
	}, nil
}

// pending reports whether submitted tasks are still queued or running and a
// worker is alive to finish them. A worker counts a task as completed only
// after pushing its result.
func (e *Executor[T, R]) pending() bool {
	if e.results.IsClosed() || e.tally.alive.Load() == 0 {
		return false
	}
	t := &e.tally
	return t.submitted.Load()-t.completed.Load()-t.failed.Load() > 0
}

// Alive returns the number of workers currently running their loop.
func (e *Executor[T, R]) Alive() int {
	return int(e.tally.alive.Load())
}

// Workers returns the configured worker count.
func (e *Executor[T, R]) Workers() int {
	return e.config.Workers
}

// Report summarises the run so far. Failures recorded before Stop are
// included as a snapshot.
func (e *Executor[T, R]) Report() Report {
	e.mu.RLock()
	failures := e.failed
	abandoned := e.abandoned
	done := e.finished
	e.mu.RUnlock()

	if !done {
		failures = e.failures.Snapshot()
	}

	return Report{
		Workers:   e.config.Workers,
		Alive:     e.Alive(),
		Submitted: e.tally.submitted.Load(),
		Completed: e.tally.completed.Load(),
		Failed:    e.tally.failed.Load(),
		Abandoned: abandoned,
		Failures:  slices.Clone(failures),
	}
}
