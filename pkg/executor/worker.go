package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/logger"
	"github.com/vnykmshr/taskflow/pkg/queue"
)

// environment is the read-only configuration every worker shares.
type environment struct {
	values  Values
	policy  FailurePolicy
	log     *logger.Logger
	limiter *rate.Limiter
	timeout time.Duration
	inst    *instrument
	tally   *tally

	onWorkerStart func(workerID int)
	onWorkerStop  func(workerID int, err error)
	onTaskDone    func(workerID, sequenceID int, err error)
}

// tally holds the run counters.
type tally struct {
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	alive     atomic.Int64
}

// work is the loop of worker id. It pops messages until it receives a stop
// signal, executing each job in turn. Results go to results when it is
// non-nil and failures always go to failures. Under FailFast the first
// failure ends the loop and is returned.
func work[T, R any](
	ctx context.Context,
	id int,
	tasks *queue.Queue[message[T, R]],
	results *queue.Queue[R],
	failures *queue.Queue[*tferrors.TaskError],
	env *environment,
	ready func(),
) (exitErr error) {
	log := env.log.With("worker", id)

	env.tally.alive.Add(1)
	env.inst.workerUp()
	defer func() {
		env.tally.alive.Add(-1)
		env.inst.workerDown()
		if env.onWorkerStop != nil {
			env.onWorkerStop(id, exitErr)
		}
	}()
	if err := startHook(id, env, ready); err != nil {
		log.Error("exiting before first task: %v", err)
		return err
	}

	for {
		msg, err := tasks.Pop(context.Background())
		if err != nil {
			// queue closed underneath us; nothing more will arrive
			return nil
		}
		env.inst.queued(tasks)

		switch m := msg.(type) {
		case stop:
			log.Debug("received stop signal")
			return nil
		case job[T, R]:
			terr := execute(ctx, id, m, results, failures, env, log)
			if terr != nil && env.policy == FailFast {
				log.Warn("terminating after task %d failure", m.task.SequenceID)
				return terr
			}
		}
	}
}

// startHook runs the OnWorkerStart hook and always reports the worker as
// ready, so a panicking hook cannot block Start.
func startHook(id int, env *environment, ready func()) (err error) {
	defer ready()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker start hook panicked: %v", r)
		}
	}()

	if env.onWorkerStart != nil {
		env.onWorkerStart(id)
	}
	return nil
}

// execute runs one job and routes its outcome.
func execute[T, R any](
	ctx context.Context,
	id int,
	j job[T, R],
	results *queue.Queue[R],
	failures *queue.Queue[*tferrors.TaskError],
	env *environment,
	log *logger.Logger,
) *tferrors.TaskError {
	call := Call[T]{
		Payload:    j.task.Payload,
		SequenceID: j.task.SequenceID,
		Total:      j.task.Total,
		WorkerID:   id,
		Values:     env.values,
	}

	start := time.Now()
	value, panicked, err := invoke(ctx, j.fn, call, env)
	env.inst.observe(time.Since(start))

	if err != nil {
		terr := &tferrors.TaskError{
			WorkerID:   id,
			SequenceID: j.task.SequenceID,
			Payload:    j.task.Payload,
			Cause:      err,
			Panicked:   panicked,
		}
		log.Error("failed with task %d (payload %v): %v", j.task.SequenceID, j.task.Payload, err)
		_ = failures.Push(terr)
		env.tally.failed.Add(1)
		env.inst.failed()
		if env.onTaskDone != nil {
			env.onTaskDone(id, j.task.SequenceID, terr)
		}
		return terr
	}

	if results != nil {
		_ = results.Push(value)
		env.inst.buffered(results)
	}
	env.tally.completed.Add(1)
	env.inst.completed()
	if env.onTaskDone != nil {
		env.onTaskDone(id, j.task.SequenceID, nil)
	}
	return nil
}

// invoke calls fn, converting a panic into an error. Limiter failures wrap
// errors.ErrRateLimited and calls cut short by TaskTimeout wrap
// errors.ErrTimeout.
func invoke[T, R any](ctx context.Context, fn TaskFunc[T, R], call Call[T], env *environment) (value R, panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			env.log.Debug("task %d panic stack:\n%s", call.SequenceID, debug.Stack())
			value = *new(R)
			panicked = true
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	if env.limiter != nil {
		if err := env.limiter.Wait(ctx); err != nil {
			return value, false, fmt.Errorf("%w: %w", tferrors.ErrRateLimited, err)
		}
	}

	if env.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, env.timeout)
		defer cancel()
	}

	value, err = fn(ctx, call)
	if err != nil && env.timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %v: %w", tferrors.ErrTimeout, env.timeout, err)
	}
	return value, false, err
}
