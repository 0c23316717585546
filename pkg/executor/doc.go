/*
Package executor provides a bounded worker-pool task executor.

An Executor owns a fixed number of worker goroutines, an unbounded task queue
feeding them and, when results are collected, an unbounded results queue.
Workers are plain functions: each pops messages from the task queue, runs
the task function of every job it receives and exits on the first stop
signal. Stop enqueues exactly one stop signal per worker, so the pool always
terminates once the submitted tasks are consumed.

Basic usage:

	ex, err := executor.New[string, int](executor.Config{
		Workers: 4,
		Collect: executor.Eager,
	})
	if err != nil {
		return err // errors.Is(err, errors.ErrInvalidConfiguration)
	}
	_ = ex.Start(ctx)

	for i, word := range words {
		_ = ex.Submit(countLetters, word, i, executor.Count(len(words)))
	}

	_ = ex.Stop()
	counts, _ := ex.Results()

Task functions receive a Call carrying the payload, its sequence id, the
total-count hint (executor.Unknown for streaming sources), the id of the
worker running it and the executor's fixed Values:

	func countLetters(ctx context.Context, c executor.Call[string]) (int, error) {
		return len(c.Payload), nil
	}

Results arrive in completion order. Embed c.SequenceID in the result when
submission order matters.

Collect Modes:

  - Discard: results are dropped; Results returns nil.
  - Eager: Stop drains results while it waits for the workers, so nothing
    can stall behind an unread result. Results may then be called any
    number of times; Drain is an error.
  - Lazy: Stop only joins the workers. Drain yields results incrementally;
    while the pool is running it polls until no task is queued or running.
    Results drains the rest exactly once.

Failures:

A task fails when its function returns an error or panics. The failure is
logged with the worker id and the payload and recorded as an
*errors.TaskError in Report. Under FailFast (the default) the worker that
saw the failure exits and the pool continues with one worker fewer; Stop
still returns. Under Isolate the worker keeps going. If every worker dies,
tasks left in the queue are counted as abandoned.

Misuse of the lifecycle (Stop before Start, Stop twice, Results before
Stop, Drain in Eager mode, draining a Lazy executor twice) returns an error
wrapping errors.ErrInvalidState.
*/
package executor
