/*
Package taskflow provides a bounded worker-pool task executor for Go.

Execution (pkg/executor):
  - Executor: fixed pool of goroutine workers fed by an unbounded queue
  - Collect modes: Discard, Eager (drained during Stop), Lazy (drained after)
  - Failure policies: FailFast (worker exits) or Isolate (worker continues)

Orchestration (pkg/parallel):
  - Map, MapSeq: run a function over a slice or iter.Seq and collect results
  - Each, EachSeq: the same without results

Supporting packages:
  - queue: unbounded multi-producer/multi-consumer FIFO
  - metrics: Prometheus instrumentation
  - sink: JSON-lines and Redis list result sinks
  - logger: leveled logger shared by workers and tools

Example usage:

	import (
		"github.com/vnykmshr/taskflow/pkg/executor"
		"github.com/vnykmshr/taskflow/pkg/parallel"
	)

	sizes, err := parallel.Map(ctx, paths, statSize, parallel.WithWorkers(8))
	if err != nil {
		var runErr *errors.RunError
		if errors.As(err, &runErr) {
			// some tasks failed; sizes holds the rest
		}
	}
*/
package taskflow
