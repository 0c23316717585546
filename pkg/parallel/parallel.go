package parallel

import (
	"context"
	"iter"
	"slices"

	"github.com/vnykmshr/taskflow/pkg/common/validation"
	"github.com/vnykmshr/taskflow/pkg/executor"
)

// Map runs fn over every item on a temporary executor and returns the
// results in completion order. Each call sees a sequence id in
// [0, len(items)) and a total hint of len(items).
//
// When tasks fail or are abandoned, Map still returns every successful
// result together with a *errors.RunError describing them.
func Map[T, R any](ctx context.Context, items []T, fn executor.TaskFunc[T, R], opts ...Option) ([]R, error) {
	return run(ctx, slices.Values(items), len(items), executor.Count(len(items)), fn, buildOptions(opts), true)
}

// MapSeq is Map over a streaming source; tasks see an unknown total.
func MapSeq[T, R any](ctx context.Context, seq iter.Seq[T], fn executor.TaskFunc[T, R], opts ...Option) ([]R, error) {
	return run(ctx, seq, -1, executor.Unknown, fn, buildOptions(opts), true)
}

// Each runs fn over every item, discarding results.
func Each[T any](ctx context.Context, items []T, fn func(context.Context, executor.Call[T]) error, opts ...Option) error {
	_, err := run(ctx, slices.Values(items), len(items), executor.Count(len(items)), discard(fn), buildOptions(opts), false)
	return err
}

// EachSeq is Each over a streaming source.
func EachSeq[T any](ctx context.Context, seq iter.Seq[T], fn func(context.Context, executor.Call[T]) error, opts ...Option) error {
	_, err := run(ctx, seq, -1, executor.Unknown, discard(fn), buildOptions(opts), false)
	return err
}

func discard[T any](fn func(context.Context, executor.Call[T]) error) executor.TaskFunc[T, struct{}] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, call executor.Call[T]) (struct{}, error) {
		return struct{}{}, fn(ctx, call)
	}
}

func run[T, R any](
	ctx context.Context,
	seq iter.Seq[T],
	size int,
	total executor.Total,
	fn executor.TaskFunc[T, R],
	o *options,
	collect bool,
) ([]R, error) {
	if err := validation.ValidateNotNil(module, "fn", fn); err != nil {
		return nil, err
	}
	cfg, err := o.config(size, collect, total)
	if err != nil {
		return nil, err
	}

	ex, err := executor.New[T, R](cfg)
	if err != nil {
		return nil, err
	}
	if err := ex.Start(ctx); err != nil {
		return nil, err
	}

	sequenceID := 0
	for item := range seq {
		if err := ex.Submit(fn, item, sequenceID, total); err != nil {
			_ = ex.Stop()
			return nil, err
		}
		sequenceID++
	}

	if err := ex.Stop(); err != nil {
		return nil, err
	}

	results, err := ex.Results()
	if err != nil {
		return nil, err
	}
	return results, ex.Report().Err()
}
