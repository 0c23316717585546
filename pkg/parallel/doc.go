// Package parallel runs a function over a collection on a short-lived
// worker pool.
//
// Map and Each take a slice; MapSeq and EachSeq take an iter.Seq and tell
// tasks the total is unknown. Every call builds an executor, submits one
// task per item with sequence ids counting from zero, stops the pool and
// returns what was collected. Nothing outlives the call.
//
//	sizes, err := parallel.Map(ctx, paths, func(ctx context.Context, c executor.Call[string]) (int64, error) {
//		fi, err := os.Stat(c.Payload)
//		if err != nil {
//			return 0, err
//		}
//		return fi.Size(), nil
//	}, parallel.WithWorkers(8))
//
// A failed task does not abort the run. The returned error is then a
// *errors.RunError and the successful results are returned with it. When
// every worker exited early, the tasks that never ran are counted in
// RunError.Abandoned.
package parallel
