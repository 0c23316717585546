// Package metrics provides Prometheus instrumentation for taskflow executors.
//
// Pass a *Registry in executor.Config.Metrics (or parallel.WithMetrics) and
// every executor reports under its configured name:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewRegistry(reg)
//
//	results, err := parallel.Map(ctx, items, fn,
//		parallel.WithMetrics(m),
//		parallel.WithName("thumbnails"),
//	)
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Available Metrics
//
//   - taskflow_executor_tasks_submitted_total
//   - taskflow_executor_tasks_completed_total
//   - taskflow_executor_tasks_failed_total
//   - taskflow_executor_tasks_abandoned_total
//   - taskflow_executor_task_duration_seconds
//   - taskflow_executor_workers_alive
//   - taskflow_executor_queued_tasks
//   - taskflow_executor_buffered_results
//
// All metrics carry the executor_name label. A worker that dies under the
// fail-fast policy is visible as workers_alive dropping below the configured
// worker count.
//
// Registering two registries against the same prometheus.Registerer panics
// on duplicate metric names; use one Registry per Registerer and share it
// between executors.
package metrics
