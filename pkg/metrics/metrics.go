package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name unless Config.Namespace is set.
const DefaultNamespace = "taskflow"

const subsystem = "executor"

// Registry holds all metric instances for taskflow executors.
// Every vector is labelled by executor_name.
type Registry struct {
	TasksSubmitted *prometheus.CounterVec
	TasksCompleted *prometheus.CounterVec
	TasksFailed    *prometheus.CounterVec
	TasksAbandoned *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec

	WorkersAlive    *prometheus.GaugeVec
	QueuedTasks     *prometheus.GaugeVec
	BufferedResults *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer
// and the default namespace.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Enabled: true, Registry: reg})
}

// NewRegistryWithConfig creates a registry honouring cfg.Namespace and cfg.Labels.
// It returns nil when cfg.Enabled is false.
func NewRegistryWithConfig(cfg Config) *Registry {
	if !cfg.Enabled {
		return nil
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}

	factory := promauto.With(reg)
	labels := []string{"executor_name"}

	counter := func(name, help string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.Labels,
		}, labels)
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.Labels,
		}, labels)
	}

	return &Registry{
		TasksSubmitted: counter("tasks_submitted_total", "Total number of tasks submitted"),
		TasksCompleted: counter("tasks_completed_total", "Total number of tasks completed successfully"),
		TasksFailed:    counter("tasks_failed_total", "Total number of tasks whose function returned an error or panicked"),
		TasksAbandoned: counter("tasks_abandoned_total", "Total number of tasks left unprocessed because no worker survived"),

		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        "task_duration_seconds",
			Help:        "Time spent executing task functions",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: cfg.Labels,
		}, labels),

		WorkersAlive:    gauge("workers_alive", "Number of workers currently running their loop"),
		QueuedTasks:     gauge("queued_tasks", "Number of tasks waiting in the task queue"),
		BufferedResults: gauge("buffered_results", "Number of results waiting to be collected"),
	}
}
