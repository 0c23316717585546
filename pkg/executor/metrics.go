package executor

import (
	"time"

	"github.com/vnykmshr/taskflow/pkg/metrics"
)

// lengther is satisfied by every queue the executor owns.
type lengther interface {
	Len() int
}

// instrument reports executor activity to a metrics registry.
// A nil *instrument or one without a registry records nothing.
type instrument struct {
	registry *metrics.Registry
	name     string
}

func newInstrument(registry *metrics.Registry, name string) *instrument {
	if registry == nil {
		return nil
	}
	return &instrument{registry: registry, name: name}
}

func (i *instrument) submitted(tasks lengther) {
	if i == nil {
		return
	}
	i.registry.TasksSubmitted.WithLabelValues(i.name).Inc()
	i.registry.QueuedTasks.WithLabelValues(i.name).Set(float64(tasks.Len()))
}

func (i *instrument) queued(tasks lengther) {
	if i == nil {
		return
	}
	i.registry.QueuedTasks.WithLabelValues(i.name).Set(float64(tasks.Len()))
}

func (i *instrument) buffered(results lengther) {
	if i == nil {
		return
	}
	i.registry.BufferedResults.WithLabelValues(i.name).Set(float64(results.Len()))
}

func (i *instrument) observe(d time.Duration) {
	if i == nil {
		return
	}
	i.registry.TaskDuration.WithLabelValues(i.name).Observe(d.Seconds())
}

func (i *instrument) completed() {
	if i == nil {
		return
	}
	i.registry.TasksCompleted.WithLabelValues(i.name).Inc()
}

func (i *instrument) failed() {
	if i == nil {
		return
	}
	i.registry.TasksFailed.WithLabelValues(i.name).Inc()
}

func (i *instrument) abandoned(n int) {
	if i == nil || n == 0 {
		return
	}
	i.registry.TasksAbandoned.WithLabelValues(i.name).Add(float64(n))
}

func (i *instrument) workerUp() {
	if i == nil {
		return
	}
	i.registry.WorkersAlive.WithLabelValues(i.name).Inc()
}

func (i *instrument) workerDown() {
	if i == nil {
		return
	}
	i.registry.WorkersAlive.WithLabelValues(i.name).Dec()
}
