package queue

import (
	"context"
	"sync"
	"time"

	tferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
)

// ErrClosed is returned when pushing to, or popping from an empty, closed queue.
var ErrClosed = tferrors.ErrClosed

const minCapacity = 16

// Stats holds counters describing queue traffic.
type Stats struct {
	// PushCount is the total number of accepted pushes.
	PushCount int64

	// PopCount is the total number of values handed to consumers.
	PopCount int64

	// BlockedPops is the number of pops that had to wait for a value.
	BlockedPops int64

	// HighWatermark is the largest number of values buffered at once.
	HighWatermark int

	// LastPushTime is the timestamp of the last accepted push.
	LastPushTime time.Time

	// LastPopTime is the timestamp of the last successful pop.
	LastPopTime time.Time
}

// Queue is an unbounded FIFO queue safe for any number of producers and
// consumers. Push never blocks; Pop blocks until a value is available or
// the queue is closed and empty.
type Queue[T any] struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond

	buffer []T
	head   int
	count  int
	closed bool

	stats Stats
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{buffer: make([]T, minCapacity)}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends value to the tail of the queue.
func (q *Queue[T]) Push(value T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	if q.count == len(q.buffer) {
		q.growLocked()
	}
	q.buffer[(q.head+q.count)%len(q.buffer)] = value
	q.count++

	q.stats.PushCount++
	q.stats.LastPushTime = time.Now()
	if q.count > q.stats.HighWatermark {
		q.stats.HighWatermark = q.count
	}

	q.nonEmpty.Signal()
	return nil
}

// Pop removes and returns the value at the head of the queue, waiting until
// one is available. It returns ErrClosed once the queue is closed and
// drained, or ctx.Err() if ctx is done first.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T

	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			q.nonEmpty.Broadcast()
		})
		defer stop()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 && !q.closed {
		q.stats.BlockedPops++
	}
	for q.count == 0 && !q.closed {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		q.nonEmpty.Wait()
	}

	if q.count == 0 {
		return zero, ErrClosed
	}
	return q.removeLocked(), nil
}

// TryPop removes and returns the head value without waiting.
// The boolean is false when the queue is empty.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.removeLocked(), true
}

// Close stops the queue from accepting values and wakes every waiting
// consumer. Buffered values remain poppable. Closing twice is a no-op.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.nonEmpty.Broadcast()
}

// Drain closes the queue and returns every value still buffered, in order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.nonEmpty.Broadcast()

	values := make([]T, 0, q.count)
	for q.count > 0 {
		values = append(values, q.removeLocked())
	}
	return values
}

// Snapshot returns a copy of the buffered values without removing them.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	values := make([]T, q.count)
	for i := range values {
		values[i] = q.buffer[(q.head+i)%len(q.buffer)]
	}
	return values
}

// IsClosed reports whether Close or Drain has been called.
func (q *Queue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of buffered values.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Stats returns a snapshot of the queue counters.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// removeLocked pops the head value (must hold lock, count > 0).
func (q *Queue[T]) removeLocked() T {
	var zero T
	value := q.buffer[q.head]
	q.buffer[q.head] = zero // release reference
	q.head = (q.head + 1) % len(q.buffer)
	q.count--

	q.stats.PopCount++
	q.stats.LastPopTime = time.Now()
	return value
}

// growLocked doubles the ring buffer, unrolling it so head is at index 0.
func (q *Queue[T]) growLocked() {
	grown := make([]T, len(q.buffer)*2)
	n := copy(grown, q.buffer[q.head:])
	copy(grown[n:], q.buffer[:q.head])
	q.buffer = grown
	q.head = 0
}
