/*
Package queue provides an unbounded, ordered, concurrency-safe queue used as
the hand-off between task producers and workers, and between workers and the
result consumer.

Unlike a Go channel, a Queue has no capacity: Push never blocks, so a
producer can enqueue an arbitrary number of tasks before any worker runs,
and workers never stall waiting for a slow result reader. Memory grows with
the backlog instead.

Basic usage:

	q := queue.New[int]()
	_ = q.Push(1)
	_ = q.Push(2)

	v, err := q.Pop(ctx) // 1, nil
	q.Close()            // remaining values stay poppable
	rest := q.Drain()    // []int{2}

Pop blocks on a sync.Cond and honours context cancellation. After Close,
Push returns ErrClosed and Pop returns ErrClosed once the buffer is empty.
*/
package queue
