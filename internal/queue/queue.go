// Package queue holds a bounded FIFO used to batch tracked events between the
// request handlers and the storage writer.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO. When a limit is set, pushing onto a full
// queue discards the oldest items.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	dropped int64
	notify  chan struct{}
}

// New creates a new empty queue. limit <= 0 means unbounded.
func New[T any](limit int) *Queue[T] {
	return &Queue[T]{
		items:  make([]T, 0),
		limit:  limit,
		notify: make(chan struct{}, 1),
	}
}

// Push appends items and returns how many old items were discarded to make room.
func (q *Queue[T]) Push(items ...T) int {
	q.mu.Lock()
	q.items = append(q.items, items...)
	over := 0
	if q.limit > 0 && len(q.items) > q.limit {
		over = len(q.items) - q.limit
		q.items = append(q.items[:0], q.items[over:]...)
		q.dropped += int64(over)
	}
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return over
}

// Ready fires after a push. It is a hint: the queue may already be drained
// when the receive happens.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.notify
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the total number of items discarded by the limit.
func (q *Queue[T]) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Drain removes and returns up to max items from the front. max <= 0 takes all.
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}
	out := make([]T, n)
	copy(out, q.items[:n])
	q.items = append(q.items[:0], q.items[n:]...)
	return out
}

// Requeue puts items back at the front, e.g. after a failed flush.
// Items beyond the limit are dropped from the back of the requeued batch.
func (q *Queue[T]) Requeue(items []T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 {
		room := q.limit - len(q.items)
		if room < 0 {
			room = 0
		}
		if len(items) > room {
			q.dropped += int64(len(items) - room)
			items = items[:room]
		}
	}
	q.items = append(append(make([]T, 0, len(items)+len(q.items)), items...), q.items...)
}
