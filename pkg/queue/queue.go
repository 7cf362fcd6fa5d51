// Package queue provides the blocking FIFO primitives used to hand FrameSets
// and commands between goroutines.
//
// A Queue is guarded by a single mutex with two condition variables: one
// signaled when an item becomes available and one signaled when an item is
// consumed. Correctness comes before throughput; a full or empty queue is a
// flow-control signal, never an error.
package queue

import (
	"sync"
	"time"
)

// Queue is an unbounded FIFO with optional producer-side backpressure.
// The zero value is not usable; call New.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	head     int
	avail    *sync.Cond
	consumed *sync.Cond
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.avail = sync.NewCond(&q.mu)
	q.consumed = sync.NewCond(&q.mu)
	return q
}

// Push appends item and wakes one waiting consumer.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.avail.Signal()
}

// PushBounded appends item, first blocking while the queue holds maxElems
// or more items. A maxElems of zero or less means unbounded.
func (q *Queue[T]) PushBounded(item T, maxElems int) {
	q.mu.Lock()
	for maxElems > 0 && q.lenLocked() >= maxElems {
		q.consumed.Wait()
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.avail.Signal()
}

// TryPop removes the front item if there is one.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	if q.lenLocked() == 0 {
		q.mu.Unlock()
		var zero T
		return zero, false
	}
	item := q.popLocked()
	q.mu.Unlock()
	q.consumed.Broadcast()
	return item, true
}

// WaitPop blocks until an item is available and removes it.
func (q *Queue[T]) WaitPop() T {
	q.mu.Lock()
	for q.lenLocked() == 0 {
		q.avail.Wait()
	}
	item := q.popLocked()
	q.mu.Unlock()
	q.consumed.Broadcast()
	return item
}

// TimedWaitPop waits up to timeout for an item. It reports false when the
// wait expired with the queue still empty.
func (q *Queue[T]) TimedWaitPop(timeout time.Duration) (T, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	if q.lenLocked() == 0 && timeout > 0 {
		// sync.Cond has no timed wait; a timer broadcast wakes us at the deadline.
		timer := time.AfterFunc(timeout, func() {
			q.mu.Lock()
			q.avail.Broadcast()
			q.mu.Unlock()
		})
		for q.lenLocked() == 0 && time.Now().Before(deadline) {
			q.avail.Wait()
		}
		timer.Stop()
	}
	if q.lenLocked() == 0 {
		q.mu.Unlock()
		var zero T
		return zero, false
	}
	item := q.popLocked()
	q.mu.Unlock()
	q.consumed.Broadcast()
	return item, true
}

// Size returns the number of queued items.
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

// Empty reports whether the queue holds no items.
func (q *Queue[T]) Empty() bool {
	return q.Size() == 0
}

// Contains reports whether any queued item satisfies pred. pred runs with
// the queue locked and must not call back into it.
func (q *Queue[T]) Contains(pred func(T) bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.items[q.head:] {
		if pred(it) {
			return true
		}
	}
	return false
}

func (q *Queue[T]) lenLocked() int {
	return len(q.items) - q.head
}

func (q *Queue[T]) popLocked() T {
	var zero T
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head > 32 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return item
}
