package queue

import (
	"sync"
	"time"
)

// StatusVector is an unordered collection that consumers wait on for an
// element matching a predicate, typically a completion status posted by
// another goroutine.
type StatusVector[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []T
}

// NewStatusVector returns an empty vector.
func NewStatusVector[T any]() *StatusVector[T] {
	v := &StatusVector[T]{}
	v.cond = sync.NewCond(&v.mu)
	return v
}

// Append adds item and wakes every waiter so each can re-check its predicate.
func (v *StatusVector[T]) Append(item T) {
	v.mu.Lock()
	v.items = append(v.items, item)
	v.mu.Unlock()
	v.cond.Broadcast()
}

// Len returns the number of stored items.
func (v *StatusVector[T]) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.items)
}

// WaitForAndRemove blocks until an item satisfies pred, removes and returns it.
func (v *StatusVector[T]) WaitForAndRemove(pred func(T) bool) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	for {
		if item, ok := v.removeLocked(pred); ok {
			return item
		}
		v.cond.Wait()
	}
}

// TimedWaitForAndRemove is WaitForAndRemove with a deadline. It reports
// false if no matching item appeared in time.
func (v *StatusVector[T]) TimedWaitForAndRemove(pred func(T) bool, timeout time.Duration) (T, bool) {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		v.mu.Lock()
		v.cond.Broadcast()
		v.mu.Unlock()
	})
	defer timer.Stop()

	v.mu.Lock()
	defer v.mu.Unlock()
	for {
		if item, ok := v.removeLocked(pred); ok {
			return item, true
		}
		if !time.Now().Before(deadline) {
			var zero T
			return zero, false
		}
		v.cond.Wait()
	}
}

func (v *StatusVector[T]) removeLocked(pred func(T) bool) (T, bool) {
	for i, it := range v.items {
		if pred(it) {
			v.items = append(v.items[:i], v.items[i+1:]...)
			return it, true
		}
	}
	var zero T
	return zero, false
}
