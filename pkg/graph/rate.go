package graph

import (
	"sync"
	"time"
)

// UnknownRate is returned by rate queries before any sample was recorded.
const UnknownRate = -1.0

// DefaultRateBufferSize is the number of samples kept per rate buffer.
const DefaultRateBufferSize = 32

// rateBuffer keeps the most recent durations in a fixed-size ring.
type rateBuffer struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	full    bool
}

func newRateBuffer(capacity int) *rateBuffer {
	if capacity <= 0 {
		capacity = DefaultRateBufferSize
	}
	return &rateBuffer{samples: make([]time.Duration, capacity)}
}

func (b *rateBuffer) push(d time.Duration) {
	b.mu.Lock()
	b.samples[b.next] = d
	b.next++
	if b.next == len(b.samples) {
		b.next = 0
		b.full = true
	}
	b.mu.Unlock()
}

// resize drops all samples.
func (b *rateBuffer) resize(capacity int) {
	if capacity <= 0 {
		capacity = DefaultRateBufferSize
	}
	b.mu.Lock()
	b.samples = make([]time.Duration, capacity)
	b.next = 0
	b.full = false
	b.mu.Unlock()
}

func (b *rateBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lenLocked()
}

func (b *rateBuffer) lenLocked() int {
	if b.full {
		return len(b.samples)
	}
	return b.next
}

// fps returns samples per second, or UnknownRate if nothing was recorded or
// the recorded time sums to zero.
func (b *rateBuffer) fps() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.lenLocked()
	var total time.Duration
	for _, d := range b.samples[:n] {
		total += d
	}
	if n == 0 || total <= 0 {
		return UnknownRate
	}
	return float64(n) / total.Seconds()
}
