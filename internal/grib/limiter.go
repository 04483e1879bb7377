package grib

import (
	"sync"
)

// DefaultMaxConcurrentParses bounds simultaneous end-to-end parse operations.
// The decoded grids are held in memory, so excess load is rejected rather
// than queued.
const DefaultMaxConcurrentParses = 2

// Limiter is the admission control for ad-hoc parses: a fixed number of
// slots, non-blocking acquisition, rejection when full.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter creates a limiter with the given capacity. Non-positive
// capacities fall back to the default.
func NewLimiter(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = DefaultMaxConcurrentParses
	}
	return &Limiter{slots: make(chan struct{}, capacity)}
}

// Acquire claims a slot without blocking. It fails with ErrServerBusy when
// every slot is busy. The returned release function is safe to call exactly
// as many times as you like: only the first call frees the slot, so deferring
// it on every exit path cannot leak or double-free.
func (l *Limiter) Acquire() (release func(), err error) {
	select {
	case l.slots <- struct{}{}:
	default:
		return nil, ErrServerBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-l.slots })
	}, nil
}

// InUse reports how many slots are currently held.
func (l *Limiter) InUse() int {
	return len(l.slots)
}

// Capacity reports the total number of slots.
func (l *Limiter) Capacity() int {
	return cap(l.slots)
}
