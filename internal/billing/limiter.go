package billing

// limiter.go bounds how many workbooks are processed at once. Decoding and
// re-encoding xlsx holds whole workbooks in memory, so requests beyond the
// limit wait up to maxWait for a slot and then fail with ErrBusy.

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	// DefaultMaxConcurrent is used when a non-positive limit is configured.
	DefaultMaxConcurrent = 4

	// DefaultMaxWait is used when a non-positive wait is configured.
	DefaultMaxWait = 30 * time.Second
)

// Limiter is a counting semaphore with a bounded wait.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewLimiter allows at most maxConcurrent holders at a time.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. On success the returned release func must be
// called exactly once; extra calls are ignored.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrBusy
	}

	l.active.Add(1)
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			l.active.Add(-1)
			<-l.slots
		}
	}, nil
}

// Active returns the number of held slots.
func (l *Limiter) Active() int {
	return int(l.active.Load())
}

// Capacity returns the configured maximum.
func (l *Limiter) Capacity() int {
	return cap(l.slots)
}

// WaitForDrain blocks until no slot is held or ctx ends. Used during
// graceful shutdown.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
