package extract

import (
	"context"
	"sync"
	"time"

	"github.com/fwojciec/harvest"
)

var _ harvest.RateLimiter = (*SlidingWindow)(nil)

// SlidingWindow admits at most maxCalls calls within any trailing period.
// Unlike a token bucket it never allows a burst that would exceed the
// budget in some window, regardless of how calls are spread.
//
// SlidingWindow is safe for concurrent use. The check-and-record step is
// atomic; waiting happens outside the lock.
type SlidingWindow struct {
	mu       sync.Mutex
	calls    []time.Time // oldest first
	maxCalls int
	period   time.Duration
	now      func() time.Time
}

// NewSlidingWindow creates a limiter admitting maxCalls per period.
func NewSlidingWindow(maxCalls int, period time.Duration) *SlidingWindow {
	if maxCalls < 1 {
		maxCalls = 1
	}
	return &SlidingWindow{
		calls:    make([]time.Time, 0, maxCalls),
		maxCalls: maxCalls,
		period:   period,
		now:      time.Now,
	}
}

// Acquire blocks until admitting one more call keeps every trailing window
// of length period within budget, then records the call.
// Returns an error only if ctx is done while waiting.
func (l *SlidingWindow) Acquire(ctx context.Context) error {
	for {
		wait := l.tryAcquire()
		if wait == 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire records a call and returns 0 if there is room, otherwise the
// time until the oldest recorded call leaves the window.
func (l *SlidingWindow) tryAcquire() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	for len(l.calls) >= l.maxCalls {
		elapsed := l.now().Sub(l.calls[0])
		if elapsed < l.period {
			return l.period - elapsed
		}
		l.calls = l.calls[1:]
	}
	l.calls = append(l.calls, l.now())
	return 0
}

// Len returns the number of calls currently recorded in the window.
func (l *SlidingWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}
