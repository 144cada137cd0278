package extract

import (
	"context"

	"github.com/fwojciec/harvest"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the default number of descriptors in flight.
const DefaultConcurrency = 10

// Completion is the terminal outcome of one admitted descriptor.
type Completion struct {
	Index      int
	Descriptor harvest.Descriptor
	Result     *harvest.Result
	Err        error
}

// TaskFunc fetches and processes one descriptor.
type TaskFunc func(ctx context.Context, d harvest.Descriptor) (*harvest.Result, error)

// CompletionFunc handles one completion. Calls are never concurrent.
type CompletionFunc func(c Completion)

// Scheduler bounds how many descriptors execute at once. It is independent
// of any rate limiter: the limiter bounds call rate, the scheduler bounds
// concurrency.
type Scheduler struct {
	concurrency int
}

// NewScheduler creates a Scheduler admitting at most concurrency tasks.
func NewScheduler(concurrency int) *Scheduler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Scheduler{concurrency: concurrency}
}

// Run executes task for each descriptor in order of admission, with at most
// the configured number executing simultaneously, and calls done serially
// as each one finishes, in finish order.
//
// Once abort is closed no further descriptors are admitted; those already
// admitted run to completion and are still reported. Canceling ctx stops
// admission and is passed to running tasks. Run returns after every
// admitted task has been reported, with the number admitted.
func (s *Scheduler) Run(ctx context.Context, descs []harvest.Descriptor, abort <-chan struct{}, task TaskFunc, done CompletionFunc) int {
	admitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-abort:
			cancel()
		case <-admitCtx.Done():
		}
	}()

	sem := semaphore.NewWeighted(int64(s.concurrency))
	results := make(chan Completion)
	var admitted int

	go func() {
		var g errgroup.Group
		for i, d := range descs {
			if err := sem.Acquire(admitCtx, 1); err != nil {
				break
			}
			// Acquire may succeed on a done context without blocking.
			if closed(abort) || admitCtx.Err() != nil {
				sem.Release(1)
				break
			}
			admitted++

			g.Go(func() error {
				res, err := task(ctx, d)
				sem.Release(1)
				results <- Completion{Index: i, Descriptor: d, Result: res, Err: err}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	for c := range results {
		done(c)
	}
	return admitted
}

// closed reports whether ch is closed. A nil channel is never closed.
func closed(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
