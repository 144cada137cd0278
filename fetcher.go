package harvest

import (
	"context"
	"errors"
	"time"
)

// SessionClient issues GET requests carrying one credential set.
// ReplaceCredentials may be called concurrently with in-flight Get calls:
// requests already sent complete under the old cookies, every later Get
// uses the new set.
type SessionClient interface {
	Get(ctx context.Context, url string, timeout time.Duration) Outcome
	ReplaceCredentials(set CredentialSet) error
}

// RateLimiter admits calls subject to a call budget.
type RateLimiter interface {
	// Acquire blocks until one more call fits the budget.
	// It never rejects; it returns an error only if ctx is done.
	Acquire(ctx context.Context) error
}

// Fetcher retrieves the body for a descriptor, returning a *FetchError
// when the descriptor terminally fails.
type Fetcher interface {
	Fetch(ctx context.Context, d Descriptor) ([]byte, error)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
