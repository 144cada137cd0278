package mock

import (
	"context"
	"time"

	"github.com/fwojciec/harvest"
)

var (
	_ harvest.Fetcher       = (*Fetcher)(nil)
	_ harvest.SessionClient = (*SessionClient)(nil)
	_ harvest.RateLimiter   = (*RateLimiter)(nil)
)

// Fetcher is a mock implementation of harvest.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, d harvest.Descriptor) ([]byte, error)
}

func (f *Fetcher) Fetch(ctx context.Context, d harvest.Descriptor) ([]byte, error) {
	return f.FetchFn(ctx, d)
}

// SessionClient is a mock implementation of harvest.SessionClient.
type SessionClient struct {
	GetFn                func(ctx context.Context, url string, timeout time.Duration) harvest.Outcome
	ReplaceCredentialsFn func(set harvest.CredentialSet) error
}

func (c *SessionClient) Get(ctx context.Context, url string, timeout time.Duration) harvest.Outcome {
	return c.GetFn(ctx, url, timeout)
}

func (c *SessionClient) ReplaceCredentials(set harvest.CredentialSet) error {
	return c.ReplaceCredentialsFn(set)
}

// RateLimiter is a mock implementation of harvest.RateLimiter.
type RateLimiter struct {
	AcquireFn func(ctx context.Context) error
}

func (l *RateLimiter) Acquire(ctx context.Context) error {
	return l.AcquireFn(ctx)
}
