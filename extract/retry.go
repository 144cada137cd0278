package extract

import (
	"context"
	"time"

	"github.com/fwojciec/harvest"
)

var _ harvest.Fetcher = (*Fetcher)(nil)

// Default retry settings.
const (
	DefaultMaxAttempts  = 5
	DefaultRefreshAfter = 1
	DefaultTimeout      = 25 * time.Second

	// MaxBackoff caps the delay between attempts.
	MaxBackoff = 5 * time.Minute
)

// BackoffFunc returns the delay after the given 0-indexed attempt.
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff waits 2^attempt seconds: 1s, 2s, 4s, 8s, up to
// MaxBackoff.
func ExponentialBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	if attempt >= 9 {
		return MaxBackoff
	}
	return min(time.Duration(1<<attempt)*time.Second, MaxBackoff)
}

// Fetcher wraps a SessionClient with rate limiting, retry with exponential
// backoff, and a credential refresh after a fixed attempt.
//
// Per attempt: acquire the limiter, GET, return on 200, stop on 4xx,
// otherwise retry. After attempt refreshAfter (0-indexed) credentials are
// refreshed before the next attempt, because a session that fails twice in
// a row has almost always expired.
type Fetcher struct {
	client    harvest.SessionClient
	limiter   harvest.RateLimiter
	refresher *Refresher
	events    harvest.EventSink

	maxAttempts  int
	refreshAfter int
	timeout      time.Duration
	backoff      BackoffFunc
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxAttempts sets the number of attempts per descriptor.
func WithMaxAttempts(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithRefreshAfter sets the 0-indexed attempt after which credentials are
// refreshed. A negative value disables the refresh.
func WithRefreshAfter(attempt int) FetcherOption {
	return func(f *Fetcher) {
		f.refreshAfter = attempt
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithBackoff sets the delay between attempts.
// This is useful for testing without waiting for real delays.
func WithBackoff(fn BackoffFunc) FetcherOption {
	return func(f *Fetcher) {
		f.backoff = fn
	}
}

// WithEvents sets the sink receiving attempt events.
func WithEvents(sink harvest.EventSink) FetcherOption {
	return func(f *Fetcher) {
		if sink != nil {
			f.events = sink
		}
	}
}

// NewFetcher creates a Fetcher. The refresher may be nil, in which case
// credentials are never refreshed.
func NewFetcher(client harvest.SessionClient, limiter harvest.RateLimiter, refresher *Refresher, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:       client,
		limiter:      limiter,
		refresher:    refresher,
		events:       harvest.Discard,
		maxAttempts:  DefaultMaxAttempts,
		refreshAfter: DefaultRefreshAfter,
		timeout:      DefaultTimeout,
		backoff:      ExponentialBackoff,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the body of the first HTTP 200 response for d.URL.
// Terminal failures are returned as *harvest.FetchError with kind
// KindClient, KindExhausted or KindCanceled.
func (f *Fetcher) Fetch(ctx context.Context, d harvest.Descriptor) ([]byte, error) {
	key := d.CorrelationKey()

	var last harvest.Outcome
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if err := f.limiter.Acquire(ctx); err != nil {
			return nil, f.canceled(d, last, attempt, err)
		}

		f.events.Emit(harvest.Event{Type: harvest.EventAttemptStarted, Key: key, URL: d.URL, Attempt: attempt + 1})

		out := f.client.Get(ctx, d.URL, f.timeout)
		if out.OK() {
			return out.Body, nil
		}
		if out.Kind == "" {
			out.Kind = harvest.KindStatus
		}
		last = out

		f.events.Emit(harvest.Event{
			Type:    harvest.EventAttemptFailed,
			Key:     key,
			URL:     d.URL,
			Attempt: attempt + 1,
			Kind:    out.Kind,
			Status:  out.Status,
			Err:     out.Err,
		})

		// A client error will not change on retry.
		if out.Kind == harvest.KindClient {
			return nil, &harvest.FetchError{
				Kind:     harvest.KindClient,
				URL:      d.URL,
				Status:   out.Status,
				Attempts: attempt + 1,
				Err:      out.Err,
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, f.canceled(d, last, attempt+1, err)
		}

		if attempt >= f.maxAttempts-1 {
			break
		}

		if attempt == f.refreshAfter && f.refresher != nil {
			f.refresh(ctx, key, d.URL, attempt)
		}

		delay := f.backoff(attempt)
		f.events.Emit(harvest.Event{Type: harvest.EventBackoff, Key: key, URL: d.URL, Attempt: attempt + 1, Delay: delay})
		if err := sleep(ctx, delay); err != nil {
			return nil, f.canceled(d, last, attempt+1, err)
		}
	}

	return nil, &harvest.FetchError{
		Kind:     harvest.KindExhausted,
		URL:      d.URL,
		Status:   last.Status,
		Attempts: f.maxAttempts,
		Err:      last.Err,
	}
}

// refresh swaps in fresh credentials. A failed refresh does not end the
// descriptor: the next attempt runs without assuming the refresh worked.
func (f *Fetcher) refresh(ctx context.Context, key, url string, attempt int) {
	refreshed, err := f.refresher.Refresh(ctx)
	if err != nil {
		f.events.Emit(harvest.Event{
			Type:    harvest.EventCredentialRefreshFailed,
			Key:     key,
			URL:     url,
			Attempt: attempt + 1,
			Kind:    harvest.KindCredential,
			Err:     err,
		})
		return
	}
	if refreshed {
		f.events.Emit(harvest.Event{Type: harvest.EventCredentialsRefreshed, Key: key, URL: url, Attempt: attempt + 1})
	}
}

func (f *Fetcher) canceled(d harvest.Descriptor, last harvest.Outcome, attempts int, err error) error {
	return &harvest.FetchError{
		Kind:     harvest.KindCanceled,
		URL:      d.URL,
		Status:   last.Status,
		Attempts: attempts,
		Err:      err,
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
