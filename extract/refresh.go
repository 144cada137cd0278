package extract

import (
	"context"
	"time"

	"github.com/fwojciec/harvest"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Refresher obtains fresh cookies from a CredentialSource and installs
// them on a SessionClient. Concurrent refreshes are coalesced into one
// call to the source, so many fetches hitting an expired session at once
// launch a single browser.
type Refresher struct {
	source  harvest.CredentialSource
	client  harvest.SessionClient
	baseURL string

	group    singleflight.Group
	cooldown *rate.Limiter
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithCooldown skips a refresh if another one succeeded within d.
// A zero duration disables the cooldown.
func WithCooldown(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.cooldown = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// NewRefresher creates a Refresher for the given base URL.
func NewRefresher(source harvest.CredentialSource, client harvest.SessionClient, baseURL string, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		source:  source,
		client:  client,
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load fetches the initial credentials and installs them on the client.
func (r *Refresher) Load(ctx context.Context) error {
	return r.install(ctx)
}

// Refresh replaces the client's credentials with fresh ones from the source.
// It returns a *harvest.FetchError of kind KindCredential if the source fails.
func (r *Refresher) Refresh(ctx context.Context) (refreshed bool, err error) {
	v, err, _ := r.group.Do(r.baseURL, func() (any, error) {
		// Only a successful refresh takes the cooldown token.
		if r.cooldown != nil && r.cooldown.Tokens() < 1 {
			return false, nil
		}
		if err := r.install(ctx); err != nil {
			return false, err
		}
		if r.cooldown != nil {
			r.cooldown.Allow()
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (r *Refresher) install(ctx context.Context) error {
	cookies, err := r.source.Refresh(ctx, r.baseURL)
	if err != nil {
		return &harvest.FetchError{Kind: harvest.KindCredential, URL: r.baseURL, Err: err}
	}
	set := harvest.CredentialSet{BaseURL: r.baseURL, Cookies: cookies}
	if err := r.client.ReplaceCredentials(set); err != nil {
		return &harvest.FetchError{Kind: harvest.KindCredential, URL: r.baseURL, Err: err}
	}
	return nil
}
