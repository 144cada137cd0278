// Package rod obtains session cookies by loading the site in a headless
// browser, letting its single sign-on flow run, and reading the cookies
// the browser ends up with.
package rod

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultSettleDelay is how long the page is left to finish its sign-on
// redirects before cookies are read.
const DefaultSettleDelay = 15 * time.Second

var _ harvest.CredentialSource = (*CredentialSource)(nil)

// CredentialSource is a harvest.CredentialSource backed by headless Chrome.
// The browser is launched on first use and kept until Close; every refresh
// runs in a fresh incognito context so no cookies carry over.
//
// CredentialSource is safe for concurrent use.
type CredentialSource struct {
	settle time.Duration
	bin    string

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	closed   atomic.Bool
}

// Option configures a CredentialSource.
type Option func(*CredentialSource)

// WithSettleDelay sets how long to wait after the page loads.
func WithSettleDelay(d time.Duration) Option {
	return func(s *CredentialSource) {
		s.settle = d
	}
}

// WithBrowserBin sets the browser executable, e.g. an installed Edge.
// By default rod finds or downloads Chromium.
func WithBrowserBin(path string) Option {
	return func(s *CredentialSource) {
		s.bin = path
	}
}

// NewCredentialSource creates a CredentialSource. No browser is started
// until the first Refresh. Close must be called when it is no longer needed.
func NewCredentialSource(opts ...Option) *CredentialSource {
	s := &CredentialSource{settle: DefaultSettleDelay}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh loads baseURL and returns the cookies the browser holds for it.
func (s *CredentialSource) Refresh(ctx context.Context, baseURL string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := s.connect()
	if err != nil {
		return nil, err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("creating browser context: %w", err)
	}
	defer func() { _ = incognito.Close() }()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	page = page.Context(ctx)

	if err := page.Navigate(baseURL); err != nil {
		return nil, fmt.Errorf("navigating to %s: %w", baseURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", baseURL, err)
	}

	if s.settle > 0 {
		timer := time.NewTimer(s.settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	cookies, err := page.Cookies([]string{baseURL})
	if err != nil {
		return nil, fmt.Errorf("reading cookies: %w", err)
	}
	return CookieMap(cookies)
}

// Close releases browser resources. Close is safe to call multiple times.
func (s *CredentialSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher = nil
	}
	return err
}

// connect returns the running browser, launching it if needed.
func (s *CredentialSource) connect() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, harvest.Errorf(harvest.EUNAVAILABLE, "credential source closed")
	}
	if s.browser != nil {
		return s.browser, nil
	}

	l := launcher.New().
		Set("ignore-certificate-errors").
		Set("disable-dev-shm-usage").
		Leakless(true).
		Headless(true)
	if s.bin != "" {
		l = l.Bin(s.bin)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	s.browser = browser
	s.launcher = l
	return browser, nil
}

// ErrNoCookies is returned when the browser ends up without any cookies.
var ErrNoCookies = errors.New("no session cookies")

// CookieMap flattens browser cookies into a name to value mapping. Later
// cookies with the same name win.
func CookieMap(cookies []*proto.NetworkCookie) (map[string]string, error) {
	if len(cookies) == 0 {
		return nil, ErrNoCookies
	}
	m := make(map[string]string, len(cookies))
	for _, c := range cookies {
		m[c.Name] = c.Value
	}
	return m, nil
}
