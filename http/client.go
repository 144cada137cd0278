// Package http provides the session client: an HTTP client bound to one
// set of session cookies that can be swapped while requests are in flight.
package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
)

// DefaultUserAgent is sent unless overridden by WithHeaders.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

var _ harvest.SessionClient = (*Client)(nil)

// Client is a harvest.SessionClient backed by resty. Every request reads
// the active cookie jar once, so a credential swap never changes a request
// that has already been sent.
type Client struct {
	rc *resty.Client

	mu  sync.RWMutex
	jar *cookiejar.Jar
}

// Option configures a Client.
type Option func(*Client)

// WithHeaders sets headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.rc.SetHeaders(headers)
	}
}

// WithTransport sets the underlying round tripper.
// This is useful for testing and for proxies.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.rc.SetTransport(rt)
	}
}

// NewClient creates a Client with an empty credential set.
func NewClient(opts ...Option) *Client {
	rc := resty.New()
	// Cookies are attached per request from the active jar.
	rc.SetCookieJar(nil)
	rc.SetHeader("User-Agent", DefaultUserAgent)

	c := &Client{rc: rc, jar: newJar()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET for rawURL with the active credentials. Transport
// failures are reported with KindTransport; HTTP statuses are classified
// with harvest.ClassifyStatus. Cookies set by the response are kept in
// the jar the request was sent with.
func (c *Client) Get(ctx context.Context, rawURL string, timeout time.Duration) harvest.Outcome {
	u, err := url.Parse(rawURL)
	if err != nil {
		return harvest.Outcome{Kind: harvest.KindClient, Err: fmt.Errorf("parse url: %w", err)}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	jar := c.activeJar()
	resp, err := c.rc.R().
		SetContext(ctx).
		SetCookies(jar.Cookies(u)).
		Get(rawURL)
	if err != nil {
		return harvest.Outcome{Kind: harvest.KindTransport, Err: err}
	}
	jar.SetCookies(u, resp.Cookies())

	status := resp.StatusCode()
	out := harvest.Outcome{Status: status, Body: resp.Body(), Kind: harvest.ClassifyStatus(status)}
	if status != http.StatusOK {
		out.Err = fmt.Errorf("unexpected status %d: %s", status, truncate(resp.Body(), maxErrorBody))
	}
	return out
}

// ReplaceCredentials installs set as the active credentials. Requests
// already sent keep the cookies they were sent with.
func (c *Client) ReplaceCredentials(set harvest.CredentialSet) error {
	base, err := url.Parse(set.BaseURL)
	if err != nil || base.Host == "" {
		return harvest.Errorf(harvest.EINVALID, "invalid base URL %q", set.BaseURL)
	}

	jar := newJar()
	cookies := make([]*http.Cookie, 0, len(set.Cookies))
	for name, value := range set.Cookies {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	jar.SetCookies(base, cookies)

	c.mu.Lock()
	c.jar = jar
	c.mu.Unlock()
	return nil
}

func (c *Client) activeJar() *cookiejar.Jar {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jar
}

func newJar() *cookiejar.Jar {
	// cookiejar.New never returns an error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
