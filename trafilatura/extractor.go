// Package trafilatura extracts the main body of a page with go-trafilatura,
// dropping navigation, footers and other boilerplate.
package trafilatura

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/fwojciec/harvest"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

var _ harvest.Extractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura.
type Extractor struct {
	baseURL     *url.URL
	includeLink bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithBaseURL sets the URL used to resolve relative links.
func WithBaseURL(u *url.URL) Option {
	return func(e *Extractor) {
		e.baseURL = u
	}
}

// WithLinks keeps anchor elements in the extracted content.
func WithLinks() Option {
	return func(e *Extractor) {
		e.includeLink = true
	}
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract implements harvest.Extractor. A page with no detectable body yields
// an empty ContentHTML rather than an error.
func (e *Extractor) Extract(rawHTML string) (*harvest.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, harvest.Errorf(harvest.EINVALID, "empty HTML input")
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), trafilatura.Options{
		EnableFallback: true,
		IncludeLinks:   e.includeLink,
		OriginalURL:    e.baseURL,
	})
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "trafilatura: %v", err)
	}

	var contentHTML string
	if result.ContentNode != nil {
		var buf bytes.Buffer
		if err := html.Render(&buf, result.ContentNode); err != nil {
			return nil, err
		}
		contentHTML = buf.String()
	}

	return &harvest.ExtractResult{
		Title:       result.Metadata.Title,
		ContentHTML: contentHTML,
	}, nil
}
