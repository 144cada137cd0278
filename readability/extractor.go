// Package readability extracts the main body of a page with go-readability.
package readability

import (
	"net/url"
	"strings"

	"github.com/fwojciec/harvest"
	"github.com/go-shiori/go-readability"
)

var _ harvest.Extractor = (*Extractor)(nil)

// Extractor wraps go-readability.
type Extractor struct {
	pageURL *url.URL
}

// NewExtractor creates a new Extractor. pageURL resolves relative links in
// the extracted content and may be nil.
func NewExtractor(pageURL *url.URL) *Extractor {
	return &Extractor{pageURL: pageURL}
}

// Extract implements harvest.Extractor.
func (e *Extractor) Extract(rawHTML string) (*harvest.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, harvest.Errorf(harvest.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), e.pageURL)
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "readability: %v", err)
	}

	return &harvest.ExtractResult{
		Title:       strings.TrimSpace(article.Title),
		ContentHTML: article.Content,
	}, nil
}
