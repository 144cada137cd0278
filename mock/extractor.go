package mock

import "github.com/fwojciec/harvest"

var _ harvest.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of harvest.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*harvest.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*harvest.ExtractResult, error) {
	return e.ExtractFn(html)
}
