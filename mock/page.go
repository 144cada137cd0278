package mock

import (
	"context"

	"github.com/fwojciec/harvest"
)

var _ harvest.PageStore = (*PageStore)(nil)

// PageStore is a mock implementation of harvest.PageStore.
type PageStore struct {
	SavePageFn func(ctx context.Context, page *harvest.Page) (string, error)
}

func (s *PageStore) SavePage(ctx context.Context, page *harvest.Page) (string, error) {
	return s.SavePageFn(ctx, page)
}
