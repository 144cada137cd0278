package mock

import (
	"context"

	"github.com/fwojciec/harvest"
)

var _ harvest.CredentialSource = (*CredentialSource)(nil)

// CredentialSource is a mock implementation of harvest.CredentialSource.
type CredentialSource struct {
	RefreshFn func(ctx context.Context, baseURL string) (map[string]string, error)
}

func (s *CredentialSource) Refresh(ctx context.Context, baseURL string) (map[string]string, error) {
	return s.RefreshFn(ctx, baseURL)
}
