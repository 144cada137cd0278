package fs

import (
	"context"
	"path/filepath"

	"github.com/fwojciec/harvest"
	"github.com/google/uuid"
)

var _ harvest.PageStore = (*PageStore)(nil)

// PageStore saves pages as <dir>/<group>/<name>.html.
type PageStore struct {
	dir string
}

// NewPageStore creates a PageStore rooted at dir.
func NewPageStore(dir string) *PageStore {
	return &PageStore{dir: dir}
}

// SavePage implements harvest.PageStore. A page without a name is saved
// under a random one.
func (s *PageStore) SavePage(ctx context.Context, page *harvest.Page) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := page.Name
	if name == "" {
		name = uuid.NewString()
	}

	dir := s.dir
	if page.Group != "" {
		dir = filepath.Join(dir, SafeName(page.Group))
	}
	path := filepath.Join(dir, SafeName(name)+".html")
	if err := writeFile(path, []byte(page.HTML)); err != nil {
		return "", err
	}
	return path, nil
}
