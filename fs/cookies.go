package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fwojciec/harvest"
)

var _ harvest.CredentialSource = (*CookieFile)(nil)

// CookieFile is a harvest.CredentialSource reading a JSON object of cookie
// names to values. The file is re-read on every refresh, so it can be
// replaced while a run is in progress.
type CookieFile struct {
	path string
}

// NewCookieFile creates a CookieFile reading path.
func NewCookieFile(path string) *CookieFile {
	return &CookieFile{path: path}
}

// Refresh implements harvest.CredentialSource. The base URL is ignored.
func (f *CookieFile) Refresh(ctx context.Context, _ string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, harvest.Errorf(harvest.ENOTFOUND, "cookie file %s not found", f.path)
	} else if err != nil {
		return nil, err
	}

	var cookies map[string]string
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "parse cookie file %s: %v", f.path, err)
	}
	if len(cookies) == 0 {
		return nil, harvest.Errorf(harvest.EINVALID, "cookie file %s has no cookies", f.path)
	}
	return cookies, nil
}

// Save writes cookies to the file.
func (f *CookieFile) Save(cookies map[string]string) error {
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}
	return writeFile(f.path, data)
}
