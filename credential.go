package harvest

import "context"

// CredentialSet maps session cookie names to values for one base URL.
// It is replaced wholesale on refresh, never merged.
type CredentialSet struct {
	BaseURL string
	Cookies map[string]string
}

// Clone returns a deep copy of the set.
func (c CredentialSet) Clone() CredentialSet {
	cookies := make(map[string]string, len(c.Cookies))
	for k, v := range c.Cookies {
		cookies[k] = v
	}
	return CredentialSet{BaseURL: c.BaseURL, Cookies: cookies}
}

// CredentialSource produces session cookies for a base URL.
// Implementations may be slow (seconds) and may fail; callers invoke
// Refresh repeatedly to obtain fresh cookies.
type CredentialSource interface {
	Refresh(ctx context.Context, baseURL string) (map[string]string, error)
}
