package harvest

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Descriptor is one unit of work: a URL plus opaque correlation metadata
// carried through to the output (e.g. date, keyword, row ID).
// Descriptors are created by the input collaborator and never mutated.
type Descriptor struct {
	URL string

	// Key identifies the descriptor within one job. Results, failures and
	// duplicate detection are keyed by it. When empty, CorrelationKey
	// derives a key from the URL and metadata.
	Key string

	Meta map[string]string
}

// CorrelationKey returns the key identifying the descriptor within a job.
func (d Descriptor) CorrelationKey() string {
	if d.Key != "" {
		return d.Key
	}

	h := xxhash.New()
	_, _ = h.WriteString(d.URL)
	for _, k := range d.MetaKeys() {
		_, _ = h.WriteString("\x00" + k + "=" + d.Meta[k])
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// MetaKeys returns the metadata keys in sorted order.
func (d Descriptor) MetaKeys() []string {
	keys := make([]string, 0, len(d.Meta))
	for k := range d.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate returns an error if the descriptor cannot be fetched.
func (d Descriptor) Validate() error {
	if d.URL == "" {
		return Errorf(EINVALID, "descriptor URL required")
	}
	return nil
}
