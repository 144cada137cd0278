// Package bloom de-duplicates correlation keys with a Bloom filter.
package bloom

import (
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/harvest"
)

var _ harvest.KeySet = (*KeySet)(nil)

// KeySet implements harvest.KeySet with a Bloom filter in front of an
// exact set. A filter miss proves the key is new without touching the
// set; a filter hit is confirmed against the recorded keys, so no key is
// ever reported as a false duplicate.
type KeySet struct {
	f     *bloom.BloomFilter
	exact map[string]struct{}
}

// NewKeySet creates a KeySet sized for n expected keys.
func NewKeySet(n uint, fpRate float64) *KeySet {
	return &KeySet{
		f:     bloom.NewWithEstimates(n, fpRate),
		exact: make(map[string]struct{}, n),
	}
}

// Add implements harvest.KeySet.
func (s *KeySet) Add(key string) bool {
	if s.f.TestAndAddString(key) {
		if _, ok := s.exact[key]; ok {
			return false
		}
	}
	s.exact[key] = struct{}{}
	return true
}

// Len implements harvest.KeySet.
func (s *KeySet) Len() int { return len(s.exact) }
