package mock

import "github.com/fwojciec/harvest"

var _ harvest.KeySet = (*KeySet)(nil)

// KeySet is a mock implementation of harvest.KeySet.
type KeySet struct {
	AddFn func(key string) bool
	LenFn func() int
}

func (s *KeySet) Add(key string) bool {
	return s.AddFn(key)
}

func (s *KeySet) Len() int {
	return s.LenFn()
}
