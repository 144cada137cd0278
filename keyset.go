package harvest

// KeySet records the correlation keys seen while building a job.
type KeySet interface {
	// Add records key. Returns false if the key was already present.
	Add(key string) bool

	// Len returns the number of distinct keys recorded.
	Len() int
}
