package extract

import (
	"sync"
	"sync/atomic"

	"github.com/fwojciec/harvest"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus int32

const (
	JobPending JobStatus = iota
	JobRunning
	JobDraining
	JobDone
)

// String returns the status name.
func (s JobStatus) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobRunning:
		return "running"
	case JobDraining:
		return "draining"
	case JobDone:
		return "done"
	default:
		return "unknown"
	}
}

// Job is one logical extraction: a named set of descriptors run to
// completion by an Orchestrator. A Job is run at most once.
type Job struct {
	Name string

	descs      []harvest.Descriptor
	duplicates int

	abort     chan struct{}
	abortOnce sync.Once
	status    atomic.Int32
}

// JobOption configures NewJob.
type JobOption func(*jobConfig)

type jobConfig struct {
	keys harvest.KeySet
}

// WithKeySet sets the set used to detect repeated correlation keys.
func WithKeySet(ks harvest.KeySet) JobOption {
	return func(c *jobConfig) {
		if ks != nil {
			c.keys = ks
		}
	}
}

// NewJob creates a pending job. Descriptors repeating an earlier
// correlation key are dropped and counted as duplicates, so every
// remaining descriptor has exactly one terminal outcome.
func NewJob(name string, descs []harvest.Descriptor, opts ...JobOption) *Job {
	cfg := jobConfig{keys: make(mapKeySet)}
	for _, opt := range opts {
		opt(&cfg)
	}

	unique := make([]harvest.Descriptor, 0, len(descs))
	var dups int
	for _, d := range descs {
		if !cfg.keys.Add(d.CorrelationKey()) {
			dups++
			continue
		}
		unique = append(unique, d)
	}

	return &Job{
		Name:       name,
		descs:      unique,
		duplicates: dups,
		abort:      make(chan struct{}),
	}
}

// Descriptors returns the job's de-duplicated descriptors.
func (j *Job) Descriptors() []harvest.Descriptor {
	return j.descs
}

// Len returns the number of descriptors the job will account for.
func (j *Job) Len() int {
	return len(j.descs)
}

// Duplicates returns the number of descriptors dropped for a repeated key.
func (j *Job) Duplicates() int {
	return j.duplicates
}

// Abort stops admission of further descriptors. Descriptors already in
// flight still complete and are written. Abort is safe to call more than
// once and from any goroutine.
func (j *Job) Abort() {
	j.abortOnce.Do(func() { close(j.abort) })
}

// Aborted reports whether Abort has been called.
func (j *Job) Aborted() bool {
	return closed(j.abort)
}

// Status returns the job's current lifecycle state.
func (j *Job) Status() JobStatus {
	return JobStatus(j.status.Load())
}

// advance moves the job from one status to the next. It returns false if
// the job was not in the from status.
func (j *Job) advance(from, to JobStatus) bool {
	return j.status.CompareAndSwap(int32(from), int32(to))
}

// mapKeySet is an exact in-memory KeySet.
type mapKeySet map[string]struct{}

func (s mapKeySet) Add(key string) bool {
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = struct{}{}
	return true
}

func (s mapKeySet) Len() int { return len(s) }

// JobState tracks terminal outcomes for one run of a job. Completion
// handling is keyed by correlation key: a second completion for the same
// key is rejected and does not change any counter.
//
// JobState is not safe for concurrent use. The orchestrator mutates it
// only from serialized completion callbacks.
type JobState struct {
	succeeded int
	failed    int
	completed map[string]struct{}
	failures  map[string]string
}

// NewJobState returns an empty JobState.
func NewJobState() *JobState {
	return &JobState{
		completed: make(map[string]struct{}),
		failures:  make(map[string]string),
	}
}

// Succeed records a successful completion. Returns false if the key
// already completed.
func (s *JobState) Succeed(key string) bool {
	if !s.complete(key) {
		return false
	}
	s.succeeded++
	return true
}

// Fail records a failed completion and its reason. Returns false if the
// key already completed.
func (s *JobState) Fail(key string, err error) bool {
	if !s.complete(key) {
		return false
	}
	s.failed++
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	s.failures[key] = reason
	return true
}

func (s *JobState) complete(key string) bool {
	if _, ok := s.completed[key]; ok {
		return false
	}
	s.completed[key] = struct{}{}
	return true
}

// Succeeded returns the number of successful completions.
func (s *JobState) Succeeded() int { return s.succeeded }

// Failed returns the number of failed completions.
func (s *JobState) Failed() int { return s.failed }

// Failures returns the failure reason for each failed key.
func (s *JobState) Failures() map[string]string { return s.failures }
