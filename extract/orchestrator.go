package extract

import (
	"context"
	"fmt"

	"github.com/fwojciec/harvest"
	"github.com/google/uuid"
)

// Runner admits descriptors and reports each admitted one's completion.
// Scheduler is the production Runner.
type Runner interface {
	Run(ctx context.Context, descs []harvest.Descriptor, abort <-chan struct{}, task TaskFunc, done CompletionFunc) int
}

var _ Runner = (*Scheduler)(nil)

// Orchestrator drives jobs through the scheduler: it fetches and processes
// each descriptor, groups successes into batches written as they fill, and
// accounts every descriptor as succeeded, failed or skipped.
type Orchestrator struct {
	Fetcher   harvest.Fetcher
	Processor harvest.Processor // nil stores the raw body in the "Body" field
	Writer    harvest.BatchWriter
	Recorder  harvest.SummaryRecorder // optional
	Events    harvest.EventSink
	Runner    Runner // defaults to a Scheduler of Concurrency

	Concurrency  int
	BatchSize    int
	WritePolicy  harvest.WritePolicy
	WriteRetries int
	WriteBackoff BackoffFunc
}

// Run executes job and returns its summary. Individual descriptor failures
// never fail the job; they are counted and reported in the summary.
//
// Under the fail write policy a failed batch write aborts the job: in-flight
// descriptors finish, the remaining buffer is still flushed, and the
// partial summary is returned with an error wrapping harvest.ErrSinkFailed.
// If ctx is canceled the partial summary is returned with ctx's error.
func (o *Orchestrator) Run(ctx context.Context, job *Job) (*harvest.Summary, error) {
	if o.Fetcher == nil || o.Writer == nil {
		return nil, harvest.Errorf(harvest.EINVALID, "orchestrator requires a fetcher and a writer")
	}
	if !job.advance(JobPending, JobRunning) {
		return nil, harvest.Errorf(harvest.EINVALID, "job %q already started", job.Name)
	}
	if r, ok := o.Writer.(harvest.JobResetter); ok {
		if err := r.ResetJob(ctx, job.Name); err != nil {
			job.advance(JobRunning, JobDone)
			return nil, fmt.Errorf("reset job %s: %w", job.Name, err)
		}
	}

	events := o.Events
	if events == nil {
		events = harvest.Discard
	}
	runner := o.Runner
	if runner == nil {
		runner = NewScheduler(o.Concurrency)
	}

	summary := &harvest.Summary{
		Job:        job.Name,
		RunID:      uuid.NewString(),
		Total:      job.Len(),
		Duplicates: job.Duplicates(),
	}
	events.Emit(harvest.Event{Type: harvest.EventJobStarted, Job: job.Name, Size: summary.Total})

	// Writes outlive cancellation so that completed work is not lost.
	writeCtx := context.WithoutCancel(ctx)
	b := o.newBatcher(job.Name, events)
	state := NewJobState()
	var sinkErr error

	task := func(ctx context.Context, d harvest.Descriptor) (*harvest.Result, error) {
		body, err := o.Fetcher.Fetch(ctx, d)
		if err != nil {
			return nil, err
		}
		return o.process(ctx, d, body)
	}

	done := func(c Completion) {
		key := c.Descriptor.CorrelationKey()
		if c.Err != nil {
			if !state.Fail(key, c.Err) {
				events.Emit(harvest.Event{Type: harvest.EventDuplicateCompletion, Job: job.Name, Key: key, URL: c.Descriptor.URL})
				return
			}
			events.Emit(harvest.Event{
				Type: harvest.EventFailed,
				Job:  job.Name,
				Key:  key,
				URL:  c.Descriptor.URL,
				Kind: harvest.FailureKindOf(c.Err),
				Err:  c.Err,
			})
			return
		}

		if !state.Succeed(key) {
			events.Emit(harvest.Event{Type: harvest.EventDuplicateCompletion, Job: job.Name, Key: key, URL: c.Descriptor.URL})
			return
		}
		events.Emit(harvest.Event{Type: harvest.EventSucceeded, Job: job.Name, Key: key, URL: c.Descriptor.URL})

		if err := b.add(writeCtx, c.Result); err != nil && sinkErr == nil {
			sinkErr = err
			job.Abort()
		}
	}

	admitted := runner.Run(ctx, job.Descriptors(), job.abort, task, done)

	job.advance(JobRunning, JobDraining)
	if err := b.flush(writeCtx); err != nil && sinkErr == nil {
		sinkErr = err
	}

	summary.Succeeded = state.Succeeded()
	summary.Failed = state.Failed()
	summary.Skipped = summary.Total - admitted
	summary.Batches = b.written
	summary.Lost = b.lost
	summary.Failures = state.Failures()

	if job.Aborted() {
		events.Emit(harvest.Event{Type: harvest.EventJobAborted, Job: job.Name, Size: summary.Skipped, Err: sinkErr})
	}

	err := sinkErr
	if o.Recorder != nil {
		if rerr := o.Recorder.RecordSummary(writeCtx, summary); rerr != nil && err == nil {
			err = fmt.Errorf("record summary: %w", rerr)
		}
	}
	if err == nil {
		err = ctx.Err()
	}

	job.advance(JobDraining, JobDone)
	events.Emit(harvest.Event{Type: harvest.EventJobFinished, Job: job.Name, Size: summary.Succeeded, Err: err})
	return summary, err
}

// RunAll runs jobs one after another, so at most one job's fetches are in
// flight at a time. It stops at the first job that returns an error and
// returns the summaries collected so far.
func (o *Orchestrator) RunAll(ctx context.Context, jobs []*Job) ([]*harvest.Summary, error) {
	summaries := make([]*harvest.Summary, 0, len(jobs))
	for _, job := range jobs {
		s, err := o.Run(ctx, job)
		if s != nil {
			summaries = append(summaries, s)
		}
		if err != nil {
			return summaries, fmt.Errorf("job %s: %w", job.Name, err)
		}
	}
	return summaries, nil
}

func (o *Orchestrator) process(ctx context.Context, d harvest.Descriptor, body []byte) (*harvest.Result, error) {
	key := d.CorrelationKey()
	if o.Processor == nil {
		return &harvest.Result{Key: key, URL: d.URL, Meta: d.Meta, Fields: map[string]string{"Body": string(body)}}, nil
	}

	r, err := o.Processor.Process(ctx, d, body)
	if err == nil && r == nil {
		err = harvest.Errorf(harvest.EINTERNAL, "processor returned no result")
	}
	if err != nil {
		return nil, &harvest.FetchError{Kind: harvest.KindProcess, URL: d.URL, Err: err}
	}
	if r.Key == "" {
		r.Key = key
	}
	if r.URL == "" {
		r.URL = d.URL
	}
	if r.Meta == nil {
		r.Meta = d.Meta
	}
	return r, nil
}

func (o *Orchestrator) newBatcher(job string, events harvest.EventSink) *batcher {
	size := o.BatchSize
	if size <= 0 {
		size = harvest.DefaultConfig().BatchSize
	}
	policy := o.WritePolicy
	if policy == "" {
		policy = harvest.WriteDiscard
	}
	backoff := o.WriteBackoff
	if backoff == nil {
		backoff = ExponentialBackoff
	}
	return &batcher{
		job:     job,
		size:    size,
		writer:  o.Writer,
		policy:  policy,
		retries: o.WriteRetries,
		backoff: backoff,
		events:  events,
		buf:     make([]*harvest.Result, 0, size),
	}
}
