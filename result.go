package harvest

import (
	"context"
	"sort"
)

// Result is the extraction output for one successfully processed descriptor.
type Result struct {
	Key  string
	URL  string
	Meta map[string]string

	// Fields holds derived single-value outputs (e.g. saved file path, text).
	Fields map[string]string

	// Rows holds tabular records derived from the body, such as search hits.
	// A result with rows is written as one line per row.
	Rows []map[string]string
}

// Columns returns the sorted union of metadata, field and row keys across results.
func Columns(results []*Result) []string {
	seen := make(map[string]struct{})
	for _, r := range results {
		for k := range r.Meta {
			seen[k] = struct{}{}
		}
		for k := range r.Fields {
			seen[k] = struct{}{}
		}
		for _, row := range r.Rows {
			for k := range row {
				seen[k] = struct{}{}
			}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Records flattens the result into output records. Each record merges the
// descriptor metadata, the derived fields and, when present, one row.
func (r *Result) Records() []map[string]string {
	base := make(map[string]string, len(r.Meta)+len(r.Fields))
	for k, v := range r.Meta {
		base[k] = v
	}
	for k, v := range r.Fields {
		base[k] = v
	}
	if len(r.Rows) == 0 {
		return []map[string]string{base}
	}

	records := make([]map[string]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := make(map[string]string, len(base)+len(row))
		for k, v := range base {
			rec[k] = v
		}
		for k, v := range row {
			rec[k] = v
		}
		records = append(records, rec)
	}
	return records
}

// Processor derives a Result from a fetched body.
type Processor interface {
	Process(ctx context.Context, d Descriptor, body []byte) (*Result, error)
}

// Batch is a group of results flushed together to a BatchWriter.
// Seq increases monotonically within a job, starting at 0.
type Batch struct {
	Job     string
	Seq     int
	Results []*Result
}

// BatchWriter persists batches. Ownership of the batch transfers to the
// writer on call.
type BatchWriter interface {
	WriteBatch(ctx context.Context, batch *Batch) error
}

// JobResetter is implemented by batch writers that keep output per job
// name. ResetJob discards the batches of an earlier run of the job so a
// rerun does not mix with them. It is called before the first batch of
// every run.
type JobResetter interface {
	ResetJob(ctx context.Context, job string) error
}

// WritePolicy selects what happens to a batch whose write fails.
type WritePolicy string

// WritePolicy constants.
const (
	// WriteDiscard logs the failure and drops the batch.
	WriteDiscard WritePolicy = "discard"
	// WriteRetry retries the write with backoff, then drops the batch.
	WriteRetry WritePolicy = "retry"
	// WriteFail stops admitting work and fails the job.
	WriteFail WritePolicy = "fail"
)

// Validate returns an error if the policy is unknown.
func (p WritePolicy) Validate() error {
	switch p {
	case WriteDiscard, WriteRetry, WriteFail:
		return nil
	default:
		return Errorf(EINVALID, "unknown write policy %q", p)
	}
}

// Summary reports the terminal state of one job.
type Summary struct {
	Job        string
	RunID      string
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int // never admitted because the job was aborted
	Duplicates int // dropped at job build for repeating a correlation key
	Batches    int // batches written successfully
	Lost       int // results in batches that could not be written
	Failures   map[string]string
}

// SummaryRecorder is implemented by sinks that persist job summaries.
type SummaryRecorder interface {
	RecordSummary(ctx context.Context, s *Summary) error
}
