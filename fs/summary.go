package fs

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/fwojciec/harvest"
)

// SummaryFile is the name of the per-job summary file.
const SummaryFile = "summary.json"

var _ harvest.SummaryRecorder = (*SummaryRecorder)(nil)

// SummaryRecorder writes each job's summary to <dir>/<job>/summary.json.
type SummaryRecorder struct {
	dir string
}

// NewSummaryRecorder creates a SummaryRecorder rooted at dir.
func NewSummaryRecorder(dir string) *SummaryRecorder {
	return &SummaryRecorder{dir: dir}
}

type summaryJSON struct {
	Job        string            `json:"job"`
	RunID      string            `json:"runId"`
	Total      int               `json:"total"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	Duplicates int               `json:"duplicates"`
	Batches    int               `json:"batches"`
	Lost       int               `json:"lost"`
	Failures   map[string]string `json:"failures,omitempty"`
}

// RecordSummary implements harvest.SummaryRecorder.
func (r *SummaryRecorder) RecordSummary(ctx context.Context, s *harvest.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(summaryJSON{
		Job:        s.Job,
		RunID:      s.RunID,
		Total:      s.Total,
		Succeeded:  s.Succeeded,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		Duplicates: s.Duplicates,
		Batches:    s.Batches,
		Lost:       s.Lost,
		Failures:   s.Failures,
	}, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(r.dir, SafeName(s.Job), SummaryFile), data)
}
