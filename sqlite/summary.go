package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/harvest"
)

var _ harvest.SummaryRecorder = (*SummaryService)(nil)

// SummaryService stores job summaries and their failure reasons.
type SummaryService struct {
	db *DB
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(db *DB) *SummaryService {
	return &SummaryService{db: db}
}

// RecordSummary implements harvest.SummaryRecorder.
func (s *SummaryService) RecordSummary(ctx context.Context, sum *harvest.Summary) error {
	if sum.RunID == "" {
		return harvest.Errorf(harvest.EINVALID, "summary run ID required")
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, job, total, succeeded, failed, skipped, duplicates, batches, lost, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sum.RunID, sum.Job, sum.Total, sum.Succeeded, sum.Failed, sum.Skipped, sum.Duplicates,
		sum.Batches, sum.Lost, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for key, reason := range sum.Failures {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO failures (run_id, key, reason) VALUES (?, ?, ?)
		`, sum.RunID, key, reason); err != nil {
			return fmt.Errorf("insert failure %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Run is a stored job summary.
type Run struct {
	harvest.Summary
	FinishedAt time.Time
}

// SummaryFilter selects stored runs.
type SummaryFilter struct {
	Job    *string
	Limit  int
	Offset int
}

// FindSummaries returns stored runs, most recent first, with their failures.
func (s *SummaryService) FindSummaries(ctx context.Context, filter SummaryFilter) ([]*Run, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`
		SELECT id, job, total, succeeded, failed, skipped, duplicates, batches, lost, finished_at
		FROM runs WHERE 1=1`)
	if filter.Job != nil {
		query.WriteString(" AND job = ?")
		args = append(args, *filter.Job)
	}
	query.WriteString(" ORDER BY finished_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var finishedAt string
		if err := rows.Scan(&run.RunID, &run.Job, &run.Total, &run.Succeeded, &run.Failed, &run.Skipped,
			&run.Duplicates, &run.Batches, &run.Lost, &finishedAt); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseRFC3339(finishedAt, "finished_at"); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, run := range runs {
		if run.Failures, err = s.failures(ctx, run.RunID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *SummaryService) failures(ctx context.Context, runID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, reason FROM failures WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	failures := make(map[string]string)
	for rows.Next() {
		var key, reason string
		if err := rows.Scan(&key, &reason); err != nil {
			return nil, err
		}
		failures[key] = reason
	}
	return failures, rows.Err()
}
