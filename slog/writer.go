package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/harvest"
)

var (
	_ harvest.BatchWriter     = (*LoggingBatchWriter)(nil)
	_ harvest.JobResetter     = (*LoggingBatchWriter)(nil)
	_ harvest.SummaryRecorder = (*LoggingSummaryRecorder)(nil)
)

// LoggingBatchWriter wraps a BatchWriter with debug logging.
type LoggingBatchWriter struct {
	next   harvest.BatchWriter
	logger *slog.Logger
}

// NewLoggingBatchWriter creates a new LoggingBatchWriter.
func NewLoggingBatchWriter(next harvest.BatchWriter, logger *slog.Logger) *LoggingBatchWriter {
	return &LoggingBatchWriter{next: next, logger: logger}
}

// WriteBatch delegates to the wrapped writer and logs the operation.
func (w *LoggingBatchWriter) WriteBatch(ctx context.Context, batch *harvest.Batch) (err error) {
	job, seq, size := batch.Job, batch.Seq, len(batch.Results)
	defer func(begin time.Time) {
		w.logger.Debug("batch write",
			"job", job,
			"batch", seq,
			"size", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return w.next.WriteBatch(ctx, batch)
}

// ResetJob delegates to the wrapped writer if it implements
// harvest.JobResetter and does nothing otherwise.
func (w *LoggingBatchWriter) ResetJob(ctx context.Context, job string) (err error) {
	r, ok := w.next.(harvest.JobResetter)
	if !ok {
		return nil
	}
	defer func(begin time.Time) {
		w.logger.Debug("job reset",
			"job", job,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.ResetJob(ctx, job)
}

// LoggingSummaryRecorder wraps a SummaryRecorder with logging.
type LoggingSummaryRecorder struct {
	next   harvest.SummaryRecorder
	logger *slog.Logger
}

// NewLoggingSummaryRecorder creates a new LoggingSummaryRecorder.
func NewLoggingSummaryRecorder(next harvest.SummaryRecorder, logger *slog.Logger) *LoggingSummaryRecorder {
	return &LoggingSummaryRecorder{next: next, logger: logger}
}

// RecordSummary delegates to the wrapped recorder and logs the job totals.
func (r *LoggingSummaryRecorder) RecordSummary(ctx context.Context, s *harvest.Summary) (err error) {
	defer func(begin time.Time) {
		r.logger.Info("job summary",
			"job", s.Job,
			"run", s.RunID,
			"total", s.Total,
			"succeeded", s.Succeeded,
			"failed", s.Failed,
			"skipped", s.Skipped,
			"duplicates", s.Duplicates,
			"lost", s.Lost,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.RecordSummary(ctx, s)
}
