package mock

import (
	"context"

	"github.com/fwojciec/harvest"
)

var (
	_ harvest.BatchWriter     = (*BatchWriter)(nil)
	_ harvest.JobResetter     = (*ResettingBatchWriter)(nil)
	_ harvest.SummaryRecorder = (*SummaryRecorder)(nil)
	_ harvest.Processor       = (*Processor)(nil)
)

// BatchWriter is a mock implementation of harvest.BatchWriter.
type BatchWriter struct {
	WriteBatchFn func(ctx context.Context, batch *harvest.Batch) error
}

func (w *BatchWriter) WriteBatch(ctx context.Context, batch *harvest.Batch) error {
	return w.WriteBatchFn(ctx, batch)
}

// ResettingBatchWriter is a mock BatchWriter that also implements
// harvest.JobResetter.
type ResettingBatchWriter struct {
	BatchWriter
	ResetJobFn func(ctx context.Context, job string) error
}

func (w *ResettingBatchWriter) ResetJob(ctx context.Context, job string) error {
	return w.ResetJobFn(ctx, job)
}

// SummaryRecorder is a mock implementation of harvest.SummaryRecorder.
type SummaryRecorder struct {
	RecordSummaryFn func(ctx context.Context, s *harvest.Summary) error
}

func (r *SummaryRecorder) RecordSummary(ctx context.Context, s *harvest.Summary) error {
	return r.RecordSummaryFn(ctx, s)
}

// Processor is a mock implementation of harvest.Processor.
type Processor struct {
	ProcessFn func(ctx context.Context, d harvest.Descriptor, body []byte) (*harvest.Result, error)
}

func (p *Processor) Process(ctx context.Context, d harvest.Descriptor, body []byte) (*harvest.Result, error) {
	return p.ProcessFn(ctx, d, body)
}
