package extract

import (
	"context"
	"fmt"

	"github.com/fwojciec/harvest"
)

// batcher buffers results and writes them in fixed-size batches. It is
// driven only from serialized completion callbacks and needs no locking.
type batcher struct {
	job     string
	size    int
	writer  harvest.BatchWriter
	policy  harvest.WritePolicy
	retries int
	backoff BackoffFunc
	events  harvest.EventSink

	seq     int
	buf     []*harvest.Result
	written int
	lost    int
}

// add buffers r and writes the buffer once it reaches the batch size.
func (b *batcher) add(ctx context.Context, r *harvest.Result) error {
	b.buf = append(b.buf, r)
	if len(b.buf) < b.size {
		return nil
	}
	return b.flush(ctx)
}

// flush writes any buffered results as the next batch. The sequence number
// is consumed even when the write fails, so batch numbers stay unique.
// Under WriteFail a failed write returns an error wrapping
// harvest.ErrSinkFailed; otherwise the batch is counted as lost.
func (b *batcher) flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}

	batch := &harvest.Batch{Job: b.job, Seq: b.seq, Results: b.buf}
	b.seq++
	b.buf = make([]*harvest.Result, 0, b.size)

	err := b.write(ctx, batch)
	if err == nil {
		b.written++
		b.events.Emit(harvest.Event{Type: harvest.EventBatchFlushed, Job: b.job, Batch: batch.Seq, Size: len(batch.Results)})
		return nil
	}

	b.lost += len(batch.Results)
	b.events.Emit(harvest.Event{Type: harvest.EventBatchWriteFailed, Job: b.job, Batch: batch.Seq, Size: len(batch.Results), Err: err})
	if b.policy == harvest.WriteFail {
		return fmt.Errorf("%w: batch %d: %v", harvest.ErrSinkFailed, batch.Seq, err)
	}
	return nil
}

func (b *batcher) write(ctx context.Context, batch *harvest.Batch) error {
	err := b.writer.WriteBatch(ctx, batch)
	if err == nil || b.policy != harvest.WriteRetry {
		return err
	}

	for attempt := 0; attempt < b.retries; attempt++ {
		if serr := sleep(ctx, b.backoff(attempt)); serr != nil {
			return err
		}
		if err = b.writer.WriteBatch(ctx, batch); err == nil {
			return nil
		}
	}
	return err
}
