package fs

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/fwojciec/harvest"
)

// BatchExt is the extension of batch files.
const BatchExt = ".csv.gz"

var (
	_ harvest.BatchWriter = (*BatchWriter)(nil)
	_ harvest.JobResetter = (*BatchWriter)(nil)
)

// BatchWriter writes each batch as a gzip-compressed CSV file at
// <dir>/<job>/<seq>.csv.gz. The header is the sorted union of the batch's
// columns; results with rows produce one line per row.
type BatchWriter struct {
	dir string
}

// NewBatchWriter creates a BatchWriter rooted at dir.
func NewBatchWriter(dir string) *BatchWriter {
	return &BatchWriter{dir: dir}
}

// Path returns the file a batch is written to.
func (w *BatchWriter) Path(job string, seq int) string {
	return filepath.Join(w.dir, SafeName(job), strconv.Itoa(seq)+BatchExt)
}

// WriteBatch implements harvest.BatchWriter.
func (w *BatchWriter) WriteBatch(ctx context.Context, batch *harvest.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := encodeCSV(zw, batch.Results); err != nil {
		return fmt.Errorf("encode batch %d: %w", batch.Seq, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress batch %d: %w", batch.Seq, err)
	}

	return writeFile(w.Path(batch.Job, batch.Seq), buf.Bytes())
}

// ResetJob implements harvest.JobResetter by removing the job's batch
// files. Other files in the job directory are left alone.
func (w *BatchWriter) ResetJob(ctx context.Context, job string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return removeMatching(filepath.Join(w.dir, SafeName(job)), "*"+BatchExt)
}

func encodeCSV(w io.Writer, results []*harvest.Result) error {
	cols := harvest.Columns(results)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}

	line := make([]string, len(cols))
	for _, r := range results {
		for _, rec := range r.Records() {
			for i, c := range cols {
				line[i] = rec[c]
			}
			if err := cw.Write(line); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
