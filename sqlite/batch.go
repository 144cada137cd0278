package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/harvest"
)

var (
	_ harvest.BatchWriter = (*BatchWriter)(nil)
	_ harvest.JobResetter = (*BatchWriter)(nil)
)

// BatchWriter stores each batch and its records in one transaction.
// Every record is stored as a JSON object of column to value.
type BatchWriter struct {
	db *DB
}

// NewBatchWriter creates a new BatchWriter.
func NewBatchWriter(db *DB) *BatchWriter {
	return &BatchWriter{db: db}
}

// WriteBatch implements harvest.BatchWriter.
func (w *BatchWriter) WriteBatch(ctx context.Context, batch *harvest.Batch) error {
	tx, err := w.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO batches (job, seq, written_at) VALUES (?, ?, ?)
	`, batch.Job, batch.Seq, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	batchID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (batch_id, job, key, url, data) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range batch.Results {
		for _, rec := range r.Records() {
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, batchID, batch.Job, r.Key, r.URL, string(data)); err != nil {
				return fmt.Errorf("insert record %s: %w", r.Key, err)
			}
		}
	}

	return tx.Commit()
}

// ResetJob implements harvest.JobResetter by deleting the job's stored
// batches and records. Run summaries are kept.
func (w *BatchWriter) ResetJob(ctx context.Context, job string) error {
	tx, err := w.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE job = ?`, job); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE job = ?`, job); err != nil {
		return fmt.Errorf("delete batches: %w", err)
	}
	return tx.Commit()
}

// Record is one stored output line.
type Record struct {
	Job    string
	Seq    int
	Key    string
	URL    string
	Values map[string]string
}

// RecordFilter selects stored records.
type RecordFilter struct {
	Job    *string
	Key    *string
	Limit  int
	Offset int
}

// FindRecords returns stored records in write order.
func (w *BatchWriter) FindRecords(ctx context.Context, filter RecordFilter) ([]*Record, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`
		SELECT r.job, b.seq, r.key, r.url, r.data
		FROM records r JOIN batches b ON b.id = r.batch_id
		WHERE 1=1`)
	if filter.Job != nil {
		query.WriteString(" AND r.job = ?")
		args = append(args, *filter.Job)
	}
	if filter.Key != nil {
		query.WriteString(" AND r.key = ?")
		args = append(args, *filter.Key)
	}
	query.WriteString(" ORDER BY r.id ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := w.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var data string
		if err := rows.Scan(&rec.Job, &rec.Seq, &rec.Key, &rec.URL, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &rec.Values); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", rec.Key, err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
