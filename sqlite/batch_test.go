package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchWriter_WriteBatch(t *testing.T) {
	t.Parallel()

	t.Run("stores one record per output line", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		w := sqlite.NewBatchWriter(db)
		ctx := context.Background()

		err := w.WriteBatch(ctx, &harvest.Batch{
			Job: "refund",
			Seq: 4,
			Results: []*harvest.Result{
				{Key: "42", URL: "https://example.com/42", Meta: map[string]string{"DATE": "2024-03-01"}, Fields: map[string]string{"Title": "Hi"}},
				{Key: "s", Rows: []map[string]string{{"id": "a"}, {"id": "b"}}},
			},
		})
		require.NoError(t, err)

		records, err := w.FindRecords(ctx, sqlite.RecordFilter{})
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, &sqlite.Record{
			Job:    "refund",
			Seq:    4,
			Key:    "42",
			URL:    "https://example.com/42",
			Values: map[string]string{"DATE": "2024-03-01", "Title": "Hi"},
		}, records[0])
		assert.Equal(t, "a", records[1].Values["id"])
		assert.Equal(t, "b", records[2].Values["id"])
	})

	t.Run("filters by job and key with pagination", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		w := sqlite.NewBatchWriter(db)
		ctx := context.Background()

		for seq, job := range []string{"a", "b", "a"} {
			require.NoError(t, w.WriteBatch(ctx, &harvest.Batch{
				Job:     job,
				Seq:     seq,
				Results: []*harvest.Result{{Key: job + "1"}, {Key: job + "2"}},
			}))
		}

		job := "a"
		records, err := w.FindRecords(ctx, sqlite.RecordFilter{Job: &job})
		require.NoError(t, err)
		assert.Len(t, records, 4)

		key := "b2"
		records, err = w.FindRecords(ctx, sqlite.RecordFilter{Key: &key})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 1, records[0].Seq)

		records, err = w.FindRecords(ctx, sqlite.RecordFilter{Job: &job, Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "a2", records[0].Key)
		assert.Equal(t, "a1", records[1].Key)

		records, err = w.FindRecords(ctx, sqlite.RecordFilter{Offset: 5})
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("reset drops an earlier run of the same job", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		w := sqlite.NewBatchWriter(db)
		ctx := context.Background()

		for seq := range 2 {
			require.NoError(t, w.WriteBatch(ctx, &harvest.Batch{Job: "refund", Seq: seq, Results: []*harvest.Result{{Key: "old"}}}))
		}
		require.NoError(t, w.WriteBatch(ctx, &harvest.Batch{Job: "other", Seq: 0, Results: []*harvest.Result{{Key: "kept"}}}))

		require.NoError(t, w.ResetJob(ctx, "refund"))
		require.NoError(t, w.WriteBatch(ctx, &harvest.Batch{Job: "refund", Seq: 0, Results: []*harvest.Result{{Key: "new"}}}))

		job := "refund"
		records, err := w.FindRecords(ctx, sqlite.RecordFilter{Job: &job})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "new", records[0].Key)
		assert.Equal(t, 0, records[0].Seq)

		job = "other"
		records, err = w.FindRecords(ctx, sqlite.RecordFilter{Job: &job})
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("fails on a canceled context", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := sqlite.NewBatchWriter(db).WriteBatch(ctx, &harvest.Batch{Job: "j", Results: []*harvest.Result{{Key: "k"}}})

		require.Error(t, err)
		records, ferr := sqlite.NewBatchWriter(db).FindRecords(context.Background(), sqlite.RecordFilter{})
		require.NoError(t, ferr)
		assert.Empty(t, records)
	})
}
