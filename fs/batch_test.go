package fs_test

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readCSVGz returns every line of a gzip CSV file, header first.
func readCSVGz(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()

	lines, err := csv.NewReader(zr).ReadAll()
	require.NoError(t, err)
	return lines
}

// Story: Batch Files
// Each batch becomes one compressed CSV file per job and sequence number

func TestBatchWriter_WritesOneFilePerBatch(t *testing.T) {
	t.Parallel()

	// Given a writer rooted in a temporary directory
	dir := t.TempDir()
	w := fs.NewBatchWriter(dir)

	// When I write a batch with two content results
	err := w.WriteBatch(context.Background(), &harvest.Batch{
		Job: "content",
		Seq: 3,
		Results: []*harvest.Result{
			{Key: "1", Meta: map[string]string{"DATE": "2024-01-01"}, Fields: map[string]string{"Title": "A, with comma"}},
			{Key: "2", Meta: map[string]string{"DATE": "2024-01-02"}, Fields: map[string]string{"Title": "B"}},
		},
	})

	// Then the file is named after the job and sequence number
	require.NoError(t, err)
	path := filepath.Join(dir, "content", "3.csv.gz")
	assert.Equal(t, path, w.Path("content", 3))

	// And it holds a sorted header and one line per result
	lines := readCSVGz(t, path)
	assert.Equal(t, [][]string{
		{"DATE", "Title"},
		{"2024-01-01", "A, with comma"},
		{"2024-01-02", "B"},
	}, lines)
}

func TestBatchWriter_ExpandsRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := fs.NewBatchWriter(dir)

	err := w.WriteBatch(context.Background(), &harvest.Batch{
		Job: "refund",
		Seq: 0,
		Results: []*harvest.Result{{
			Meta: map[string]string{"Keyword": "refund"},
			Rows: []map[string]string{{"id": "a"}, {"id": "b", "msgId": "m"}},
		}},
	})

	require.NoError(t, err)
	lines := readCSVGz(t, w.Path("refund", 0))
	assert.Equal(t, [][]string{
		{"Keyword", "id", "msgId"},
		{"refund", "a", ""},
		{"refund", "b", "m"},
	}, lines)
}

func TestBatchWriter_SanitizesJobName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := fs.NewBatchWriter(dir)

	err := w.WriteBatch(context.Background(), &harvest.Batch{Job: "../escape", Results: []*harvest.Result{{Key: "x"}}})

	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, ".._escape", "0.csv.gz"))
	assert.NoError(t, err)
}

func TestBatchWriter_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fs.NewBatchWriter(t.TempDir()).WriteBatch(ctx, &harvest.Batch{Job: "j"})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchWriter_ResetJob(t *testing.T) {
	t.Parallel()

	// Given a longer earlier run of the job left three batch files
	dir := t.TempDir()
	w := fs.NewBatchWriter(dir)
	ctx := context.Background()
	for seq := range 3 {
		require.NoError(t, w.WriteBatch(ctx, &harvest.Batch{Job: "content", Seq: seq, Results: []*harvest.Result{{Key: "old"}}}))
	}
	other := filepath.Join(dir, "content", "summary.json")
	require.NoError(t, os.WriteFile(other, []byte("{}"), 0644))

	// When the job is reset and rerun with a single batch
	require.NoError(t, w.ResetJob(ctx, "content"))
	require.NoError(t, w.WriteBatch(ctx, &harvest.Batch{Job: "content", Seq: 0, Results: []*harvest.Result{{Key: "new"}}}))

	// Then only the new batch remains and other files are kept
	batches, err := filepath.Glob(filepath.Join(dir, "content", "*"+fs.BatchExt))
	require.NoError(t, err)
	assert.Equal(t, []string{w.Path("content", 0)}, batches)
	assert.FileExists(t, other)

	// And consolidation sees only the rerun's rows
	rows, err := fs.Consolidate(ctx, dir, filepath.Join(t.TempDir(), "all.csv.gz"))
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
}

func TestBatchWriter_ResetJobWithoutEarlierRun(t *testing.T) {
	t.Parallel()

	err := fs.NewBatchWriter(t.TempDir()).ResetJob(context.Background(), "never-ran")

	assert.NoError(t, err)
}
