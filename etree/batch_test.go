package etree_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchWriter_WriteBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := etree.NewBatchWriter(dir)
	batch := &harvest.Batch{
		Job: "refund",
		Seq: 2,
		Results: []*harvest.Result{
			{
				Key:    "42",
				URL:    "https://example.com/api/email/42?a=1&b=2",
				Meta:   map[string]string{"DATE": "2024-03-01", "Keyword": "refund"},
				Fields: map[string]string{"Content": "# Hello <world> & co"},
			},
			{
				Key:  "s1",
				Rows: []map[string]string{{"id": "a1"}, {"id": "a2", "msgId": "m2"}},
			},
		},
	}

	require.NoError(t, w.WriteBatch(context.Background(), batch))

	path := filepath.Join(dir, "refund", "2.xml")
	assert.Equal(t, path, w.Path("refund", 2))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := etree.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, batch, got)
}

func TestEncode_SortsNamedValues(t *testing.T) {
	t.Parallel()

	doc := etree.Encode(&harvest.Batch{
		Job:     "j",
		Results: []*harvest.Result{{Key: "k", Fields: map[string]string{"b": "2", "a": "1"}}},
	})
	s, err := doc.WriteToString()
	require.NoError(t, err)

	assert.Less(t, strings.Index(s, `name="a"`), strings.Index(s, `name="b"`))
	assert.Contains(t, s, `<batch job="j" seq="0">`)
}

func TestDecode_RejectsForeignDocuments(t *testing.T) {
	t.Parallel()

	_, err := etree.Decode(strings.NewReader(`<urlset><url/></urlset>`))

	assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
}

func TestBatchWriter_ResetJob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := etree.NewBatchWriter(dir)
	ctx := context.Background()
	for seq := range 2 {
		require.NoError(t, w.WriteBatch(ctx, &harvest.Batch{Job: "refund", Seq: seq, Results: []*harvest.Result{{Key: "k"}}}))
	}
	summary := filepath.Join(dir, "refund", "summary.json")
	require.NoError(t, os.WriteFile(summary, []byte("{}"), 0644))

	require.NoError(t, w.ResetJob(ctx, "refund"))

	left, err := filepath.Glob(filepath.Join(dir, "refund", "*.xml"))
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.FileExists(t, summary)
	assert.NoError(t, w.ResetJob(ctx, "missing"))
}
