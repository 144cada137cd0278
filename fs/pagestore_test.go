package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageStore_SavePage(t *testing.T) {
	t.Parallel()

	t.Run("saves under group and name", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		s := fs.NewPageStore(dir)

		path, err := s.SavePage(context.Background(), &harvest.Page{
			Group: "2024-03-01_refund",
			Name:  "msg-42",
			HTML:  "<html><body>hi</body></html>",
		})

		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "2024-03-01_refund", "msg-42.html"), path)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "<html><body>hi</body></html>", string(data))
	})

	t.Run("generates a name when missing", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		s := fs.NewPageStore(dir)

		a, err := s.SavePage(context.Background(), &harvest.Page{HTML: "a"})
		require.NoError(t, err)
		b, err := s.SavePage(context.Background(), &harvest.Page{HTML: "b"})
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
		assert.Equal(t, dir, filepath.Dir(a))
		assert.True(t, strings.HasSuffix(a, ".html"))
	})

	t.Run("overwrites an existing page", func(t *testing.T) {
		t.Parallel()

		s := fs.NewPageStore(t.TempDir())
		page := &harvest.Page{Group: "g", Name: "n", HTML: "old"}
		_, err := s.SavePage(context.Background(), page)
		require.NoError(t, err)

		page.HTML = "new"
		path, err := s.SavePage(context.Background(), page)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "no temporary files left behind")
	})
}
