package extract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/extract"
	"github.com/fwojciec/harvest/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contentProcessor(pages *[]*harvest.Page) *extract.ContentProcessor {
	return &extract.ContentProcessor{
		Extractor: &mock.Extractor{
			ExtractFn: func(html string) (*harvest.ExtractResult, error) {
				return &harvest.ExtractResult{Title: "Refund request", ContentHTML: "<p>" + html + "</p>"}, nil
			},
		},
		Converter: &mock.Converter{
			ConvertFn: func(html string) (string, error) {
				return "md:" + html, nil
			},
		},
		Pages: &mock.PageStore{
			SavePageFn: func(_ context.Context, p *harvest.Page) (string, error) {
				*pages = append(*pages, p)
				return "out/" + p.Group + "/" + p.Name + ".html", nil
			},
		},
	}
}

func TestContentProcessor_Process(t *testing.T) {
	t.Parallel()

	d := harvest.Descriptor{
		URL:  "https://example.com/api/email/42",
		Key:  "42",
		Meta: map[string]string{"DATE": "2024-03-01", "Keyword": "refund", "msgId": "42"},
	}

	t.Run("saves the page and derives content fields", func(t *testing.T) {
		t.Parallel()

		var pages []*harvest.Page
		p := contentProcessor(&pages)

		r, err := p.Process(context.Background(), d, []byte("hello"))

		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, "2024-03-01_refund", pages[0].Group)
		assert.Equal(t, "42", pages[0].Name)
		assert.Equal(t, "<p>hello</p>", pages[0].HTML)

		assert.Equal(t, "42", r.Key)
		assert.Equal(t, d.URL, r.URL)
		assert.Equal(t, d.Meta, r.Meta)
		assert.Equal(t, "Refund request", r.Fields[extract.FieldTitle])
		assert.Equal(t, "out/2024-03-01_refund/42.html", r.Fields[extract.FieldHTMLPath])
		assert.Equal(t, "md:<p>hello</p>", r.Fields[extract.FieldContent])
		assert.Len(t, r.Fields[extract.FieldContentHash], 16)
		assert.NotContains(t, r.Fields, extract.FieldTokens)
	})

	t.Run("identical content hashes identically", func(t *testing.T) {
		t.Parallel()

		var pages []*harvest.Page
		p := contentProcessor(&pages)

		a, err := p.Process(context.Background(), d, []byte("same"))
		require.NoError(t, err)
		b, err := p.Process(context.Background(), d, []byte("same"))
		require.NoError(t, err)
		c, err := p.Process(context.Background(), d, []byte("different"))
		require.NoError(t, err)

		assert.Equal(t, a.Fields[extract.FieldContentHash], b.Fields[extract.FieldContentHash])
		assert.NotEqual(t, a.Fields[extract.FieldContentHash], c.Fields[extract.FieldContentHash])
	})

	t.Run("counts tokens when a counter is set", func(t *testing.T) {
		t.Parallel()

		var pages []*harvest.Page
		p := contentProcessor(&pages)
		p.Tokens = &mock.TokenCounter{
			CountTokensFn: func(_ context.Context, text string) (int, error) {
				return len(text), nil
			},
		}

		r, err := p.Process(context.Background(), d, []byte("hi"))

		require.NoError(t, err)
		assert.Equal(t, "12", r.Fields[extract.FieldTokens])
	})

	t.Run("falls back to the title in metadata", func(t *testing.T) {
		t.Parallel()

		p := &extract.ContentProcessor{
			Extractor: &mock.Extractor{
				ExtractFn: func(html string) (*harvest.ExtractResult, error) {
					return &harvest.ExtractResult{ContentHTML: html}, nil
				},
			},
			Converter: &mock.Converter{ConvertFn: func(html string) (string, error) { return html, nil }},
		}
		withTitle := d
		withTitle.Meta = map[string]string{"Title": "Invoice"}

		r, err := p.Process(context.Background(), withTitle, []byte("x"))

		require.NoError(t, err)
		assert.Equal(t, "Invoice", r.Fields[extract.FieldTitle])
		assert.NotContains(t, r.Fields, extract.FieldHTMLPath)
	})

	t.Run("uses custom group and name keys", func(t *testing.T) {
		t.Parallel()

		var pages []*harvest.Page
		p := contentProcessor(&pages)
		p.GroupKeys = []string{"Keyword"}
		p.NameKey = "Key"

		_, err := p.Process(context.Background(), harvest.Descriptor{
			URL:  "https://example.com/x",
			Meta: map[string]string{"Keyword": "billing", "Key": "row-7"},
		}, []byte("x"))

		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, "billing", pages[0].Group)
		assert.Equal(t, "row-7", pages[0].Name)
	})

	t.Run("wraps collaborator failures", func(t *testing.T) {
		t.Parallel()

		var pages []*harvest.Page
		p := contentProcessor(&pages)
		p.Pages = &mock.PageStore{
			SavePageFn: func(context.Context, *harvest.Page) (string, error) {
				return "", errors.New("read-only file system")
			},
		}

		_, err := p.Process(context.Background(), d, []byte("x"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "save page")
	})
}
