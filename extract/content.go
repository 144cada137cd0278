package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/harvest"
)

var _ harvest.Processor = (*ContentProcessor)(nil)

// Content result field names.
const (
	FieldTitle       = "Title"
	FieldHTMLPath    = "HTML File Path"
	FieldContent     = "Content"
	FieldContentHash = "Content Hash"
	FieldTokens      = "Tokens"
)

// ContentProcessor turns a fetched document page into a content result:
// the page is saved as HTML, converted to Markdown, hashed and optionally
// token-counted.
type ContentProcessor struct {
	Extractor harvest.Extractor
	Converter harvest.Converter
	Pages     harvest.PageStore    // optional
	Tokens    harvest.TokenCounter // optional

	// GroupKeys are the metadata keys joined with "_" to name the page's
	// directory. Defaults to DATE and Keyword.
	GroupKeys []string

	// NameKey is the metadata key naming the saved page. Defaults to msgId.
	NameKey string
}

// Process implements harvest.Processor.
func (p *ContentProcessor) Process(ctx context.Context, d harvest.Descriptor, body []byte) (*harvest.Result, error) {
	extracted, err := p.Extractor.Extract(string(body))
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	fields := map[string]string{
		FieldTitle: extracted.Title,
	}
	if fields[FieldTitle] == "" {
		fields[FieldTitle] = d.Meta["Title"]
	}

	if p.Pages != nil {
		path, err := p.Pages.SavePage(ctx, &harvest.Page{
			Group: p.group(d),
			Name:  d.Meta[p.nameKey()],
			HTML:  extracted.ContentHTML,
		})
		if err != nil {
			return nil, fmt.Errorf("save page: %w", err)
		}
		fields[FieldHTMLPath] = path
	}

	markdown, err := p.Converter.Convert(extracted.ContentHTML)
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	fields[FieldContent] = markdown
	fields[FieldContentHash] = fmt.Sprintf("%016x", xxhash.Sum64String(markdown))

	if p.Tokens != nil {
		n, err := p.Tokens.CountTokens(ctx, markdown)
		if err != nil {
			return nil, fmt.Errorf("count tokens: %w", err)
		}
		fields[FieldTokens] = strconv.Itoa(n)
	}

	return &harvest.Result{
		Key:    d.CorrelationKey(),
		URL:    d.URL,
		Meta:   d.Meta,
		Fields: fields,
	}, nil
}

func (p *ContentProcessor) group(d harvest.Descriptor) string {
	keys := p.GroupKeys
	if len(keys) == 0 {
		keys = []string{"DATE", "Keyword"}
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := d.Meta[k]; v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "_")
}

func (p *ContentProcessor) nameKey() string {
	if p.NameKey == "" {
		return "msgId"
	}
	return p.NameKey
}
