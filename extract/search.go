package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fwojciec/harvest"
)

var _ harvest.Processor = (*SearchProcessor)(nil)

// FieldHits is the number of search hits a search result carries.
const FieldHits = "Hits"

// SearchProcessor turns a search response into one row per hit. The body
// has the shape {"results": {"results": [hit, ...]}}; each hit's nested
// "metadata" object is flattened into the row.
type SearchProcessor struct{}

type searchResponse struct {
	Results struct {
		Results []map[string]any `json:"results"`
	} `json:"results"`
}

// Process implements harvest.Processor.
func (p *SearchProcessor) Process(_ context.Context, d harvest.Descriptor, body []byte) (*harvest.Result, error) {
	var resp searchResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "decode search response: %v", err)
	}

	rows := make([]map[string]string, 0, len(resp.Results.Results))
	for _, hit := range resp.Results.Results {
		row := make(map[string]string, len(hit))
		for k, v := range hit {
			if k == "metadata" {
				continue
			}
			row[k] = stringify(v)
		}
		if meta, ok := hit["metadata"].(map[string]any); ok {
			for k, v := range meta {
				row[k] = stringify(v)
			}
		}
		rows = append(rows, row)
	}

	return &harvest.Result{
		Key:    d.CorrelationKey(),
		URL:    d.URL,
		Meta:   d.Meta,
		Fields: map[string]string{FieldHits: strconv.Itoa(len(rows))},
		Rows:   rows,
	}, nil
}

// stringify renders a decoded JSON value as a single cell.
func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
