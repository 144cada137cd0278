// Package input turns the tool's input files into request descriptors.
//
// Two inputs are supported: content rows exported from an earlier search
// (one message per row) and search themes (one keyword list per row), which
// expand into the full grid of search requests.
package input

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/fwojciec/harvest"
)

// table is a CSV file indexed by header name.
type table struct {
	index map[string]int
	rows  [][]string
}

// readTable reads a CSV file with a header row. A UTF-8 byte order mark on
// the first header is ignored.
func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, harvest.Errorf(harvest.EINVALID, "input has no header row")
	}
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "read header: %v", err)
	}

	t := &table{index: make(map[string]int, len(header))}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		t.index[strings.TrimSpace(name)] = i
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, harvest.Errorf(harvest.EINVALID, "read row: %v", err)
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

// require returns an EINVALID error naming the first missing column.
func (t *table) require(columns ...string) error {
	for _, c := range columns {
		if _, ok := t.index[c]; !ok {
			return harvest.Errorf(harvest.EINVALID, "missing column %q", c)
		}
	}
	return nil
}

// get returns the trimmed value of column in row, or "" if either is missing.
func (t *table) get(row []string, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// truthy reports whether a spreadsheet cell holds a true boolean.
func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}
