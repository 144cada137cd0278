// Package etree writes result batches as XML documents.
package etree

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/beevik/etree"
	"github.com/fwojciec/harvest"
)

var (
	_ harvest.BatchWriter = (*BatchWriter)(nil)
	_ harvest.JobResetter = (*BatchWriter)(nil)
)

// BatchWriter writes each batch to <dir>/<job>/<seq>.xml:
//
//	<batch job="refund" seq="0">
//	  <result key="42" url="https://...">
//	    <meta name="DATE">2024-03-01</meta>
//	    <field name="Title">...</field>
//	    <row><field name="id">a1</field></row>
//	  </result>
//	</batch>
type BatchWriter struct {
	dir string
}

// NewBatchWriter creates a BatchWriter rooted at dir.
func NewBatchWriter(dir string) *BatchWriter {
	return &BatchWriter{dir: dir}
}

// Path returns the file a batch is written to.
func (w *BatchWriter) Path(job string, seq int) string {
	return filepath.Join(w.dir, job, strconv.Itoa(seq)+".xml")
}

// WriteBatch implements harvest.BatchWriter.
func (w *BatchWriter) WriteBatch(ctx context.Context, batch *harvest.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := Encode(batch)
	path := w.Path(batch.Job, batch.Seq)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := doc.WriteToFile(path); err != nil {
		return fmt.Errorf("write batch %d: %w", batch.Seq, err)
	}
	return nil
}

// ResetJob implements harvest.JobResetter by removing the job's XML batch
// files.
func (w *BatchWriter) ResetJob(ctx context.Context, job string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	paths, err := filepath.Glob(filepath.Join(w.dir, job, "*.xml"))
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// Encode renders a batch as an XML document.
func Encode(batch *harvest.Batch) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("batch")
	root.CreateAttr("job", batch.Job)
	root.CreateAttr("seq", strconv.Itoa(batch.Seq))

	for _, r := range batch.Results {
		el := root.CreateElement("result")
		el.CreateAttr("key", r.Key)
		el.CreateAttr("url", r.URL)
		addPairs(el, "meta", r.Meta)
		addPairs(el, "field", r.Fields)
		for _, row := range r.Rows {
			addPairs(el.CreateElement("row"), "field", row)
		}
	}

	doc.Indent(2)
	return doc
}

// Decode parses a batch written by Encode.
func Decode(r io.Reader) (*harvest.Batch, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parsing batch XML: %w", err)
	}

	root := doc.SelectElement("batch")
	if root == nil {
		return nil, harvest.Errorf(harvest.EINVALID, "missing batch element")
	}
	seq, err := strconv.Atoi(root.SelectAttrValue("seq", ""))
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "invalid batch seq: %v", err)
	}

	batch := &harvest.Batch{Job: root.SelectAttrValue("job", ""), Seq: seq}
	for _, el := range root.SelectElements("result") {
		res := &harvest.Result{
			Key:    el.SelectAttrValue("key", ""),
			URL:    el.SelectAttrValue("url", ""),
			Meta:   pairs(el, "meta"),
			Fields: pairs(el, "field"),
		}
		for _, row := range el.SelectElements("row") {
			res.Rows = append(res.Rows, pairs(row, "field"))
		}
		batch.Results = append(batch.Results, res)
	}
	return batch, nil
}

func addPairs(parent *etree.Element, tag string, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		el := parent.CreateElement(tag)
		el.CreateAttr("name", k)
		el.SetText(m[k])
	}
}

func pairs(parent *etree.Element, tag string) map[string]string {
	els := parent.SelectElements(tag)
	if len(els) == 0 {
		return nil
	}
	m := make(map[string]string, len(els))
	for _, el := range els {
		m[el.SelectAttrValue("name", "")] = el.Text()
	}
	return m
}
