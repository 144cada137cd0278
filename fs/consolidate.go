package fs

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ProcessIDColumn is the leading column of a consolidated file naming the
// job each line came from.
const ProcessIDColumn = "Process_ID"

// batchFile is one batch file found under a job directory.
type batchFile struct {
	job  string
	seq  int
	path string
}

// Consolidate merges every batch file under dir into a single gzip CSV at
// out. Jobs are read in name order and batches in sequence order. The
// header is Process_ID followed by the sorted union of all batch headers.
// It returns the number of data lines written.
func Consolidate(ctx context.Context, dir, out string) (int, error) {
	files, err := findBatches(dir)
	if err != nil {
		return 0, err
	}

	columns, err := unionHeaders(files)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(out), "."+filepath.Base(out)+".*.tmp")
	if err != nil {
		return 0, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	zw := gzip.NewWriter(tmp)
	cw := csv.NewWriter(zw)
	header := append([]string{ProcessIDColumn}, columns...)
	if err := cw.Write(header); err != nil {
		_ = tmp.Close()
		return 0, err
	}

	var rows int
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			_ = tmp.Close()
			return rows, err
		}
		n, err := copyBatch(cw, f, columns)
		rows += n
		if err != nil {
			_ = tmp.Close()
			return rows, fmt.Errorf("consolidate %s: %w", f.path, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = tmp.Close()
		return rows, err
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return rows, err
	}
	if err := tmp.Close(); err != nil {
		return rows, err
	}
	return rows, os.Rename(tmp.Name(), out)
}

func findBatches(dir string) ([]batchFile, error) {
	jobs, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []batchFile
	for _, job := range jobs {
		if !job.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(dir, job.Name()))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, BatchExt) {
				continue
			}
			seq, err := strconv.Atoi(strings.TrimSuffix(name, BatchExt))
			if err != nil {
				continue
			}
			files = append(files, batchFile{job: job.Name(), seq: seq, path: filepath.Join(dir, job.Name(), name)})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].job != files[j].job {
			return files[i].job < files[j].job
		}
		return files[i].seq < files[j].seq
	})
	return files, nil
}

func unionHeaders(files []batchFile) ([]string, error) {
	seen := make(map[string]struct{})
	for _, f := range files {
		err := readBatch(f.path, func(header []string, _ *csv.Reader) error {
			for _, h := range header {
				seen[h] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("read header %s: %w", f.path, err)
		}
	}
	delete(seen, ProcessIDColumn)

	cols := make([]string, 0, len(seen))
	for h := range seen {
		cols = append(cols, h)
	}
	sort.Strings(cols)
	return cols, nil
}

func copyBatch(cw *csv.Writer, f batchFile, columns []string) (int, error) {
	var rows int
	err := readBatch(f.path, func(header []string, r *csv.Reader) error {
		index := make(map[string]int, len(header))
		for i, h := range header {
			index[h] = i
		}

		line := make([]string, len(columns)+1)
		line[0] = f.job
		for {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				return nil
			} else if err != nil {
				return err
			}
			for i, c := range columns {
				line[i+1] = ""
				if j, ok := index[c]; ok && j < len(rec) {
					line[i+1] = rec[j]
				}
			}
			if err := cw.Write(line); err != nil {
				return err
			}
			rows++
		}
	})
	return rows, err
}

// readBatch opens a batch file and calls fn with its header and a reader
// positioned at the first data line.
func readBatch(path string, fn func(header []string, r *csv.Reader) error) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer zr.Close()

	r := csv.NewReader(zr)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil
	} else if err != nil {
		return err
	}
	return fn(header, r)
}
