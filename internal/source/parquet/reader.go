// Package parquet reads raw JSON documents from one byte-array column of
// parquet shard files.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/multierr"

	"github.com/kailas-cloud/suntan/internal/domain/document"
	"github.com/kailas-cloud/suntan/internal/source"
)

// DefaultColumn holds the raw document in exported shards.
const DefaultColumn = "_source"

// Reader is a parquet source.
type Reader struct {
	files     []string
	column    string
	batchSize int
}

// Open resolves path to a single file or every *.parquet file in a directory.
func Open(path, column string, batchSize int) (*Reader, error) {
	if column == "" {
		column = DefaultColumn
	}
	if batchSize <= 0 {
		batchSize = source.DefaultBatchSize
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	files := []string{path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.parquet"))
		if err != nil {
			return nil, fmt.Errorf("glob parquet files: %w", err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no parquet files found in %s", path)
		}
		sort.Strings(files)
	}
	return &Reader{files: files, column: column, batchSize: batchSize}, nil
}

// DocCount sums row counts from file metadata without reading data pages.
func (r *Reader) DocCount(ctx context.Context) (uint64, error) {
	var n uint64
	for _, path := range r.files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		h, err := openParquet(path)
		if err != nil {
			return 0, err
		}
		n += uint64(h.pf.NumRows())
		_ = h.Close()
	}
	return n, nil
}

// Batches opens the first file and checks that it has the column.
func (r *Reader) Batches(_ context.Context) (source.Iterator, error) {
	it := &iterator{files: r.files, column: r.column, buf: make([]parquet.Row, r.batchSize)}
	if err := it.openNext(); err != nil {
		return nil, err
	}
	return it, nil
}

type iterator struct {
	files  []string
	next   int
	column string

	h      *parquetHandle
	col    int
	groups []parquet.RowGroup
	group  int
	rows   parquet.Rows

	buf     []parquet.Row
	pending []document.Raw
	err     error
	done    bool
}

func (it *iterator) HasNext() bool {
	if it.pending != nil || it.err != nil {
		return true
	}
	if it.done {
		return false
	}
	it.pending, it.err = it.read()
	if it.err != nil {
		return true
	}
	if len(it.pending) == 0 {
		it.pending = nil
		it.done = true
		return false
	}
	return true
}

func (it *iterator) Next(ctx context.Context) ([]document.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !it.HasNext() {
		return nil, io.EOF
	}
	batch, err := it.pending, it.err
	it.pending, it.err = nil, nil
	if err != nil {
		it.done = true
		return nil, err
	}
	return batch, nil
}

func (it *iterator) Close() error {
	it.done = true
	return it.closeFile()
}

// read fills one batch, moving across row groups and files as needed.
func (it *iterator) read() ([]document.Raw, error) {
	batch := make([]document.Raw, 0, len(it.buf))
	for len(batch) < len(it.buf) {
		if it.rows == nil {
			ok, err := it.advance()
			if err != nil {
				return nil, err
			}
			if !ok {
				return batch, nil
			}
		}

		n, err := it.rows.ReadRows(it.buf[:len(it.buf)-len(batch)])
		for _, row := range it.buf[:n] {
			batch = append(batch, it.extract(row))
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read rows %s: %w", filepath.Base(it.files[it.next-1]), err)
		}
		_ = it.rows.Close()
		it.rows = nil
	}
	return batch, nil
}

// advance opens the next row group, or the next file when the current one
// is exhausted. It reports false when nothing is left.
func (it *iterator) advance() (bool, error) {
	for {
		if it.h != nil && it.group < len(it.groups) {
			it.rows = parquet.NewRowGroupReader(it.groups[it.group])
			it.group++
			return true, nil
		}
		if err := it.closeFile(); err != nil {
			return false, err
		}
		if it.next >= len(it.files) {
			return false, nil
		}
		if err := it.openNext(); err != nil {
			return false, err
		}
	}
}

func (it *iterator) openNext() error {
	if it.next >= len(it.files) {
		return nil
	}
	path := it.files[it.next]
	it.next++

	h, err := openParquet(path)
	if err != nil {
		return err
	}
	col := -1
	for i, p := range h.pf.Schema().Columns() {
		if len(p) == 1 && p[0] == it.column {
			col = i
			break
		}
	}
	if col < 0 {
		_ = h.Close()
		return fmt.Errorf("%s: column %q not found", filepath.Base(path), it.column)
	}

	it.h, it.col = h, col
	it.groups, it.group = h.pf.RowGroups(), 0
	return nil
}

func (it *iterator) closeFile() error {
	var err error
	if it.rows != nil {
		err = multierr.Append(err, it.rows.Close())
		it.rows = nil
	}
	if it.h != nil {
		err = multierr.Append(err, it.h.Close())
		it.h = nil
	}
	return err
}

// extract copies the raw column value out of a row. Null values become an
// empty record, which fails to parse downstream and is counted as skipped.
func (it *iterator) extract(row parquet.Row) document.Raw {
	for _, v := range row {
		if v.Column() != it.col {
			continue
		}
		if v.IsNull() {
			return document.Raw{}
		}
		return append(document.Raw(nil), v.ByteArray()...)
	}
	return document.Raw{}
}

// parquetHandle wraps parquet.File + underlying os.File for proper cleanup.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() error {
	return h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	cleanPath := filepath.Clean(path)
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet %s: %w", filepath.Base(path), err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}
