// Package jsonl reads shard files holding one JSON record per line. Shards
// may be gzip (.gz) or zstd (.zst) compressed.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"

	"github.com/kailas-cloud/suntan/internal/domain/document"
	"github.com/kailas-cloud/suntan/internal/source"
)

var extensions = []string{".jsonl", ".ndjson", ".json"}

// Reader is a JSON-lines source over a file or a directory of shard files.
type Reader struct {
	files     []string
	batchSize int
}

// Open resolves path to its shard files. A directory contributes every
// supported file directly inside it, in name order.
func Open(path string, batchSize int) (*Reader, error) {
	if batchSize <= 0 {
		batchSize = source.DefaultBatchSize
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		if !supported(path) {
			return nil, fmt.Errorf("unsupported shard file %s", filepath.Base(path))
		}
		return &Reader{files: []string{path}, batchSize: batchSize}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no shard files found in %s", path)
	}
	sort.Strings(files)
	return &Reader{files: files, batchSize: batchSize}, nil
}

// Files returns the shard files in read order.
func (r *Reader) Files() []string { return append([]string(nil), r.files...) }

// DocCount counts non-blank lines across all shards. It reads every shard,
// so it costs a full pass over the data.
func (r *Reader) DocCount(ctx context.Context) (uint64, error) {
	var n uint64
	for _, path := range r.files {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		c, err := countFile(path)
		if err != nil {
			return 0, fmt.Errorf("count %s: %w", filepath.Base(path), err)
		}
		n += c
	}
	return n, nil
}

// Batches returns an iterator over the shards. The first shard is opened
// eagerly so an unreadable source fails here rather than mid-run.
func (r *Reader) Batches(_ context.Context) (source.Iterator, error) {
	it := &iterator{files: r.files, batchSize: r.batchSize}
	if err := it.openNext(); err != nil {
		return nil, err
	}
	return it, nil
}

type iterator struct {
	files     []string
	next      int
	batchSize int

	cur     io.ReadCloser
	lines   *bufio.Reader
	pending []document.Raw
	err     error
	done    bool
}

// HasNext reads ahead one batch. A read error is reported by the following
// Next call.
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
	if it.cur == nil {
		return nil
	}
	err := it.cur.Close()
	it.cur = nil
	return err
}

// read collects up to batchSize records, crossing shard boundaries.
func (it *iterator) read() ([]document.Raw, error) {
	batch := make([]document.Raw, 0, it.batchSize)
	for len(batch) < it.batchSize {
		if it.lines == nil {
			return batch, nil
		}
		line, err := it.lines.ReadBytes('\n')
		if rec := bytes.TrimSpace(line); len(rec) > 0 {
			batch = append(batch, document.Raw(rec))
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(it.files[it.next-1]), err)
		}
		closeErr := it.cur.Close()
		it.cur, it.lines = nil, nil
		if closeErr != nil {
			return nil, closeErr
		}
		if err := it.openNext(); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

func (it *iterator) openNext() error {
	if it.next >= len(it.files) {
		return nil
	}
	path := it.files[it.next]
	it.next++
	rc, err := openShard(path)
	if err != nil {
		return err
	}
	it.cur = rc
	it.lines = bufio.NewReaderSize(rc, 1<<20)
	return nil
}

func supported(name string) bool {
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".gz"), ".zst")
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// openShard opens a shard, transparently decompressing it.
func openShard(path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("gzip %s: %w", filepath.Base(path), err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("zstd %s: %w", filepath.Base(path), err)
		}
		rc := zr.IOReadCloser()
		return &stackedCloser{Reader: rc, closers: []io.Closer{rc, f}}, nil
	default:
		return f, nil
	}
}

func countFile(path string) (uint64, error) {
	rc, err := openShard(path)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	var n uint64
	br := bufio.NewReaderSize(rc, 1<<20)
	for {
		line, err := br.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// stackedCloser closes a decompressor and the file underneath it.
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var err error
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
