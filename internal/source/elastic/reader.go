// Package elastic reads documents from an Elasticsearch or OpenSearch index
// through the scroll API. Each hit's _source is passed on verbatim.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/suntan/internal/domain/document"
	"github.com/kailas-cloud/suntan/internal/source"
)

// DefaultScroll keeps a scroll context alive between pages.
const DefaultScroll = 5 * time.Minute

// Config describes the index to read.
type Config struct {
	URL       string
	Index     string
	Username  string
	Password  string
	BatchSize int
	Scroll    time.Duration
}

// Reader is an Elasticsearch source. The HTTP client is owned by the caller.
type Reader struct {
	client *http.Client
	cfg    Config
	base   *url.URL
}

// New validates cfg. No request is made until the first call.
func New(client *http.Client, cfg Config) (*Reader, error) {
	if client == nil {
		return nil, errors.New("http client is required")
	}
	if cfg.Index == "" {
		return nil, errors.New("index is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid url %q", cfg.URL)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = source.DefaultBatchSize
	}
	if cfg.Scroll <= 0 {
		cfg.Scroll = DefaultScroll
	}
	return &Reader{client: client, cfg: cfg, base: base}, nil
}

// Ping checks that the cluster answers.
func (r *Reader) Ping(ctx context.Context) error {
	return r.do(ctx, http.MethodGet, "/", nil, nil)
}

// DocCount returns the index's document count via _count.
func (r *Reader) DocCount(ctx context.Context) (uint64, error) {
	var resp struct {
		Count uint64 `json:"count"`
	}
	if err := r.do(ctx, http.MethodGet, "/"+url.PathEscape(r.cfg.Index)+"/_count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Batches opens a scroll and fetches its first page.
func (r *Reader) Batches(ctx context.Context) (source.Iterator, error) {
	body := map[string]any{
		"size": r.cfg.BatchSize,
		"sort": []string{"_doc"},
	}
	path := "/" + url.PathEscape(r.cfg.Index) + "/_search?scroll=" + scrollParam(r.cfg.Scroll)

	var page searchPage
	if err := r.do(ctx, http.MethodPost, path, body, &page); err != nil {
		return nil, err
	}
	it := &iterator{reader: r, total: uint64(page.Hits.Total)}
	if batch := it.take(&page); len(batch) > 0 {
		it.first = batch
	}
	return it, nil
}

type searchPage struct {
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Total totalHits `json:"total"`
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// totalHits accepts both the object form ({"value": n}) and the bare
// number older clusters return.
type totalHits uint64

func (t *totalHits) UnmarshalJSON(b []byte) error {
	var n uint64
	if err := json.Unmarshal(b, &n); err == nil {
		*t = totalHits(n)
		return nil
	}
	var obj struct {
		Value uint64 `json:"value"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*t = totalHits(obj.Value)
	return nil
}

type iterator struct {
	reader   *Reader
	scrollID string
	total    uint64
	seen     uint64
	first    []document.Raw
	done     bool
}

func (it *iterator) take(page *searchPage) []document.Raw {
	if page.ScrollID != "" {
		it.scrollID = page.ScrollID
	}
	batch := make([]document.Raw, 0, len(page.Hits.Hits))
	for _, h := range page.Hits.Hits {
		batch = append(batch, document.Raw(h.Source))
	}
	it.seen += uint64(len(batch))
	if len(batch) == 0 || (it.total > 0 && it.seen >= it.total) {
		it.done = true
	}
	return batch
}

func (it *iterator) HasNext() bool {
	return it.first != nil || !it.done
}

// Next returns the first page, then pulls the scroll. The page that turns
// out empty ends the iteration and comes back as an empty batch.
func (it *iterator) Next(ctx context.Context) ([]document.Raw, error) {
	if it.first != nil {
		batch := it.first
		it.first = nil
		return batch, nil
	}
	if it.done {
		return nil, io.EOF
	}

	body := map[string]any{
		"scroll":    scrollParam(it.reader.cfg.Scroll),
		"scroll_id": it.scrollID,
	}
	var page searchPage
	if err := it.reader.do(ctx, http.MethodPost, "/_search/scroll", body, &page); err != nil {
		it.done = true
		return nil, err
	}
	return it.take(&page), nil
}

// Close releases the scroll context on the server.
func (it *iterator) Close() error {
	it.done = true
	it.first = nil
	if it.scrollID == "" {
		return nil
	}
	id := it.scrollID
	it.scrollID = ""
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return it.reader.do(ctx, http.MethodDelete, "/_search/scroll", map[string]any{"scroll_id": []string{id}}, nil)
}

func (r *Reader) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.base.String()+path, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.cfg.Username != "" {
		req.SetBasicAuth(r.cfg.Username, r.cfg.Password)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func scrollParam(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
	return fmt.Sprintf("%ds", int(d/time.Second))
}
