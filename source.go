package suntan

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kailas-cloud/suntan/internal/source/elastic"
	"github.com/kailas-cloud/suntan/internal/source/jsonl"
	"github.com/kailas-cloud/suntan/internal/source/parquet"
	"github.com/kailas-cloud/suntan/internal/usecase/migrate"
)

// Source is a store to migrate from. Build one with JSONL, Parquet or Elastic.
type Source struct {
	src migrate.Source
}

// JSONL reads a JSON lines file, or every .jsonl/.ndjson/.json file (optionally
// gzip or zstd compressed) directly inside a directory.
func JSONL(path string, batchSize int) (Source, error) {
	r, err := jsonl.Open(path, batchSize)
	if err != nil {
		return Source{}, fmt.Errorf("suntan: jsonl source: %w", err)
	}
	return Source{src: r}, nil
}

// Parquet reads the JSON text in column of a Parquet file or directory.
// An empty column selects "_source".
func Parquet(path, column string, batchSize int) (Source, error) {
	if column == "" {
		column = parquet.DefaultColumn
	}
	r, err := parquet.Open(path, column, batchSize)
	if err != nil {
		return Source{}, fmt.Errorf("suntan: parquet source: %w", err)
	}
	return Source{src: r}, nil
}

// ElasticConfig describes an Elasticsearch or OpenSearch index to read.
type ElasticConfig struct {
	URL       string
	Index     string
	Username  string
	Password  string
	BatchSize int
	Scroll    time.Duration
}

// Elastic scrolls an Elasticsearch index with client.
func Elastic(client *http.Client, cfg ElasticConfig) (Source, error) {
	r, err := elastic.New(client, elastic.Config{
		URL:       cfg.URL,
		Index:     cfg.Index,
		Username:  cfg.Username,
		Password:  cfg.Password,
		BatchSize: cfg.BatchSize,
		Scroll:    cfg.Scroll,
	})
	if err != nil {
		return Source{}, fmt.Errorf("suntan: elastic source: %w", err)
	}
	return Source{src: r}, nil
}
