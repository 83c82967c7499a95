package suntan

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // bleve, sqlite, postgres or redis
	path     string
	dsn      string
	addrs    []string
	password string

	indexName   string
	allowAppend bool
	bufferBytes int

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithBleve stores the index on disk with bleve at path.
func WithBleve(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "bleve"
		c.path = path
	})
}

// WithSQLite stores the index in an SQLite database file with FTS5.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "sqlite"
		c.path = path
	})
}

// WithPostgres stores the index in Postgres.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "postgres"
		c.dsn = dsn
	})
}

// WithRedis stores the index in Redis 8+ (or Redis Stack) with RediSearch.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithIndexName names the index (table, key prefix). Defaults to "documents".
func WithIndexName(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
	})
}

// WithAllowAppend lets Migrate write into an index that already holds documents.
func WithAllowAppend() Option {
	return optionFunc(func(c *clientConfig) {
		c.allowAppend = true
	})
}

// WithWriterBuffer sets how many bytes the index writer buffers between flushes.
func WithWriterBuffer(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.bufferBytes = n
	})
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithMetrics registers migration collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
