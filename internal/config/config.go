package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	SourceJSONL   = "jsonl"
	SourceParquet = "parquet"
	SourceElastic = "elastic"
)

// Index drivers.
const (
	DriverBleve    = "bleve"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds the suntan configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Source  SourceConfig  `yaml:"source"`
	Schema  SchemaConfig  `yaml:"schema"`
	Index   IndexConfig   `yaml:"index"`
	Verify  VerifyConfig  `yaml:"verify"`
	Metrics MetricsConfig `yaml:"metrics"`
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// SourceConfig describes the store being migrated.
type SourceConfig struct {
	Kind      string        `yaml:"kind"` // jsonl, parquet, elastic (default: jsonl)
	Path      string        `yaml:"path"`
	BatchSize int           `yaml:"batch_size"`
	Column    string        `yaml:"column"` // parquet only
	Elastic   ElasticConfig `yaml:"elastic"`
}

// ElasticConfig holds Elasticsearch/OpenSearch source settings.
type ElasticConfig struct {
	URL        string `yaml:"url"`
	Index      string `yaml:"index"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	ScrollSec  int    `yaml:"scroll_sec"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SchemaConfig locates the target schema description.
type SchemaConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig holds target index settings.
type IndexConfig struct {
	Driver            string         `yaml:"driver"` // bleve, sqlite, postgres, redis (default: bleve)
	Path              string         `yaml:"path"`
	Name              string         `yaml:"name"`
	WriterBufferBytes int            `yaml:"writer_buffer_bytes"`
	AllowAppend       bool           `yaml:"allow_append"`
	Redis             RedisConfig    `yaml:"redis"`
	Postgres          PostgresConfig `yaml:"postgres"`
}

// RedisConfig holds Redis/Valkey connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PostgresConfig holds Postgres connection settings.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// VerifyConfig holds the reconciliation smoke query.
type VerifyConfig struct {
	Query  string   `yaml:"query"`
	Fields []string `yaml:"fields"`
	Limit  int      `yaml:"limit"`
}

// MetricsConfig holds metrics sinks. Empty addresses disable a sink.
type MetricsConfig struct {
	PushgatewayURL string   `yaml:"pushgateway_url"`
	Job            string   `yaml:"job"`
	StatsdAddr     string   `yaml:"statsd_addr"`
	Namespace      string   `yaml:"namespace"`
	Tags           []string `yaml:"tags"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxSearchLimit  int `yaml:"max_search_limit"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, then decodes, defaults and
// validates it.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Source.Kind == "" {
		c.Source.Kind = SourceJSONL
	}
	if c.Source.BatchSize <= 0 {
		c.Source.BatchSize = 1000
	}
	if c.Source.Column == "" {
		c.Source.Column = "_source"
	}
	if c.Source.Elastic.ScrollSec <= 0 {
		c.Source.Elastic.ScrollSec = 300
	}
	if c.Source.Elastic.TimeoutSec <= 0 {
		c.Source.Elastic.TimeoutSec = 30
	}
	if c.Index.Driver == "" {
		c.Index.Driver = DriverBleve
	}
	if c.Index.Name == "" {
		c.Index.Name = "documents"
	}
	if c.Index.Path == "" {
		switch c.Index.Driver {
		case DriverBleve:
			c.Index.Path = "data/index.bleve"
		case DriverSQLite:
			c.Index.Path = "data/index.db"
		}
	}
	if c.Index.WriterBufferBytes <= 0 {
		c.Index.WriterBufferBytes = 50_000_000
	}
	if c.Index.Redis.ReadinessTimeout <= 0 {
		c.Index.Redis.ReadinessTimeout = 10
	}
	if c.Verify.Limit <= 0 {
		c.Verify.Limit = 10
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "suntan"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "suntan."
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxSearchLimit <= 0 {
		c.HTTP.MaxSearchLimit = 100
	}
}

// Validate checks the configuration for correctness. Settings only some
// commands need are checked by ValidateSource and ValidateSchema.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Source.Kind {
	case SourceJSONL, SourceParquet, SourceElastic:
	default:
		return fmt.Errorf("source.kind must be %q, %q or %q, got %q",
			SourceJSONL, SourceParquet, SourceElastic, c.Source.Kind)
	}
	switch c.Index.Driver {
	case DriverBleve, DriverSQLite:
		if c.Index.Path == "" {
			return fmt.Errorf("index.path is required for driver %q", c.Index.Driver)
		}
	case DriverPostgres:
		if c.Index.Postgres.DSN == "" {
			return fmt.Errorf("index.postgres.dsn is required for driver %q", c.Index.Driver)
		}
	case DriverRedis:
		if len(c.Index.Redis.Addrs) == 0 {
			return fmt.Errorf("index.redis.addrs is required for driver %q", c.Index.Driver)
		}
	default:
		return fmt.Errorf("index.driver must be one of bleve, sqlite, postgres, redis, got %q", c.Index.Driver)
	}
	return nil
}

// ValidateSource checks the source section for a migration.
func (c *Config) ValidateSource() error {
	switch c.Source.Kind {
	case SourceJSONL, SourceParquet:
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for kind %q", c.Source.Kind)
		}
	case SourceElastic:
		if c.Source.Elastic.URL == "" || c.Source.Elastic.Index == "" {
			return fmt.Errorf("source.elastic.url and source.elastic.index are required")
		}
	}
	return nil
}

// ValidateSchema checks that a schema description is configured.
func (c *Config) ValidateSchema() error {
	if c.Schema.Path == "" {
		return fmt.Errorf("schema.path is required")
	}
	return nil
}

// Scroll returns the Elasticsearch scroll keep-alive.
func (c ElasticConfig) Scroll() time.Duration { return time.Duration(c.ScrollSec) * time.Second }

// Timeout returns the Elasticsearch HTTP client timeout.
func (c ElasticConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSec) * time.Second }

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
