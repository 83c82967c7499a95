package suntan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/suntan/internal/db"
	dbBleve "github.com/kailas-cloud/suntan/internal/db/bleve"
	dbRedis "github.com/kailas-cloud/suntan/internal/db/redis"
	"github.com/kailas-cloud/suntan/internal/db/sqlstore"
	"github.com/kailas-cloud/suntan/internal/domain/schema"
	"github.com/kailas-cloud/suntan/internal/metrics"
	"github.com/kailas-cloud/suntan/internal/usecase/migrate"
	"github.com/kailas-cloud/suntan/internal/usecase/reconcile"
	searchuc "github.com/kailas-cloud/suntan/internal/usecase/search"
)

const (
	defaultIndexName        = "documents"
	defaultReadinessTimeout = 10 * time.Second
)

// Client is the suntan SDK entry point. It owns one open index.
type Client struct {
	engine     db.Engine
	schema     *schema.Schema
	migrator   *migrate.Service
	searcher   *searchuc.Service
	reconciler *reconcile.Service
}

// Open loads the schema description at schemaPath and opens (or creates)
// the index it describes.
func Open(ctx context.Context, schemaPath string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{indexName: defaultIndexName}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.driver == "" {
		return nil, errors.New("suntan: index required (use WithBleve, WithSQLite, WithPostgres or WithRedis)")
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	sch, err := schema.LoadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("suntan: %w", err)
	}
	def, err := db.FromSchema(cfg.indexName, sch)
	if err != nil {
		return nil, fmt.Errorf("suntan: index definition: %w", err)
	}

	engine, err := openEngine(ctx, cfg, def)
	if err != nil {
		return nil, err
	}

	c, err := wireClient(engine, sch, cfg)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}
	return c, nil
}

func openEngine(ctx context.Context, cfg *clientConfig, def *db.IndexDefinition) (db.Engine, error) {
	switch cfg.driver {
	case "bleve":
		e, err := dbBleve.Open(dbBleve.Config{Path: cfg.path}, def)
		if err != nil {
			return nil, fmt.Errorf("suntan: open bleve index: %w", err)
		}
		return e, nil
	case "sqlite":
		s, err := sqlstore.OpenSQLite(ctx, cfg.path, def)
		if err != nil {
			return nil, fmt.Errorf("suntan: open sqlite index: %w", err)
		}
		return s, nil
	case "postgres":
		s, err := sqlstore.OpenPostgres(ctx, cfg.dsn, def)
		if err != nil {
			return nil, fmt.Errorf("suntan: open postgres index: %w", err)
		}
		return s, nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password}, def)
		if err != nil {
			return nil, fmt.Errorf("suntan: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("suntan: redis not ready: %w", err)
		}
		if err := s.EnsureIndex(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("suntan: ensure redis index: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("suntan: unknown driver %q", cfg.driver)
	}
}

func wireClient(engine db.Engine, sch *schema.Schema, cfg *clientConfig) (*Client, error) {
	migrator := migrate.New(cfg.logger).
		WithAllowAppend(cfg.allowAppend).
		WithWriterBuffer(cfg.bufferBytes)

	if cfg.metricsReg != nil {
		rec, err := metrics.NewMigration(cfg.metricsReg)
		if err != nil {
			return nil, fmt.Errorf("suntan: %w", err)
		}
		migrator = migrator.WithRecorder(rec)
	}

	return &Client{
		engine:     engine,
		schema:     sch,
		migrator:   migrator,
		searcher:   searchuc.New(engine),
		reconciler: reconcile.New(cfg.logger),
	}, nil
}

// Close releases the index.
func (c *Client) Close() error {
	if c.engine == nil {
		return nil
	}
	return c.engine.Close()
}

// Ping checks index availability.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.engine.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// DocCount returns the number of committed documents in the index.
func (c *Client) DocCount(ctx context.Context) (uint64, error) {
	return c.engine.DocCount(ctx)
}

// Migrate copies every record of src into the index and commits once.
// Per-document problems are only counted; an error means nothing was committed.
func (c *Client) Migrate(ctx context.Context, src Source) (Stats, error) {
	if src.src == nil {
		return Stats{}, errors.New("suntan: source is required")
	}
	st, err := c.migrator.Run(ctx, c.schema, src.src, c.engine)
	return statsFromDomain(st), err
}

// Verify reconciles stats with the source and the live index, then runs q.
func (c *Client) Verify(ctx context.Context, stats Stats, q Query) Report {
	r := c.reconciler.Verify(ctx, stats.toDomain(), c.engine, reconcile.Query{
		Text:   q.Text,
		Fields: q.Fields,
		Limit:  q.Limit,
	})
	return reportFromDomain(r)
}

// Search runs a ranked free-text query over fields (all text fields when
// empty). A zero limit selects the default.
func (c *Client) Search(ctx context.Context, text string, fields []string, limit int) (*SearchResult, error) {
	res, err := c.searcher.Search(ctx, text, fields, limit)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Total: res.Total, Hits: hitsFromDB(res.Entries)}, nil
}
