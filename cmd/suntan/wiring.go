package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/suntan/internal/config"
	"github.com/kailas-cloud/suntan/internal/db"
	dbBleve "github.com/kailas-cloud/suntan/internal/db/bleve"
	dbRedis "github.com/kailas-cloud/suntan/internal/db/redis"
	"github.com/kailas-cloud/suntan/internal/db/sqlstore"
	"github.com/kailas-cloud/suntan/internal/domain/schema"
	"github.com/kailas-cloud/suntan/internal/source/elastic"
	"github.com/kailas-cloud/suntan/internal/source/jsonl"
	"github.com/kailas-cloud/suntan/internal/source/parquet"
	"github.com/kailas-cloud/suntan/internal/usecase/migrate"
)

// loadSchema reads the configured schema description.
func (a *app) loadSchema() (*schema.Schema, error) {
	if err := a.cfg.ValidateSchema(); err != nil {
		return nil, err
	}
	sch, err := schema.LoadFile(a.cfg.Schema.Path)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return sch, nil
}

// openEngine opens (or creates) the configured index for sch.
func (a *app) openEngine(ctx context.Context, sch *schema.Schema) (db.Engine, error) {
	ic := a.cfg.Index
	def, err := db.FromSchema(ic.Name, sch)
	if err != nil {
		return nil, fmt.Errorf("index definition: %w", err)
	}

	var engine db.Engine
	switch ic.Driver {
	case config.DriverBleve:
		engine, err = dbBleve.Open(dbBleve.Config{Path: ic.Path}, def)
	case config.DriverSQLite:
		engine, err = sqlstore.OpenSQLite(ctx, ic.Path, def)
	case config.DriverPostgres:
		engine, err = sqlstore.OpenPostgres(ctx, ic.Postgres.DSN, def)
	case config.DriverRedis:
		engine, err = a.openRedis(ctx, def)
	default:
		return nil, fmt.Errorf("unknown index driver %q", ic.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s index: %w", ic.Driver, err)
	}

	a.logger.Info("Index opened",
		zap.String("driver", ic.Driver),
		zap.String("index", ic.Name),
		zap.Stringer("definition", def),
	)
	return engine, nil
}

func (a *app) openRedis(ctx context.Context, def *db.IndexDefinition) (db.Engine, error) {
	rc := a.cfg.Index.Redis
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    rc.Addrs,
		Username: rc.Username,
		Password: rc.Password,
	}, def)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, time.Duration(rc.ReadinessTimeout)*time.Second); err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := store.EnsureIndex(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// openSource opens the configured source store.
func (a *app) openSource() (migrate.Source, error) {
	if err := a.cfg.ValidateSource(); err != nil {
		return nil, err
	}
	sc := a.cfg.Source

	var (
		src migrate.Source
		err error
	)
	switch sc.Kind {
	case config.SourceJSONL:
		src, err = jsonl.Open(sc.Path, sc.BatchSize)
	case config.SourceParquet:
		src, err = parquet.Open(sc.Path, sc.Column, sc.BatchSize)
	case config.SourceElastic:
		ec := sc.Elastic
		src, err = elastic.New(&http.Client{Timeout: ec.Timeout()}, elastic.Config{
			URL:       ec.URL,
			Index:     ec.Index,
			Username:  ec.Username,
			Password:  ec.Password,
			BatchSize: sc.BatchSize,
			Scroll:    ec.Scroll(),
		})
	default:
		return nil, fmt.Errorf("unknown source kind %q", sc.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s source: %w", sc.Kind, err)
	}
	return src, nil
}

func (a *app) closeEngine(e db.Engine) {
	if err := e.Close(); err != nil {
		a.logger.Warn("Index close failed", zap.Error(err))
	}
}
