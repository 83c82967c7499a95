// Package main provides the suntan CLI: migrate a document store into a
// typed full-text index, verify it, query it and serve it over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/suntan/internal/config"
	logpkg "github.com/kailas-cloud/suntan/internal/logger"
	"github.com/kailas-cloud/suntan/internal/version"
)

// app is the state shared by every command, set up in PersistentPreRunE.
type app struct {
	configFile string
	env        string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "suntan:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "suntan",
		Short: "Migrate a document store into a typed full-text index",
		Long: `suntan reads every record of a source store (JSON lines, Parquet or
Elasticsearch), coerces each field to the type a schema declares and writes
the documents into a full-text index (bleve, SQLite, Postgres or Redis).`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error { a.teardown(); return nil },
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: config/<env>.yaml)")
	root.PersistentFlags().StringVar(&a.env, "env", "", "environment name (default: $ENV or local)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		a.newMigrateCmd(),
		a.newVerifyCmd(),
		a.newSearchCmd(),
		a.newServeCmd(),
		newSchemaCmd(),
		newVersionCmd(),
	)
	return root
}

// needsConfig reports whether cmd reads the config file.
func needsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["config"] == "none" {
			return false
		}
	}
	return true
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if !needsConfig(cmd) {
		return nil
	}

	if a.env == "" {
		a.env = config.GetEnv()
	}

	var err error
	if a.configFile != "" {
		a.cfg, err = config.LoadFile(a.configFile)
	} else {
		a.cfg, err = config.Load(a.env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := a.cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.logger, err = logpkg.New(a.env, level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	a.logger.Debug("Configuration loaded",
		zap.String("version", version.Version),
		zap.String("env", a.env),
		zap.String("command", cmd.CommandPath()),
		zap.String("source_kind", a.cfg.Source.Kind),
		zap.String("index_driver", a.cfg.Index.Driver),
	)
	return nil
}

func (a *app) teardown() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Annotations: map[string]string{"config": "none"},
		Args:        cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
