package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/suntan/internal/metrics"
	chiTransport "github.com/kailas-cloud/suntan/internal/transport/chi"
	"github.com/kailas-cloud/suntan/internal/version"
	healthuc "github.com/kailas-cloud/suntan/internal/usecase/health"
	searchuc "github.com/kailas-cloud/suntan/internal/usecase/search"
)

func (a *app) newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search, health and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.HTTP.Port = port
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port")
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	a.logger.Info("Starting suntan API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", a.cfg.HTTP.Port),
		zap.String("index_driver", a.cfg.Index.Driver),
	)

	sch, err := a.loadSchema()
	if err != nil {
		return err
	}
	engine, err := a.openEngine(ctx, sch)
	if err != nil {
		return err
	}
	defer a.closeEngine(engine)

	// Register collectors explicitly (no init())
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics, err := metrics.RegisterHTTP(reg)
	if err != nil {
		return err
	}

	// The source is optional here; it only feeds the health report.
	var sourcePinger healthuc.Pinger
	if src, err := a.openSource(); err == nil {
		if p, ok := src.(healthuc.Pinger); ok {
			sourcePinger = p
		}
	}

	server := chiTransport.NewServer(
		searchuc.New(engine).WithMaxLimit(a.cfg.HTTP.MaxSearchLimit),
		healthuc.New(engine, sourcePinger),
		reg,
		a.logger,
	)

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(a.cfg.Auth.APIKeys, httpMetrics),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}
