package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/xraph/forge"
	"go.uber.org/zap"

	"github.com/xraph/gate/extension"
	"github.com/xraph/gate/store/memory"
)

func runServe(args []string, stderr io.Writer) error {
	fs := pflag.NewFlagSet("gate serve", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to the config file (default: ./gate.yaml)")
	manifestPath := fs.String("manifest", "", "policy manifest to load, overrides gate.manifest_path")
	if ok, err := parseFlags(fs, args, stderr); !ok {
		return err
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *manifestPath != "" {
		cfg.Gate.ManifestPath = *manifestPath
	}

	zlog, err := newLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = zlog.Sync() }()

	reg := prometheus.NewRegistry()
	opts := []extension.ExtOption{
		extension.WithConfig(cfg.Gate),
		extension.WithLogger(newSlogLogger(cfg.Logger, os.Stderr)),
		extension.WithZapLogger(zlog),
		extension.WithMetrics(reg),
	}
	if cfg.Gate.GroveDriver == "" {
		opts = append(opts, extension.WithStore(memory.New()))
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		opts = append(opts, extension.WithPublisher(rdb, cfg.Publish))
	}
	ext := extension.New(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}
	go func() {
		zlog.Info("metrics listener started", zap.String("addr", cfg.Server.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("metrics listener failed", zap.Error(err))
		}
	}()

	app := forge.New(forge.WithExtensions(ext))
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start app: %w", err)
	}
	zlog.Info("gate started", zap.Strings("policies", ext.Gate().Policies()))

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("metrics listener shutdown", zap.Error(err))
	}
	return ext.Stop(shutdownCtx)
}
