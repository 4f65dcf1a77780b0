package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RealistikOsu/FastStreamDB/internal/config"
	"github.com/RealistikOsu/FastStreamDB/internal/metrics"
	"github.com/RealistikOsu/FastStreamDB/internal/registry"
	"github.com/RealistikOsu/FastStreamDB/internal/serve"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to optional YAML configuration file")
	showVersion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("faststreamdb %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Observability.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("fatal error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := registry.New(logger.Named("registry"))
	srv := serve.New(cfg, reg, logger.Named("serve"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return srv.Run(gctx) })

	if expiry := cfg.KeyExpiry.Duration(); expiry > 0 {
		g.Go(func() error { return reg.RunSweeper(gctx, expiry) })
	} else {
		logger.Info("idle expiry disabled, streams live until deleted")
	}

	if cfg.Observability.Metrics.Enabled {
		g.Go(func() error { return metrics.RunServer(gctx, cfg.Observability.Metrics) })
	}

	if cfg.Observability.Health.Enabled {
		checker := metrics.NewHealthChecker(reg)
		g.Go(func() error {
			return metrics.RunHealthServer(gctx, cfg.Observability.Health, checker)
		})
	}

	logger.Info("faststreamdb started",
		zap.String("version", version),
		zap.String("mode", string(cfg.ConnectionMode)),
		zap.Duration("key_expiry", cfg.KeyExpiry.Duration()),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level.SetLevel(zap.DebugLevel)
	case "info":
		zapCfg.Level.SetLevel(zap.InfoLevel)
	case "warn":
		zapCfg.Level.SetLevel(zap.WarnLevel)
	case "error":
		zapCfg.Level.SetLevel(zap.ErrorLevel)
	}

	return zapCfg.Build()
}
