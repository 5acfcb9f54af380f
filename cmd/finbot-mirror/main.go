package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"finbot/internal/amqp"
	"finbot/internal/backend"
	"finbot/internal/cache"
	"finbot/internal/cli"
	"finbot/internal/config"
	applog "finbot/internal/log"
	"finbot/internal/worker"
)

var version = "dev"

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	if err := run(logger, cfg); err != nil {
		logger.Error("finbot-mirror stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg *config.Config) error {
	logger.Info("Starting finbot-mirror", "version", version)

	if err := cfg.ValidateMirror(); err != nil {
		return err
	}

	flush := cli.InitSentry(logger, cfg, version)
	defer flush()

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, nil)

	factory := backend.NewFactory(logger.With(applog.FieldComponent, applog.ComponentBackend))
	res, err := factory.CreateBackend(ctx, backend.Config{
		Type:                     backend.SheetsBackend,
		GoogleServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: cfg.GoogleServiceAccountFile,
		SheetCacheSize:           cfg.SheetCacheSize,
		SheetCacheTTL:            cfg.SheetCacheTTL,
	})
	if err != nil {
		return fmt.Errorf("create sheets backend: %w", err)
	}
	defer res.Close()

	mirror := worker.NewMirrorWorker(res.Opener, logger)

	cacheManager := cache.NewManager(logger.With(applog.FieldComponent, applog.ComponentCache))
	for _, c := range res.Caches {
		cacheManager.Register(c)
	}
	cacheManager.Register(mirror.Seen())
	cacheManager.StartCleanup(cacheCleanupInterval)
	defer cacheManager.Stop()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	if err := client.ConsumeTransactionAppended(ctx, mirror.HandleAppendMessage); !cli.IsShutdown(err) {
		return fmt.Errorf("message consumption failed: %w", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("finbot-mirror stopped")
	return nil
}
