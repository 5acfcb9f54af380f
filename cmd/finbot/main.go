package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"finbot/internal/amqp"
	"finbot/internal/auth"
	"finbot/internal/backend"
	"finbot/internal/bot"
	"finbot/internal/cache"
	"finbot/internal/cli"
	"finbot/internal/config"
	applog "finbot/internal/log"
	"finbot/internal/middleware/ratelimit"
	"finbot/internal/report"
	"finbot/internal/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, applog.ComponentBot)

	if err := run(logger, cfg); err != nil {
		logger.Error("finbot stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg *config.Config) error {
	logger.Info("Starting finbot", "version", version)
	cli.LoadAndValidateConfig(logger, cfg)

	flush := cli.InitSentry(logger, cfg, version)
	defer flush()

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, nil)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(logger.With(applog.FieldComponent, applog.ComponentBackend))
	res, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create %s backend: %w", backendCfg.Type, err)
	}
	defer res.Close()

	cacheManager := cache.NewManager(logger.With(applog.FieldComponent, applog.ComponentCache))
	for _, c := range res.Caches {
		cacheManager.Register(c)
	}
	cacheManager.StartCleanup(cacheCleanupInterval)
	defer cacheManager.Stop()

	publisher, closePublisher := newPublisher(logger, cfg)
	defer closePublisher()

	ledger := services.NewLedgerService(res.Opener, publisher, logger.With(applog.FieldComponent, applog.ComponentLedger))
	registry := auth.NewRegistry(cfg.Accounts)
	logger.Info("Loaded accounts", "count", registry.Len(), "backend", backendCfg.Type)

	opts := bot.Options{
		Currency: cfg.CurrencyPrefix,
		Location: loc,
		Logger:   logger,
	}
	if cfg.SentryDSN != "" {
		opts.Report = bot.SentryReporter()
	}
	if cfg.RateLimitPerMinute > 0 {
		limiter := ratelimit.NewLimiter(ratelimit.Config{CommandsPerMinute: cfg.RateLimitPerMinute})
		defer limiter.Stop()
		opts.Limiter = limiter
	}
	dispatcher := bot.NewDispatcher(registry, ledger, report.NewPieRenderer(), opts)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	logger.Info("Authorized on Telegram", "username", api.Self.UserName)

	b := bot.New(api, dispatcher, cfg.MaxConcurrentCommands, cfg.CommandTimeout, logger)
	if err := b.Run(ctx); err != nil {
		return err
	}
	if ctx.Err() == nil {
		return errors.New("telegram update channel closed")
	}

	cli.WaitForShutdown(ctx, done)
	m := dispatcher.Metrics()
	logger.Info("finbot stopped",
		"commands", m.TotalCommands,
		"failed", m.FailedCommands,
		"avg_response_us", m.AverageResponseTime)
	return nil
}

// newPublisher connects the append-event publisher when the backend is not
// Google Sheets itself. The returned func closes the connection, if any.
func newPublisher(logger *slog.Logger, cfg *config.Config) (services.Publisher, func()) {
	if !cfg.PublishesAppendEvents() {
		if cfg.AMQPURL != "" {
			logger.Warn("Ignoring AMQP_URL: the sheets backend is mirrored already", "backend", cfg.DataBackend)
		}
		return nil, func() {}
	}

	// A nil *amqp.Client must not end up inside the Publisher interface.
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without append events", "error", err)
		return nil, func() {}
	}
	logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client, func() { client.Close() }
}
