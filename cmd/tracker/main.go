package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/backend"
	"expense-tracker/internal/cache"
	"expense-tracker/internal/cli"
	"expense-tracker/internal/config"
	apphttp "expense-tracker/internal/http"
	"expense-tracker/internal/log"
	"expense-tracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateServer)
	logger.Info("Starting tracker", log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	store := result.Store

	snapshots, err := cache.New[services.SnapshotEntry](cache.Config{TTL: cfg.MetricsCacheTTL})
	if err != nil {
		logger.Error("Failed to initialize metrics cache", log.FieldError, err)
		os.Exit(1)
	}

	// A nil *amqp.Publisher must not reach the interface, so the summary
	// service sees an untyped nil when AMQP is off.
	var publisher services.SummaryPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(context.Background(), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPAlertQueue, cfg.AMQPSummaryQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, summaries disabled", log.FieldError, err)
		} else {
			publisher = amqp.NewPublisher(amqpClient, cfg.AMQPAlertQueue, cfg.AMQPSummaryQueue)
			logger.Info("AMQP client initialized", log.FieldQueue, cfg.AMQPSummaryQueue)
		}
	} else {
		logger.Info("AMQP disabled, summary requests will be rejected")
	}

	loc := cfg.Location()
	metrics := services.NewMetricsService(store, snapshots, loc, time.Now)
	limits := services.NewLimitsService(store, metrics, time.Now)
	svc := apphttp.Services{
		Transactions: services.NewTransactionService(store, metrics, time.Now),
		Metrics:      metrics,
		Limits:       limits,
		Summary: services.NewSummaryService(store, store, metrics, limits, publisher, services.SummaryConfig{
			AllowedUsers: cfg.SummaryAllowedUsers,
			Window:       cfg.SummaryWindow,
		}, time.Now),
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:              ":" + cfg.Port,
		JWTSecret:         cfg.JWTSecret,
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Ready:             store.Ping,
	}, svc, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		snapshots.Close()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Server listening", "addr", srv.Addr, "time_zone", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
