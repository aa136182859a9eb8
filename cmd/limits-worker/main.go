package main

import (
	"context"
	"errors"
	"os"
	"time"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/backend"
	"expense-tracker/internal/cli"
	"expense-tracker/internal/config"
	"expense-tracker/internal/log"
	"expense-tracker/internal/services"
	"expense-tracker/internal/worker"

	"github.com/robfig/cron/v3"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(func(c *config.Config) error {
		if err := c.Validate(); err != nil {
			return err
		}
		if c.AMQPURL == "" {
			return errors.New("AMQP_URL is required: alerts are delivered through the broker")
		}
		return nil
	})
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting limits-worker",
		log.FieldOperation, log.OpStartup,
		"schedule", cfg.AlertSchedule,
		"scope", cfg.AlertScope)

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

	client, err := amqp.NewClient(context.Background(), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPAlertQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	publisher := amqp.NewPublisher(client, cfg.AMQPAlertQueue, cfg.AMQPSummaryQueue)

	loc := cfg.Location()
	metrics := services.NewMetricsService(store, nil, loc, time.Now)
	limits := services.NewLimitsService(store, metrics, time.Now)

	sweeper := worker.NewAlertSweeper(store, limits, publisher, worker.SweeperConfig{
		Scope:       sweepScope(cfg.AlertScope),
		Concurrency: cfg.AlertConcurrency,
		Location:    loc,
	}, time.Now)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := client.Close(); err != nil {
			logger.Error("AMQP close error", log.FieldError, err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	run := func() {
		start := time.Now()
		res, err := sweeper.Sweep(ctx)
		if err != nil {
			logger.Error("Limit sweep failed", log.FieldOperation, log.OpSweep, log.FieldError, err)
			return
		}
		if res.Failures > 0 {
			logger.Warn("Limit sweep finished with failures",
				log.FieldOperation, log.OpSweep,
				"failures", res.Failures,
				log.FieldDuration, time.Since(start).Milliseconds())
			return
		}
		logger.Debug("Scheduled sweep finished", log.FieldOperation, log.OpSweep, log.FieldDuration, time.Since(start).Milliseconds())
	}

	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.AlertSchedule, run); err != nil {
		logger.Error("Invalid alert schedule", log.FieldError, err)
		os.Exit(1)
	}
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	cli.WaitForShutdown(ctx, done)
}

// sweepScope maps the configured alert scope onto the sweeper's.
func sweepScope(scope string) string {
	if scope == config.AlertScopeAll {
		return worker.ScopeAll
	}
	return worker.ScopeMonth
}
