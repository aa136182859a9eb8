package main

import (
	"context"
	"errors"
	"os"
	"time"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/cli"
	"expense-tracker/internal/config"
	"expense-tracker/internal/log"
	"expense-tracker/internal/notify"
	"expense-tracker/internal/notify/sheets"
	"expense-tracker/internal/notify/telegram"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(func(c *config.Config) error {
		if err := c.Validate(); err != nil {
			return err
		}
		if c.AMQPURL == "" {
			return errors.New("AMQP_URL is required: alerts are consumed from the broker")
		}
		if !c.TelegramEnabled() && !c.SheetsEnabled() {
			return errors.New("no alert sink configured: set TELEGRAM_BOT_TOKEN or GOOGLE_SPREADSHEET_ID")
		}
		return nil
	})
	logger = logger.WithComponent(log.ComponentNotify)
	logger.Info("Starting alert-notifier", log.FieldOperation, log.OpStartup, log.FieldQueue, cfg.AMQPAlertQueue)

	var sinks []notify.Sink
	if cfg.TelegramEnabled() {
		tg, err := telegram.New(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			logger.Error("Failed to initialize Telegram sink", log.FieldError, err)
			os.Exit(1)
		}
		sinks = append(sinks, tg)
		logger.Info("Telegram sink enabled")
	}
	if cfg.SheetsEnabled() {
		sh, err := sheets.New(context.Background(), sheets.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Sheets sink", log.FieldError, err)
			os.Exit(1)
		}
		sinks = append(sinks, sh)
		logger.Info("Sheets sink enabled", "sheet", cfg.GoogleSheetName)
	}
	fanout := notify.NewFanout(sinks...)

	client, err := amqp.NewClient(context.Background(), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPAlertQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.Error("AMQP close error", log.FieldError, err)
		}
	})

	logger.Info("Consuming limit alerts", "sinks", fanout.Len())
	if err := client.ConsumeLimitAlerts(ctx, cfg.AMQPAlertQueue, fanout.HandleLimitAlert); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Alert consumer stopped", log.FieldOperation, log.OpConsume, log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
