package main

import (
	"context"
	"errors"
	"os"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/analytics"
	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting analytics-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Slog(), nil)
	writer, err := factory.CreateReportWriter(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create report writer", "error", err)
		os.Exit(1)
	}

	exportCfg := services.DefaultExportProcessorConfig()
	exportCfg.Interval = cfg.ExportInterval
	reports := services.NewAnalyticsService(repo, nil)
	processor := services.NewExportProcessor(reports, writer, analytics.ParseLabels(cfg.Locale), exportCfg)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("AMQP disabled - exporting on the interval only", "interval", exportCfg.Interval)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Export processor stop error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start export processor", "error", err)
		os.Exit(1)
	}

	if amqpClient != nil {
		events := worker.NewEventWorker(processor, nil)
		go func() {
			err := amqpClient.ConsumeExpenseEvents(ctx, events.HandleExpenseEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumer stopped", "error", err)
			}
			logger.Info("Event consumer finished", "stats", events.Stats())
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("analytics-worker stopped", "last_export", processor.LastExport())
}
