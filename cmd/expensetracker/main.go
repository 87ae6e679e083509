package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()
	ctx := context.Background()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	cacheManager := cache.NewManager()
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	factory := backend.NewFactory(logger.WithComponent(log.ComponentCache).Slog(), cacheManager)
	reportCache, err := factory.CreateReportCache(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create report cache", "error", err, "backend", backendCfg.CacheType)
		os.Exit(1)
	}

	// Without a broker the API still works; the worker just falls back to
	// its periodic export.
	var publisher services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Expenses:   services.NewExpenseService(repo, publisher),
		Reports:    services.NewAnalyticsService(repo, reportCache.Cache),
		Budget:     services.NewBudgetService(repo, cfg.DefaultDailyLimit),
		Goals:      services.NewGoalService(repo),
		Categories: repo,
		Ready:      repo.Ping,
		Logger:     logger.WithComponent(log.ComponentHTTP),
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
		if reportCache.Cleanup != nil {
			if err := reportCache.Cleanup(); err != nil {
				logger.Error("Report cache cleanup error", "error", err)
			}
		}
	})

	logger.Info("Starting expensetracker server",
		"port", cfg.Port,
		"cache", backendCfg.CacheType,
		"amqp", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
