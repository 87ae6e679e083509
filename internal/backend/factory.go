package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expensetracker/internal/analytics"
	"expensetracker/internal/cache"
	"expensetracker/internal/sheets"
	gsheet "expensetracker/internal/sheets/google"
	"expensetracker/internal/sheets/memory"
)

// Reports kept by the in-memory export target.
const memoryReportHistory = 10

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *slog.Logger
	manager *cache.Manager
}

// NewFactory creates a factory. In-memory caches are registered with manager
// for expiry cleanup; manager may be nil.
func NewFactory(logger *slog.Logger, manager *cache.Manager) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger:  logger,
		manager: manager,
	}
}

// CreateReportCache implements Factory.CreateReportCache
func (f *DefaultFactory) CreateReportCache(ctx context.Context, config Config) (*CacheResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.CacheType {
	case MemoryCache:
		lru := cache.NewLRUCache[analytics.Report](config.CacheSize, config.CacheTTL)
		if f.manager != nil {
			f.manager.Register(lru)
		}
		f.logger.InfoContext(ctx, "Initialized in-memory report cache",
			"size", config.CacheSize,
			"ttl", config.CacheTTL)
		return &CacheResult{Cache: lru}, nil
	case RedisCache:
		client, err := cache.NewRedisClient(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis cache: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Redis report cache", "ttl", config.CacheTTL)
		return &CacheResult{
			Cache:   cache.NewRedisCache[analytics.Report](client, "expensetracker:", config.CacheTTL),
			Cleanup: client.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.CacheType)
	}
}

// CreateReportWriter implements Factory.CreateReportWriter
func (f *DefaultFactory) CreateReportWriter(ctx context.Context, config Config) (sheets.ReportWriter, error) {
	if !config.SheetsEnabled() {
		f.logger.InfoContext(ctx, "Google Sheets export disabled, keeping reports in memory")
		return memory.New(memoryReportHistory), nil
	}

	cli, err := gsheet.NewWithCredentials(ctx, config.SpreadsheetID, config.ReportSheet, config.CredentialsJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets export", "sheet", config.ReportSheet)
	return cli, nil
}
