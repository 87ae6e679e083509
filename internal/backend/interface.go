package backend

import (
	"context"

	"expensetracker/internal/analytics"
	"expensetracker/internal/cache"
	"expensetracker/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// CacheResult holds the report cache and an optional cleanup function.
type CacheResult struct {
	Cache   cache.Cache[analytics.Report]
	Cleanup CleanupFunc
}

// Factory builds the pluggable parts of the application from configuration.
type Factory interface {
	// CreateReportCache returns the cache the analytics service stores reports in.
	CreateReportCache(ctx context.Context, config Config) (*CacheResult, error)
	// CreateReportWriter returns the export target for the worker.
	CreateReportWriter(ctx context.Context, config Config) (sheets.ReportWriter, error)
}

// CacheType selects where reports are cached.
type CacheType string

const (
	MemoryCache CacheType = "memory"
	RedisCache  CacheType = "redis"
)

// String implements fmt.Stringer
func (ct CacheType) String() string {
	return string(ct)
}

// IsValid returns true if the cache type is valid
func (ct CacheType) IsValid() bool {
	switch ct {
	case MemoryCache, RedisCache:
		return true
	default:
		return false
	}
}
