package backend

import (
	"errors"
	"fmt"
	"time"

	"expensetracker/internal/config"
)

// Config holds what the factory needs to build caches and export targets.
type Config struct {
	CacheType CacheType
	RedisURL  string
	CacheTTL  time.Duration
	CacheSize int

	// Google Sheets export; an empty SpreadsheetID keeps reports in memory.
	SpreadsheetID   string
	ReportSheet     string
	CredentialsJSON []byte
}

// FromAppConfig converts the application config to backend config, reading
// the service account file when sheets export is enabled.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	cfg := Config{
		CacheType:     CacheType(appConfig.CacheBackend),
		RedisURL:      appConfig.RedisURL,
		CacheTTL:      appConfig.CacheTTL,
		CacheSize:     appConfig.CacheSize,
		SpreadsheetID: appConfig.GoogleSpreadsheetID,
		ReportSheet:   appConfig.GoogleReportSheet,
	}
	if appConfig.SheetsEnabled() {
		creds, err := appConfig.ServiceAccountJSON()
		if err != nil {
			return Config{}, err
		}
		cfg.CredentialsJSON = creds
	}
	return cfg, cfg.Validate()
}

// SheetsEnabled reports whether reports go to Google Sheets.
func (c Config) SheetsEnabled() bool {
	return c.SpreadsheetID != ""
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.CacheType.IsValid() {
		return fmt.Errorf("invalid cache type: %s", c.CacheType)
	}
	if c.CacheType == RedisCache && c.RedisURL == "" {
		return errors.New("Redis URL is required for redis cache")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("invalid cache TTL: %v", c.CacheTTL)
	}
	if c.CacheType == MemoryCache && c.CacheSize <= 0 {
		return fmt.Errorf("invalid cache size: %d", c.CacheSize)
	}
	if c.SheetsEnabled() {
		if c.ReportSheet == "" {
			return errors.New("report sheet name is required for sheets export")
		}
		if len(c.CredentialsJSON) == 0 {
			return errors.New("service account credentials are required for sheets export")
		}
	}
	return nil
}
