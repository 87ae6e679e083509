package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/analytics"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/period"
)

// ReportSource is what the analytics service reads from the store.
type ReportSource interface {
	FetchExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error)
	DataVersion(ctx context.Context) (int64, error)
}

// ReportQuery selects the report to build.
type ReportQuery struct {
	Selection period.Selection
	// Category restricts the report to one category and its synonyms.
	Category string
	Labels   analytics.Labels
}

// AnalyticsService builds reports for a selected period.
type AnalyticsService struct {
	source ReportSource
	cache  cache.Cache[analytics.Report]
	now    func() time.Time
}

type AnalyticsOption func(*AnalyticsService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AnalyticsOption {
	return func(s *AnalyticsService) { s.now = now }
}

// NewAnalyticsService accepts a nil cache.
func NewAnalyticsService(source ReportSource, c cache.Cache[analytics.Report], opts ...AnalyticsOption) *AnalyticsService {
	s := &AnalyticsService{source: source, cache: c, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report resolves q.Selection against the current time, loads the expenses of
// the period and of the previous period concurrently, and builds the report.
//
// Cached reports are keyed by the resolved range truncated to the minute and by
// the store's data version, so any expense write invalidates them.
func (s *AnalyticsService) Report(ctx context.Context, q ReportQuery) (analytics.Report, error) {
	r, err := period.Resolve(q.Selection, s.now())
	if err != nil {
		return analytics.Report{}, err
	}

	var key string
	if s.cache != nil {
		version, err := s.source.DataVersion(ctx)
		if err != nil {
			return analytics.Report{}, err
		}
		key = reportKey(q, r, version)
		if rep, ok := s.cache.Get(key); ok {
			slog.DebugContext(ctx, "Report served from cache", "key", key)
			return rep, nil
		}
	}

	prev := period.PreviousRange(r)
	var current, previous []core.Expense

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.source.FetchExpenses(gctx, core.ExpenseFilter{From: r.Start, To: r.End, Category: q.Category})
		if err != nil {
			return fmt.Errorf("fetch current period: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		previous, err = s.source.FetchExpenses(gctx, core.ExpenseFilter{From: prev.Start, To: prev.End, Category: q.Category})
		if err != nil {
			return fmt.Errorf("fetch previous period: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return analytics.Report{}, err
	}

	rep := analytics.BuildReport(current, previous, q.Selection.Kind, r, q.Labels)

	slog.InfoContext(ctx, "Report built",
		"period", q.Selection.Kind.String(),
		"range_start", r.Start,
		"range_end", r.End,
		"expenses", len(current),
		"total", rep.Total.String())

	if s.cache != nil {
		s.cache.Set(key, rep)
	}
	return rep, nil
}

func reportKey(q ReportQuery, r period.Range, version int64) string {
	return fmt.Sprintf("report:%s:%d:%d:%s:%s:v%d",
		q.Selection.Kind,
		r.Start.Truncate(time.Minute).Unix(),
		r.End.Truncate(time.Minute).Unix(),
		strings.ToLower(q.Category),
		q.Labels.Tag,
		version)
}
