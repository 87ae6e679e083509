package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"expensetracker/internal/analytics"
	"expensetracker/internal/period"
	"expensetracker/internal/sheets"
)

type ExportProcessorConfig struct {
	// Interval between unconditional exports (default: 15m)
	Interval time.Duration

	// Debounce collapses bursts of change notifications into one export (default: 2s)
	Debounce time.Duration

	// MaxRetries is the number of attempts per export (default: 3)
	MaxRetries int

	// RetryDelay is the pause between attempts, doubled each time (default: 1s)
	RetryDelay time.Duration
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		Interval:   15 * time.Minute,
		Debounce:   2 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// ExportProcessor keeps an external copy of the rolling month report fresh.
// It exports on start, every Interval, and shortly after Notify is called.
type ExportProcessor struct {
	reports *AnalyticsService
	writer  sheets.ReportWriter
	labels  analytics.Labels
	config  ExportProcessorConfig

	trigger chan struct{}

	mu         sync.Mutex
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	lastExport time.Time
}

func NewExportProcessor(reports *AnalyticsService, writer sheets.ReportWriter, labels analytics.Labels, config ExportProcessorConfig) *ExportProcessor {
	return &ExportProcessor{
		reports: reports,
		writer:  writer,
		labels:  labels,
		config:  config,
		trigger: make(chan struct{}, 1),
	}
}

// Start begins the export loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Export processor started",
		"interval", p.config.Interval,
		"debounce", p.config.Debounce)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	// A Stop that timed out already closed stopCh; later calls only wait.
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
	doneCh := p.doneCh
	p.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// LastExport is the time of the last successful export, zero if none.
func (p *ExportProcessor) LastExport() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastExport
}

// Notify requests an export. It never blocks; pending requests coalesce.
func (p *ExportProcessor) Notify() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *ExportProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.exportLogged(ctx, "startup")

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.exportLogged(ctx, "interval")
		case <-p.trigger:
			select {
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			case <-time.After(p.config.Debounce):
			}
			// Changes that arrived while waiting are covered by this export.
			select {
			case <-p.trigger:
			default:
			}
			p.exportLogged(ctx, "change")
		}
	}
}

func (p *ExportProcessor) exportLogged(ctx context.Context, reason string) {
	if err := p.ExportNow(ctx); err != nil {
		slog.ErrorContext(ctx, "Report export failed", "reason", reason, "error", err)
	}
}

// ExportNow builds the rolling month report and writes it, retrying with
// exponential delay.
func (p *ExportProcessor) ExportNow(ctx context.Context) error {
	rep, err := p.reports.Report(ctx, ReportQuery{
		Selection: period.Selection{Kind: period.Month},
		Labels:    p.labels,
	})
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	attempts := max(p.config.MaxRetries, 1)
	delay := p.config.RetryDelay
	for attempt := 1; ; attempt++ {
		err = p.writer.WriteReport(ctx, rep)
		if err == nil {
			break
		}
		if attempt >= attempts {
			return fmt.Errorf("write report after %d attempts: %w", attempt, err)
		}
		slog.WarnContext(ctx, "Report export attempt failed", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	p.mu.Lock()
	p.lastExport = time.Now()
	p.mu.Unlock()

	slog.InfoContext(ctx, "Report exported",
		"range_start", rep.Range.Start,
		"range_end", rep.Range.End,
		"total", rep.Total.String(),
		"categories", len(rep.Categories))
	return nil
}
