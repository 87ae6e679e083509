package memory

import (
	"context"
	"sync"

	"expensetracker/internal/analytics"
	ports "expensetracker/internal/sheets"
)

// Writer keeps the most recent reports in memory. It stands in for a real
// spreadsheet when none is configured.
type Writer struct {
	mu      sync.Mutex
	limit   int
	reports []analytics.Report
	writes  int
}

var _ ports.ReportWriter = (*Writer)(nil)

// New returns a Writer that keeps at most limit reports (at least one).
func New(limit int) *Writer {
	return &Writer{limit: max(limit, 1)}
}

// WriteReport stores rep, dropping the oldest report when full.
func (w *Writer) WriteReport(ctx context.Context, rep analytics.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports = append(w.reports, rep)
	if len(w.reports) > w.limit {
		w.reports = w.reports[len(w.reports)-w.limit:]
	}
	w.writes++
	return nil
}

// Last returns the most recent report.
func (w *Writer) Last() (analytics.Report, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.reports) == 0 {
		return analytics.Report{}, false
	}
	return w.reports[len(w.reports)-1], true
}

// Reports returns the retained reports, oldest first.
func (w *Writer) Reports() []analytics.Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]analytics.Report(nil), w.reports...)
}

// Writes counts every successful WriteReport call.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
