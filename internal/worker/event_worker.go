// Package worker reacts to expense events published by the API.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/period"
)

// Notifier is told that the exported report may be stale.
type Notifier interface {
	Notify()
}

// Stats counts the events seen by an EventWorker.
type Stats struct {
	Received int64
	Notified int64
	Skipped  int64
}

// EventWorker decides which expense events affect the exported month report.
type EventWorker struct {
	notifier Notifier
	now      func() time.Time

	received atomic.Int64
	notified atomic.Int64
	skipped  atomic.Int64
}

func NewEventWorker(notifier Notifier, now func() time.Time) *EventWorker {
	if now == nil {
		now = time.Now
	}
	return &EventWorker{notifier: notifier, now: now}
}

// HandleExpenseEvent matches amqp.Handler. An event triggers an export when
// the expense falls in the rolling month or in the month before it, or when
// the event carries no date. Updates are also checked against the date the
// expense had before the change.
func (w *EventWorker) HandleExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	if ev == nil {
		return errors.New("nil expense event")
	}
	w.received.Add(1)

	if !w.affectsReport(ev) {
		w.skipped.Add(1)
		slog.DebugContext(ctx, "Expense event outside exported periods",
			"id", ev.ID,
			"op", ev.Op,
			"occurred_at", ev.OccurredAt)
		return nil
	}

	w.notified.Add(1)
	w.notifier.Notify()
	slog.InfoContext(ctx, "Expense event queued report export",
		"id", ev.ID,
		"op", ev.Op,
		"timestamp", ev.Timestamp)
	return nil
}

func (w *EventWorker) affectsReport(ev *amqp.ExpenseEvent) bool {
	if ev.OccurredAt.IsZero() {
		return true
	}
	cur, err := period.Resolve(period.Selection{Kind: period.Month}, w.now())
	if err != nil {
		return true
	}
	prev := period.PreviousRange(cur)
	inExport := func(t time.Time) bool {
		return cur.Contains(t) || prev.Contains(t)
	}
	if inExport(ev.OccurredAt) {
		return true
	}
	return ev.PreviousOccurredAt != nil && inExport(*ev.PreviousOccurredAt)
}

// Stats returns a snapshot of the counters.
func (w *EventWorker) Stats() Stats {
	return Stats{
		Received: w.received.Load(),
		Notified: w.notified.Load(),
		Skipped:  w.skipped.Load(),
	}
}
