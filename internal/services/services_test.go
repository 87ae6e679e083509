package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/amqp"
	"expensetracker/internal/analytics"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/period"
	"expensetracker/internal/storage"
)

// wednesday is the fixed clock used by these tests.
var wednesday = time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return wednesday }

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed(t *testing.T, svc *ExpenseService, items ...core.Expense) {
	t.Helper()
	for _, e := range items {
		if _, err := svc.Create(context.Background(), e); err != nil {
			t.Fatalf("seed expense %+v: %v", e, err)
		}
	}
}

func TestExpenseService_CreatePublishesEvent(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewExpenseService(store, pub)

	e, err := svc.Create(context.Background(), core.Expense{Amount: amount("12.50"), Category: "Food", OccurredAt: wednesday})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.ID == 0 {
		t.Fatalf("Create should assign an ID")
	}
	if len(pub.events) != 1 || pub.events[0].Op != amqp.OpCreated || pub.events[0].ID != e.ID {
		t.Fatalf("events = %+v", pub.events)
	}
	if !pub.events[0].OccurredAt.Equal(wednesday) {
		t.Fatalf("event OccurredAt = %v", pub.events[0].OccurredAt)
	}
}

func TestExpenseService_CreateValidates(t *testing.T) {
	svc := NewExpenseService(newMemStore(), nil)
	tests := []struct {
		name string
		e    core.Expense
		want error
	}{
		{"zero amount", core.Expense{Amount: decimal.Zero, Category: "Food", OccurredAt: wednesday}, core.ErrInvalidAmount},
		{"negative amount", core.Expense{Amount: amount("-1"), Category: "Food", OccurredAt: wednesday}, core.ErrInvalidAmount},
		{"blank category", core.Expense{Amount: amount("1"), Category: " ", OccurredAt: wednesday}, core.ErrEmptyCategory},
		{"zero date", core.Expense{Amount: amount("1"), Category: "Food"}, core.ErrZeroDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.e); !errors.Is(err, tt.want) {
				t.Fatalf("Create error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExpenseService_PublishFailureDoesNotFailWrite(t *testing.T) {
	store := newMemStore()
	svc := NewExpenseService(store, &recordingPublisher{err: amqp.ErrCircuitOpen})

	if _, err := svc.Create(context.Background(), core.Expense{Amount: amount("1"), Category: "Food", OccurredAt: wednesday}); err != nil {
		t.Fatalf("Create should succeed when publishing fails: %v", err)
	}
	if len(store.expenses) != 1 {
		t.Fatalf("expense not stored")
	}
}

func TestExpenseService_UpdateAndDelete(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewExpenseService(store, pub)
	ctx := context.Background()

	e, err := svc.Create(ctx, core.Expense{Amount: amount("5"), Category: "Food", OccurredAt: wednesday})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	e.Amount = amount("7")
	if err := svc.Update(ctx, e); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := svc.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, e.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second Delete error = %v, want ErrNotFound", err)
	}

	var ops []amqp.Op
	for _, ev := range pub.events {
		ops = append(ops, ev.Op)
	}
	want := []amqp.Op{amqp.OpCreated, amqp.OpUpdated, amqp.OpDeleted}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", ops, want)
		}
	}
}

func TestExpenseService_UpdateCarriesPreviousDate(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewExpenseService(store, pub)
	ctx := context.Background()

	e, err := svc.Create(ctx, core.Expense{Amount: amount("500"), Category: "Food", OccurredAt: wednesday})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	moved := e
	moved.OccurredAt = wednesday.AddDate(0, -6, 0)
	if err := svc.Update(ctx, moved); err != nil {
		t.Fatalf("Update: %v", err)
	}

	ev := pub.events[len(pub.events)-1]
	if ev.Op != amqp.OpUpdated || !ev.OccurredAt.Equal(moved.OccurredAt) {
		t.Fatalf("event = %+v, want update to %v", ev, moved.OccurredAt)
	}
	if ev.PreviousOccurredAt == nil || !ev.PreviousOccurredAt.Equal(wednesday) {
		t.Fatalf("PreviousOccurredAt = %v, want %v", ev.PreviousOccurredAt, wednesday)
	}

	missing := core.Expense{ID: 999, Amount: amount("1"), Category: "Food", OccurredAt: wednesday}
	if err := svc.Update(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Update missing error = %v, want ErrNotFound", err)
	}
	if len(pub.events) != 2 {
		t.Fatalf("events = %d, want 2", len(pub.events))
	}
}

func TestAnalyticsService_Report(t *testing.T) {
	store := newMemStore()
	expenses := NewExpenseService(store, nil)
	seed(t, expenses,
		core.Expense{Amount: amount("100"), Category: "Food", OccurredAt: wednesday.Add(-24 * time.Hour)},
		core.Expense{Amount: amount("50"), Category: "продукты", OccurredAt: wednesday.Add(-48 * time.Hour)},
		core.Expense{Amount: amount("25"), Category: "Transport", OccurredAt: wednesday.Add(-72 * time.Hour)},
		// previous week window: [Feb 27 15:30, Mar 5 15:30]
		core.Expense{Amount: amount("70"), Category: "Food", OccurredAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	)

	svc := NewAnalyticsService(store, nil, WithClock(fixedClock))
	rep, err := svc.Report(context.Background(), ReportQuery{
		Selection: period.Selection{Kind: period.Week},
		Labels:    analytics.English,
	})
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !rep.Total.Equal(amount("175")) {
		t.Fatalf("Total = %s, want 175", rep.Total)
	}
	if len(rep.Categories) != 3 {
		t.Fatalf("categories = %+v", rep.Categories)
	}
	if !rep.Comparison.PreviousTotal.Equal(amount("70")) || !rep.Comparison.PercentChange.Equal(amount("150")) {
		t.Fatalf("comparison = %+v", rep.Comparison)
	}
	if len(rep.Trend) != 7 || rep.Trend[6].Label != "Wed" {
		t.Fatalf("trend = %+v", rep.Trend)
	}

	food, err := svc.Report(context.Background(), ReportQuery{
		Selection: period.Selection{Kind: period.Week},
		Category:  "FOOD",
		Labels:    analytics.Russian,
	})
	if err != nil {
		t.Fatalf("Report(food): %v", err)
	}
	if !food.Total.Equal(amount("150")) {
		t.Fatalf("food Total = %s, want 150", food.Total)
	}
	if food.Categories[0].DisplayName != "Продукты" {
		t.Fatalf("DisplayName = %q", food.Categories[0].DisplayName)
	}
}

func TestAnalyticsService_CacheKeyedOnDataVersion(t *testing.T) {
	store := newMemStore()
	expenses := NewExpenseService(store, nil)
	seed(t, expenses, core.Expense{Amount: amount("10"), Category: "Food", OccurredAt: wednesday.Add(-time.Hour)})

	c := cache.NewLRUCache[analytics.Report](16, time.Hour)
	svc := NewAnalyticsService(store, c, WithClock(fixedClock))
	q := ReportQuery{Selection: period.Selection{Kind: period.Day}, Labels: analytics.English}
	ctx := context.Background()

	if _, err := svc.Report(ctx, q); err != nil {
		t.Fatalf("Report: %v", err)
	}
	fetches := store.fetches
	rep, err := svc.Report(ctx, q)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if store.fetches != fetches {
		t.Fatalf("second report should come from cache")
	}
	if !rep.Total.Equal(amount("10")) {
		t.Fatalf("cached Total = %s", rep.Total)
	}

	seed(t, expenses, core.Expense{Amount: amount("5"), Category: "Food", OccurredAt: wednesday.Add(-time.Minute)})
	rep, err = svc.Report(ctx, q)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if store.fetches == fetches {
		t.Fatalf("write should invalidate the cached report")
	}
	if !rep.Total.Equal(amount("15")) {
		t.Fatalf("Total after write = %s, want 15", rep.Total)
	}
}

func TestAnalyticsService_Errors(t *testing.T) {
	store := newMemStore()
	svc := NewAnalyticsService(store, nil, WithClock(fixedClock))
	ctx := context.Background()

	_, err := svc.Report(ctx, ReportQuery{Selection: period.NewCustom(wednesday, wednesday.AddDate(0, 0, -3))})
	if !errors.Is(err, period.ErrInvalidRange) {
		t.Fatalf("error = %v, want ErrInvalidRange", err)
	}

	store.fetchErr = errors.New("disk on fire")
	if _, err := svc.Report(ctx, ReportQuery{Selection: period.Selection{Kind: period.Month}}); err == nil {
		t.Fatalf("fetch errors should propagate")
	}
}

func TestBudgetService_Status(t *testing.T) {
	store := newMemStore()
	expenses := NewExpenseService(store, nil)
	budget := NewBudgetService(store, decimal.NewFromInt(1500))
	ctx := context.Background()

	st, err := budget.Status(ctx, wednesday)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Limit.Equal(decimal.NewFromInt(1500)) || st.Exceeded || !st.Spent.IsZero() {
		t.Fatalf("empty status = %+v", st)
	}

	if err := budget.SetLimit(ctx, wednesday.AddDate(0, 0, -2), amount("100")); err != nil {
		t.Fatalf("SetLimit: %v", err)
	}
	if err := budget.SetLimit(ctx, wednesday, decimal.Zero); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("SetLimit(0) error = %v", err)
	}

	seed(t, expenses,
		core.Expense{Amount: amount("80"), Category: "Food", OccurredAt: time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)},
		core.Expense{Amount: amount("40"), Category: "Food", OccurredAt: time.Date(2024, 3, 13, 23, 59, 0, 0, time.UTC)},
		core.Expense{Amount: amount("500"), Category: "Food", OccurredAt: time.Date(2024, 3, 12, 23, 59, 0, 0, time.UTC)},
	)

	st, err = budget.Status(ctx, wednesday)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Spent.Equal(amount("120")) || !st.Limit.Equal(amount("100")) {
		t.Fatalf("status = %+v", st)
	}
	if !st.Remaining.Equal(amount("-20")) || !st.Exceeded {
		t.Fatalf("remaining/exceeded = %s/%v", st.Remaining, st.Exceeded)
	}
}

func TestGoalService(t *testing.T) {
	store := newMemStore()
	svc := NewGoalService(store)
	ctx := context.Background()

	if _, err := svc.Create(ctx, core.Goal{Name: " ", TargetAmount: amount("10")}); !errors.Is(err, core.ErrEmptyGoalName) {
		t.Fatalf("Create error = %v", err)
	}

	v, err := svc.Create(ctx, core.Goal{Name: "Bike", TargetAmount: amount("400")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if v.Icon != "savings" || !v.Progress.IsZero() {
		t.Fatalf("view = %+v", v)
	}

	v, err = svc.AddSavings(ctx, v.ID, amount("100"))
	if err != nil {
		t.Fatalf("AddSavings: %v", err)
	}
	if !v.Progress.Equal(amount("25")) || !v.Remaining.Equal(amount("300")) || v.Reached {
		t.Fatalf("view after saving = %+v", v)
	}

	if _, err := svc.AddSavings(ctx, v.ID, amount("-200")); !errors.Is(err, core.ErrNegativeSaving) {
		t.Fatalf("overdraw error = %v", err)
	}

	v, err = svc.AddSavings(ctx, v.ID, amount("500"))
	if err != nil {
		t.Fatalf("AddSavings: %v", err)
	}
	if !v.Progress.Equal(amount("100")) || !v.Remaining.IsZero() || !v.Reached {
		t.Fatalf("view when reached = %+v", v)
	}

	if err := svc.Archive(ctx, v.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	renamed := v.Goal
	renamed.Name = "Road bike"
	renamed.IsArchived = false
	if err := svc.Update(ctx, renamed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	active, _ := svc.List(ctx, false)
	archived, _ := svc.List(ctx, true)
	if len(active) != 0 || len(archived) != 1 {
		t.Fatalf("active=%d archived=%d", len(active), len(archived))
	}
	if archived[0].Name != "Road bike" {
		t.Fatalf("archived goal name = %q", archived[0].Name)
	}
	if err := svc.Update(ctx, core.Goal{ID: 999, Name: "x", TargetAmount: amount("1")}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Update missing error = %v", err)
	}
	if err := svc.Delete(ctx, v.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, v.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second Delete error = %v", err)
	}
}
