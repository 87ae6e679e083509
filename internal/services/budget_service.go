package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/period"
	"expensetracker/internal/storage"
)

// LimitStore persists daily limits and reads the day's expenses.
type LimitStore interface {
	FetchDailyLimit(ctx context.Context, date time.Time) (core.DailyLimit, error)
	SetDailyLimit(ctx context.Context, l core.DailyLimit) error
	FetchExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error)
}

// DailyStatus compares one day's spending with the limit in force that day.
type DailyStatus struct {
	Date      time.Time       `json:"date"`
	Spent     decimal.Decimal `json:"spent"`
	Limit     decimal.Decimal `json:"limit"`
	Remaining decimal.Decimal `json:"remaining"`
	Exceeded  bool            `json:"exceeded"`
}

type BudgetService struct {
	store        LimitStore
	defaultLimit decimal.Decimal
}

// NewBudgetService uses defaultLimit when no limit was ever set.
func NewBudgetService(store LimitStore, defaultLimit decimal.Decimal) *BudgetService {
	if !defaultLimit.IsPositive() {
		defaultLimit = core.DefaultDailyLimit
	}
	return &BudgetService{store: store, defaultLimit: defaultLimit}
}

// Limit returns the limit in force on date.
func (s *BudgetService) Limit(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	l, err := s.store.FetchDailyLimit(ctx, date)
	if errors.Is(err, storage.ErrNotFound) {
		return s.defaultLimit, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return l.Limit, nil
}

func (s *BudgetService) SetLimit(ctx context.Context, date time.Time, limit decimal.Decimal) error {
	l := core.DailyLimit{Date: period.StartOfDay(date), Limit: limit}
	if err := l.Validate(); err != nil {
		return err
	}
	return s.store.SetDailyLimit(ctx, l)
}

// Status sums the expenses of date's calendar day. Remaining goes negative
// once the limit is exceeded.
func (s *BudgetService) Status(ctx context.Context, date time.Time) (DailyStatus, error) {
	limit, err := s.Limit(ctx, date)
	if err != nil {
		return DailyStatus{}, fmt.Errorf("daily limit: %w", err)
	}

	day := period.StartOfDay(date)
	expenses, err := s.store.FetchExpenses(ctx, core.ExpenseFilter{From: day, To: period.EndOfDay(date)})
	if err != nil {
		return DailyStatus{}, fmt.Errorf("daily expenses: %w", err)
	}

	spent := decimal.Zero
	for _, e := range expenses {
		spent = spent.Add(e.Amount)
	}
	return DailyStatus{
		Date:      day,
		Spent:     spent,
		Limit:     limit,
		Remaining: limit.Sub(spent),
		Exceeded:  spent.GreaterThan(limit),
	}, nil
}
