package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
)

// ExpenseStore persists expenses.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) error
	DeleteExpense(ctx context.Context, id int64) error
	FetchExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error)
}

// EventPublisher announces expense changes to other processes.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ExpenseService writes expenses to the store and publishes a change event
// after each successful write. Publishing is best effort.
type ExpenseService struct {
	store     ExpenseStore
	publisher EventPublisher
}

// NewExpenseService accepts a nil publisher when no broker is configured.
func NewExpenseService(store ExpenseStore, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{store: store, publisher: publisher}
}

func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if !e.Amount.IsPositive() {
		return core.Expense{}, core.ErrInvalidAmount
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, amqp.NewExpenseEvent(created.ID, amqp.OpCreated, created.OccurredAt))
	return created, nil
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

// List returns expenses newest first.
func (s *ExpenseService) List(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	return s.store.FetchExpenses(ctx, f)
}

func (s *ExpenseService) Update(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return core.ErrInvalidAmount
	}
	existing, err := s.store.GetExpense(ctx, e.ID)
	if err != nil {
		return err
	}
	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	s.publish(ctx, amqp.NewExpenseUpdatedEvent(e.ID, e.OccurredAt, existing.OccurredAt))
	return nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	existing, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.publish(ctx, amqp.NewExpenseEvent(id, amqp.OpDeleted, existing.OccurredAt))
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, ev *amqp.ExpenseEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher, skipping expense event", "id", ev.ID, "op", ev.Op)
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		// The write already succeeded; consumers catch up on the next export tick.
		level := slog.LevelError
		if errors.Is(err, amqp.ErrCircuitOpen) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Failed to publish expense event", "id", ev.ID, "op", ev.Op, "error", err)
	}
}
