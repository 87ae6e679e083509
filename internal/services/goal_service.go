package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

type GoalStore interface {
	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	GetGoal(ctx context.Context, id int64) (core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) error
	ArchiveGoal(ctx context.Context, id int64) error
	DeleteGoal(ctx context.Context, id int64) error
	ListGoals(ctx context.Context, archived bool) ([]core.Goal, error)
}

// GoalView is a goal with its derived progress.
type GoalView struct {
	core.Goal
	Progress  decimal.Decimal `json:"progress_percent"`
	Remaining decimal.Decimal `json:"remaining"`
	Reached   bool            `json:"reached"`
}

func NewGoalView(g core.Goal) GoalView {
	return GoalView{
		Goal:      g,
		Progress:  g.Progress(),
		Remaining: g.Remaining(),
		Reached:   !g.CurrentAmount.LessThan(g.TargetAmount),
	}
}

type GoalService struct {
	store GoalStore
}

func NewGoalService(store GoalStore) *GoalService {
	return &GoalService{store: store}
}

func (s *GoalService) Create(ctx context.Context, g core.Goal) (GoalView, error) {
	if g.Icon == "" {
		g.Icon = "savings"
	}
	if err := g.Validate(); err != nil {
		return GoalView{}, err
	}
	created, err := s.store.CreateGoal(ctx, g)
	if err != nil {
		return GoalView{}, err
	}
	return NewGoalView(created), nil
}

// Update replaces the goal's fields. The archive flag is kept as stored.
func (s *GoalService) Update(ctx context.Context, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	existing, err := s.store.GetGoal(ctx, g.ID)
	if err != nil {
		return err
	}
	g.IsArchived = existing.IsArchived
	return s.store.UpdateGoal(ctx, g)
}

// AddSavings adds amount to the goal's current amount. Negative amounts
// withdraw, but never below zero.
func (s *GoalService) AddSavings(ctx context.Context, id int64, amount decimal.Decimal) (GoalView, error) {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return GoalView{}, err
	}
	g.CurrentAmount = g.CurrentAmount.Add(amount)
	if g.CurrentAmount.IsNegative() {
		return GoalView{}, fmt.Errorf("goal %d: %w", id, core.ErrNegativeSaving)
	}
	if err := s.store.UpdateGoal(ctx, g); err != nil {
		return GoalView{}, err
	}
	return NewGoalView(g), nil
}

func (s *GoalService) Archive(ctx context.Context, id int64) error {
	return s.store.ArchiveGoal(ctx, id)
}

func (s *GoalService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteGoal(ctx, id)
}

// List returns active goals by nearest target date, or archived goals by
// latest target date.
func (s *GoalService) List(ctx context.Context, archived bool) ([]GoalView, error) {
	goals, err := s.store.ListGoals(ctx, archived)
	if err != nil {
		return nil, err
	}
	views := make([]GoalView, len(goals))
	for i, g := range goals {
		views[i] = NewGoalView(g)
	}
	return views, nil
}
