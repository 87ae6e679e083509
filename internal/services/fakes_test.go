package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/analytics"
	"expensetracker/internal/category"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// memStore is an in-memory store covering every store interface of this
// package.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	expenses map[int64]core.Expense
	limits   []core.DailyLimit
	goals    map[int64]core.Goal
	version  int64
	fetches  int
	fetchErr error
}

func newMemStore() *memStore {
	return &memStore{expenses: map[int64]core.Expense{}, goals: map[int64]core.Goal{}}
}

func (s *memStore) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	s.expenses[e.ID] = e
	s.version++
	return e, nil
}

func (s *memStore) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	return e, nil
}

func (s *memStore) UpdateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; !ok {
		return storage.ErrNotFound
	}
	s.expenses[e.ID] = e
	s.version++
	return nil
}

func (s *memStore) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.expenses, id)
	s.version++
	return nil
}

func (s *memStore) FetchExpenses(_ context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := []core.Expense{}
	for _, e := range s.expenses {
		if !f.From.IsZero() && e.OccurredAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.OccurredAt.After(f.To) {
			continue
		}
		if f.Category != "" && !category.Equivalent(f.Category, e.Category) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

func (s *memStore) DataVersion(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, nil
}

func (s *memStore) SetDailyLimit(_ context.Context, l core.DailyLimit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits = append(s.limits, l)
	return nil
}

func (s *memStore) FetchDailyLimit(_ context.Context, date time.Time) (core.DailyLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *core.DailyLimit
	for i := range s.limits {
		l := s.limits[i]
		if l.Date.After(date) {
			continue
		}
		if best == nil || !l.Date.Before(best.Date) {
			best = &l
		}
	}
	if best == nil {
		return core.DailyLimit{}, storage.ErrNotFound
	}
	return *best, nil
}

func (s *memStore) CreateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	g.ID = s.nextID
	s.goals[g.ID] = g
	return g, nil
}

func (s *memStore) GetGoal(_ context.Context, id int64) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return core.Goal{}, storage.ErrNotFound
	}
	return g, nil
}

func (s *memStore) UpdateGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[g.ID]; !ok {
		return storage.ErrNotFound
	}
	s.goals[g.ID] = g
	return nil
}

func (s *memStore) ArchiveGoal(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return storage.ErrNotFound
	}
	g.IsArchived = true
	s.goals[id] = g
	return nil
}

func (s *memStore) DeleteGoal(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.goals, id)
	return nil
}

func (s *memStore) ListGoals(_ context.Context, archived bool) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Goal{}
	for _, g := range s.goals {
		if g.IsArchived == archived {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.ExpenseEvent
	err    error
}

func (p *recordingPublisher) PublishExpenseEvent(_ context.Context, ev *amqp.ExpenseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, *ev)
	return nil
}

type recordingWriter struct {
	mu      sync.Mutex
	reports []analytics.Report
	failN   int
}

func (w *recordingWriter) WriteReport(_ context.Context, rep analytics.Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failN > 0 {
		w.failN--
		return errors.New("sheets unavailable")
	}
	w.reports = append(w.reports, rep)
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.reports)
}
