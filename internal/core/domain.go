package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDailyLimit applies when no daily limit was ever set.
var DefaultDailyLimit = decimal.NewFromInt(1500)

type (
	// Expense is a single recorded spending. OccurredAt is an instant, not a
	// calendar date.
	Expense struct {
		ID          int64           `json:"id"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Note        string          `json:"note,omitempty"`
		OccurredAt  time.Time       `json:"occurred_at"`
		Tags        []string        `json:"tags"`
		ReceiptPath string          `json:"receipt_path,omitempty"`
	}

	// ExpenseFilter narrows an expense listing. Zero bounds are open, an empty
	// Category matches everything.
	ExpenseFilter struct {
		From     time.Time
		To       time.Time
		Category string
	}

	Category struct {
		Name       string `json:"name"`
		Icon       string `json:"icon"`
		Color      string `json:"color"`
		IsFavorite bool   `json:"is_favorite"`
		Order      int    `json:"order"`
	}

	// DailyLimit is the spending limit that applies from Date (a local midnight).
	DailyLimit struct {
		Date  time.Time       `json:"date"`
		Limit decimal.Decimal `json:"limit"`
	}

	Goal struct {
		ID            int64           `json:"id"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		TargetDate    *time.Time      `json:"target_date,omitempty"`
		Category      string          `json:"category,omitempty"`
		Notes         string          `json:"notes,omitempty"`
		Icon          string          `json:"icon"`
		IsArchived    bool            `json:"is_archived"`
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyCategory  = errors.New("empty category")
	ErrZeroDate       = errors.New("date cannot be zero")
	ErrNoteTooLong    = errors.New("note too long (max 500 characters)")
	ErrEmptyTag       = errors.New("empty tag")
	ErrEmptyGoalName  = errors.New("empty goal name")
	ErrInvalidTarget  = errors.New("goal target must be positive")
	ErrNegativeSaving = errors.New("goal current amount cannot be negative")
)

func (e Expense) Validate() error {
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.OccurredAt.IsZero() {
		return ErrZeroDate
	}
	if len([]rune(e.Note)) > 500 {
		return ErrNoteTooLong
	}
	for _, tag := range e.Tags {
		if strings.TrimSpace(tag) == "" {
			return ErrEmptyTag
		}
	}
	return nil
}

func (d DailyLimit) Validate() error {
	if d.Date.IsZero() {
		return ErrZeroDate
	}
	if !d.Limit.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyGoalName
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidTarget
	}
	if g.CurrentAmount.IsNegative() {
		return ErrNegativeSaving
	}
	return nil
}

// Progress returns how much of the target is saved, in percent, capped at 100.
func (g Goal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	p := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Round(2)
	if p.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return p
}

// Remaining returns what is still missing to reach the target, never negative.
func (g Goal) Remaining() decimal.Decimal {
	r := g.TargetAmount.Sub(g.CurrentAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}
