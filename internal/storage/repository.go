package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/category"
	"expensetracker/internal/core"
	"expensetracker/internal/period"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// DataVersion grows by one on every expense insert, update and delete.
func (r *SQLiteRepository) DataVersion(ctx context.Context) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'data_version'`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read data version: %w", err)
	}
	return v, nil
}

// Expenses

const expenseColumns = `id, amount, category, note, occurred_at, tags, receipt_path`

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return core.Expense{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (amount, category, note, occurred_at, tags, receipt_path) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Amount.String(), e.Category, e.Note, e.OccurredAt.UnixMilli(), tags, e.ReceiptPath)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"amount", e.Amount.String(),
		"category", e.Category,
		"occurred_at", e.OccurredAt)

	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, category = ?, note = ?, occurred_at = ?, tags = ?, receipt_path = ? WHERE id = ?`,
		e.Amount.String(), e.Category, e.Note, e.OccurredAt.UnixMilli(), tags, e.ReceiptPath, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return expectRow(res, "expense", e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return expectRow(res, "expense", id)
}

// FetchExpenses returns the expenses matching f, newest first. The category
// filter matches synonyms in either language.
func (r *SQLiteRepository) FetchExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE 1 = 1`
	var args []any
	if !f.From.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, f.From.UnixMilli())
	}
	if !f.To.IsZero() {
		query += ` AND occurred_at <= ?`
		args = append(args, f.To.UnixMilli())
	}
	query += ` ORDER BY occurred_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if f.Category != "" && !category.Equivalent(f.Category, e.Category) {
			continue
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	return expenses, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e          core.Expense
		amount     string
		occurredAt int64
		tags       string
	)
	if err := s.Scan(&e.ID, &amount, &e.Category, &e.Note, &occurredAt, &tags, &e.ReceiptPath); err != nil {
		return core.Expense{}, err
	}
	var err error
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Expense{}, fmt.Errorf("expense %d amount %q: %w", e.ID, amount, err)
	}
	e.OccurredAt = time.UnixMilli(occurredAt)
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return core.Expense{}, fmt.Errorf("expense %d tags: %w", e.ID, err)
	}
	return e, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func expectRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

// Categories

// ListCategories returns favorites first, then by display order.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, icon, color, is_favorite, sort_order FROM categories ORDER BY is_favorite DESC, sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.Name, &c.Icon, &c.Color, &c.IsFavorite, &c.Order); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) SetFavorite(ctx context.Context, name string, favorite bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET is_favorite = ? WHERE name = ?`, favorite, name)
	if err != nil {
		return fmt.Errorf("set favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set favorite: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	return nil
}

// Daily limits

// SetDailyLimit stores the limit for the calendar day of l.Date, replacing any
// previous value for that day.
func (r *SQLiteRepository) SetDailyLimit(ctx context.Context, l core.DailyLimit) error {
	day := period.StartOfDay(l.Date)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO daily_limits (date, amount) VALUES (?, ?) ON CONFLICT(date) DO UPDATE SET amount = excluded.amount`,
		day.UnixMilli(), l.Limit.String())
	if err != nil {
		return fmt.Errorf("set daily limit: %w", err)
	}
	return nil
}

// FetchDailyLimit returns the limit in force on date: the one set for that day,
// else the latest one set before it, else the latest one overall. ErrNotFound
// means no limit was ever set.
func (r *SQLiteRepository) FetchDailyLimit(ctx context.Context, date time.Time) (core.DailyLimit, error) {
	day := period.StartOfDay(date).UnixMilli()
	l, err := r.scanLimit(r.db.QueryRowContext(ctx,
		`SELECT date, amount FROM daily_limits WHERE date <= ? ORDER BY date DESC LIMIT 1`, day))
	if errors.Is(err, sql.ErrNoRows) {
		l, err = r.scanLimit(r.db.QueryRowContext(ctx,
			`SELECT date, amount FROM daily_limits ORDER BY date DESC LIMIT 1`))
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.DailyLimit{}, fmt.Errorf("daily limit: %w", ErrNotFound)
	}
	if err != nil {
		return core.DailyLimit{}, fmt.Errorf("fetch daily limit: %w", err)
	}
	return l, nil
}

func (r *SQLiteRepository) scanLimit(row *sql.Row) (core.DailyLimit, error) {
	var (
		date   int64
		amount string
	)
	if err := row.Scan(&date, &amount); err != nil {
		return core.DailyLimit{}, err
	}
	limit, err := decimal.NewFromString(amount)
	if err != nil {
		return core.DailyLimit{}, fmt.Errorf("daily limit amount %q: %w", amount, err)
	}
	return core.DailyLimit{Date: time.UnixMilli(date), Limit: limit}, nil
}

// Goals

const goalColumns = `id, name, target_amount, current_amount, target_date, category, notes, icon, is_archived`

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (name, target_amount, current_amount, target_date, category, notes, icon, is_archived) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), nullMillis(g.TargetDate), g.Category, g.Notes, g.Icon, g.IsArchived)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	if g.ID, err = res.LastInsertId(); err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	slog.InfoContext(ctx, "Goal saved", "id", g.ID, "name", g.Name, "target", g.TargetAmount.String())
	return g, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET name = ?, target_amount = ?, current_amount = ?, target_date = ?, category = ?, notes = ?, icon = ?, is_archived = ? WHERE id = ?`,
		g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), nullMillis(g.TargetDate), g.Category, g.Notes, g.Icon, g.IsArchived, g.ID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return expectRow(res, "goal", g.ID)
}

func (r *SQLiteRepository) ArchiveGoal(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE goals SET is_archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive goal: %w", err)
	}
	return expectRow(res, "goal", id)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return expectRow(res, "goal", id)
}

// ListGoals returns active goals by target date ascending, or archived goals
// by target date descending. Goals without a target date come last.
func (r *SQLiteRepository) ListGoals(ctx context.Context, archived bool) ([]core.Goal, error) {
	order := `target_date IS NULL, target_date ASC, id`
	if archived {
		order = `target_date IS NULL, target_date DESC, id DESC`
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE is_archived = ? ORDER BY `+order, archived)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := []core.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func scanGoal(s scanner) (core.Goal, error) {
	var (
		g               core.Goal
		target, current string
		targetDate      sql.NullInt64
	)
	if err := s.Scan(&g.ID, &g.Name, &target, &current, &targetDate, &g.Category, &g.Notes, &g.Icon, &g.IsArchived); err != nil {
		return core.Goal{}, err
	}
	var err error
	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return core.Goal{}, fmt.Errorf("goal %d target %q: %w", g.ID, target, err)
	}
	if g.CurrentAmount, err = decimal.NewFromString(current); err != nil {
		return core.Goal{}, fmt.Errorf("goal %d current %q: %w", g.ID, current, err)
	}
	if targetDate.Valid {
		t := time.UnixMilli(targetDate.Int64)
		g.TargetDate = &t
	}
	return g, nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}
