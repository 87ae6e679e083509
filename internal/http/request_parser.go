// Package http provides the JSON API server and its handlers.
//
// This file parses and validates request parameters and bodies.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"expensetracker/internal/analytics"
	"expensetracker/internal/core"
	"expensetracker/internal/period"
	"expensetracker/internal/services"
)

const (
	dateLayout    = "2006-01-02"
	maxBodyBytes  = 1 << 20
	// maxCustomDays bounds custom report ranges to roughly ten years.
	maxCustomDays = 3660
)

// errBadRequest marks malformed input that never reached validation.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("empty body")
		}
		return badRequest("invalid JSON: %v", err)
	}
	if dec.More() {
		return badRequest("body must hold a single JSON object")
	}
	return nil
}

// idParam parses the numeric {id} route parameter.
func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}

// parseDate parses a YYYY-MM-DD date as local midnight.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, badRequest("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// parseOptionalDate returns fallback when s is empty.
func parseOptionalDate(s string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return parseDate(s, fallback.Location())
}

// parseReportQuery reads period, start, end, category and lang. The period
// defaults to month; custom ranges need both dates and are swapped when given
// in reverse. Labels come from lang, then Accept-Language.
func parseReportQuery(r *http.Request, now time.Time) (services.ReportQuery, error) {
	q := r.URL.Query()

	kind := period.Month
	if v := strings.TrimSpace(q.Get("period")); v != "" {
		k, err := period.ParseKind(v)
		if err != nil {
			return services.ReportQuery{}, badRequest("%v", err)
		}
		kind = k
	}

	sel := period.Selection{Kind: kind}
	if kind == period.Custom {
		if q.Get("start") == "" || q.Get("end") == "" {
			return services.ReportQuery{}, badRequest("custom period needs start and end")
		}
		start, err := parseDate(q.Get("start"), now.Location())
		if err != nil {
			return services.ReportQuery{}, err
		}
		end, err := parseDate(q.Get("end"), now.Location())
		if err != nil {
			return services.ReportQuery{}, err
		}
		if start.After(end) {
			start, end = end, start
		}
		if days := period.EpochDay(end) - period.EpochDay(start) + 1; days > maxCustomDays {
			return services.ReportQuery{}, badRequest("custom period spans %d days, at most %d allowed", days, maxCustomDays)
		}
		sel = period.NewCustom(start, end)
	}

	return services.ReportQuery{
		Selection: sel,
		Category:  sanitizeInput(q.Get("category")),
		Labels:    requestLabels(r),
	}, nil
}

func requestLabels(r *http.Request) analytics.Labels {
	if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
		return analytics.ParseLabels(lang)
	}
	return analytics.ParseLabels(r.Header.Get("Accept-Language"))
}

// parseBool accepts the strconv forms and treats an empty value as false.
func parseBool(q url.Values, key string) (bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, badRequest("invalid %s %q", key, v)
	}
	return b, nil
}

// expenseRequest is the body of expense create and update calls.
type expenseRequest struct {
	Amount      string     `json:"amount"`
	Category    string     `json:"category"`
	Note        string     `json:"note"`
	OccurredAt  *time.Time `json:"occurred_at"`
	Tags        []string   `json:"tags"`
	ReceiptPath string     `json:"receipt_path"`
}

// toExpense validates the amount and fills OccurredAt with now when absent.
func (req expenseRequest) toExpense(now time.Time) (core.Expense, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	occurred := now
	if req.OccurredAt != nil {
		occurred = *req.OccurredAt
	}
	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		tags = append(tags, sanitizeInput(t))
	}
	return core.Expense{
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		Note:        sanitizeInput(req.Note),
		OccurredAt:  occurred,
		Tags:        tags,
		ReceiptPath: sanitizeInput(req.ReceiptPath),
	}, nil
}

type goalRequest struct {
	Name          string `json:"name"`
	TargetAmount  string `json:"target_amount"`
	CurrentAmount string `json:"current_amount"`
	TargetDate    string `json:"target_date"`
	Category      string `json:"category"`
	Notes         string `json:"notes"`
	Icon          string `json:"icon"`
}

func (req goalRequest) toGoal(loc *time.Location) (core.Goal, error) {
	target, err := core.ParseAmount(req.TargetAmount)
	if err != nil {
		return core.Goal{}, fmt.Errorf("target amount: %w", core.ErrInvalidTarget)
	}
	current := decimal.Zero
	if strings.TrimSpace(req.CurrentAmount) != "" && strings.TrimSpace(req.CurrentAmount) != "0" {
		current, err = core.ParseAmount(req.CurrentAmount)
		if err != nil {
			return core.Goal{}, fmt.Errorf("current amount: %w", err)
		}
	}
	g := core.Goal{
		Name:          sanitizeInput(req.Name),
		TargetAmount:  target,
		CurrentAmount: current,
		Category:      sanitizeInput(req.Category),
		Notes:         sanitizeInput(req.Notes),
		Icon:          sanitizeInput(req.Icon),
	}
	if strings.TrimSpace(req.TargetDate) != "" {
		d, err := parseDate(req.TargetDate, loc)
		if err != nil {
			return core.Goal{}, err
		}
		g.TargetDate = &d
	}
	return g, nil
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type limitRequest struct {
	Limit string `json:"limit"`
	Date  string `json:"date"`
}

type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// chiParam returns a path parameter, unescaped when the router saw the raw path.
func chiParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// parseSignedAmount is ParseAmount with an optional leading minus.
func parseSignedAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		d, err := core.ParseAmount(rest)
		return d.Neg(), err
	}
	return core.ParseAmount(s)
}
