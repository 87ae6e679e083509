package http

import (
	"net/http"
	"strings"

	"expensetracker/internal/category"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// expenseResponse carries a suggested built-in category when the stored label
// is not one, e.g. "Food" for "Fod".
type expenseResponse struct {
	core.Expense
	Suggestion string `json:"suggestion,omitempty"`
}

func newExpenseResponse(e core.Expense) expenseResponse {
	resp := expenseResponse{Expense: e}
	if _, known := category.Lookup(e.Category); !known {
		if name, ok := category.Suggest(e.Category); ok {
			resp.Suggestion = name
		}
	}
	return resp
}

// handleListExpenses accepts from and to dates (inclusive, whole days) and a
// category matched through its synonyms.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := s.now().Location()

	var f core.ExpenseFilter
	if v := q.Get("from"); v != "" {
		from, err := parseDate(v, loc)
		if err != nil {
			writeError(w, r, log.OpList, err)
			return
		}
		f.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := parseDate(v, loc)
		if err != nil {
			writeError(w, r, log.OpList, err)
			return
		}
		f.To = to.AddDate(0, 0, 1).Add(-1)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		writeError(w, r, log.OpList, badRequest("from is after to"))
		return
	}
	f.Category = sanitizeInput(q.Get("category"))

	expenses, err := s.deps.Expenses.List(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses, "count": len(expenses)})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	e, err := req.toExpense(s.now())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	created, err := s.deps.Expenses.Create(r.Context(), e)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	s.logger(r, log.ComponentExpense).InfoContext(r.Context(), "Expense created",
		log.NewFields().WithExpense(created.ID, created.Amount.String(), created.Category).ToSlice()...)
	writeJSON(w, http.StatusCreated, newExpenseResponse(created))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	e, err := s.deps.Expenses.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	e, err := req.toExpense(s.now())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	e.ID = id

	if err := s.deps.Expenses.Update(r.Context(), e); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseResponse(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.deps.Expenses.Delete(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	s.logger(r, log.ComponentExpense).InfoContext(r.Context(), "Expense deleted", log.FieldExpenseID, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Categories.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (s *Server) handleSetFavorite(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chiParam(r, "name"))
	if name == "" {
		writeError(w, r, log.OpUpdate, badRequest("missing category name"))
		return
	}
	var req favoriteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := s.deps.Categories.SetFavorite(r.Context(), name, req.Favorite); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
