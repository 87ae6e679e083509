package http

import (
	"net/http"

	"expensetracker/internal/log"
)

// handleDailyStatus reports spending against the limit for ?date (default today).
func (s *Server) handleDailyStatus(w http.ResponseWriter, r *http.Request) {
	date, err := parseOptionalDate(r.URL.Query().Get("date"), s.now())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	status, err := s.deps.Budget.Status(r.Context(), date)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleSetDailyLimit sets the limit from the given date (default today) on.
func (s *Server) handleSetDailyLimit(w http.ResponseWriter, r *http.Request) {
	var req limitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	limit, err := parseSignedAmount(req.Limit)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	date, err := parseOptionalDate(req.Date, s.now())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	ctx := r.Context()
	if err := s.deps.Budget.SetLimit(ctx, date, limit); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	s.logger(r, log.ComponentBudget).InfoContext(ctx, "Daily limit set",
		"date", date.Format(dateLayout), log.FieldAmount, limit.String())

	status, err := s.deps.Budget.Status(ctx, date)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	archived, err := parseBool(r.URL.Query(), "archived")
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	goals, err := s.deps.Goals.List(r.Context(), archived)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	g, err := req.toGoal(s.now().Location())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	view, err := s.deps.Goals.Create(r.Context(), g)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	g, err := req.toGoal(s.now().Location())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	g.ID = id
	if g.Icon == "" {
		g.Icon = "savings"
	}
	if err := s.deps.Goals.Update(r.Context(), g); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if err := s.deps.Goals.Delete(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleArchiveGoal(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := s.deps.Goals.Archive(r.Context(), id); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddSavings adds a signed amount to the goal's savings.
func (s *Server) handleAddSavings(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	amount, err := parseSignedAmount(req.Amount)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	view, err := s.deps.Goals.AddSavings(r.Context(), id, amount)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
