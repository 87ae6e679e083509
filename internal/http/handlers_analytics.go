package http

import (
	"bytes"
	"fmt"
	"net/http"

	"expensetracker/internal/analytics"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
)

type reportResponse struct {
	analytics.Report
	Empty bool `json:"empty"`
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	q, err := parseReportQuery(r, s.now())
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	rep, err := s.deps.Reports.Report(r.Context(), q)
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Report: rep, Empty: rep.Empty()})
}

// handleAnalyticsExport serves the same report as an XLSX workbook.
func (s *Server) handleAnalyticsExport(w http.ResponseWriter, r *http.Request) {
	q, err := parseReportQuery(r, s.now())
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	rep, err := s.deps.Reports.Report(r.Context(), q)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rep); err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}

	filename := fmt.Sprintf("expenses-%s-%s.xlsx", rep.Kind, rep.Range.End.Format(dateLayout))
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
