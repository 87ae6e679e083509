package sheets

import (
	"context"

	"expensetracker/internal/analytics"
)

// Ports for outbound adapters.
type (
	// ReportWriter replaces whatever a previous call wrote with rep.
	ReportWriter interface {
		WriteReport(ctx context.Context, rep analytics.Report) error
	}
)
