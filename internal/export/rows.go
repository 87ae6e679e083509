// Package export turns analytics reports into tabular form for spreadsheets.
package export

import (
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/analytics"
)

const timeLayout = "2006-01-02 15:04"

// Row is one spreadsheet row. Amounts are float64 so spreadsheets treat them
// as numbers; everything else is a string.
type Row []any

// SummaryRows describes the period and its comparison with the previous one.
func SummaryRows(rep analytics.Report) []Row {
	return []Row{
		{"Period", rep.Kind.String()},
		{"From", formatTime(rep.Range.Start)},
		{"To", formatTime(rep.Range.End)},
		{"Total", number(rep.Total)},
		{"Previous from", formatTime(rep.PreviousRange.Start)},
		{"Previous to", formatTime(rep.PreviousRange.End)},
		{"Previous total", number(rep.Comparison.PreviousTotal)},
		{"Change %", number(rep.Comparison.PercentChange)},
	}
}

// CategoryRows lists category totals with a header row.
func CategoryRows(rep analytics.Report) []Row {
	rows := make([]Row, 0, len(rep.Categories)+1)
	rows = append(rows, Row{"Category", "Name", "Amount", "Share %"})
	for _, c := range rep.Categories {
		rows = append(rows, Row{c.Category, c.DisplayName, number(c.Total), number(c.SharePercent)})
	}
	return rows
}

// TrendRows lists trend buckets with a header row.
func TrendRows(rep analytics.Report) []Row {
	rows := make([]Row, 0, len(rep.Trend)+1)
	rows = append(rows, Row{"Label", "From", "To", "Amount"})
	for _, b := range rep.Trend {
		rows = append(rows, Row{b.Label, formatTime(b.Start), formatTime(b.End), number(b.Total)})
	}
	return rows
}

// Rows stacks the summary, category and trend tables with a blank row between
// them, for targets that hold the whole report in one sheet.
func Rows(rep analytics.Report) []Row {
	var out []Row
	for i, part := range [][]Row{SummaryRows(rep), CategoryRows(rep), TrendRows(rep)} {
		if i > 0 {
			out = append(out, Row{})
		}
		out = append(out, part...)
	}
	return out
}

// Values converts rows to the shape spreadsheet APIs expect.
func Values(rows []Row) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any(r)
	}
	return out
}

func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
