package analytics

import (
	"github.com/shopspring/decimal"

	"expensetracker/internal/category"
	"expensetracker/internal/core"
	"expensetracker/internal/period"
)

// CategoryShare is a CategoryTotal with what is needed to draw it.
type CategoryShare struct {
	CategoryTotal
	DisplayName string              `json:"display_name"`
	Color       category.ColorToken `json:"color"`
	Icon        category.IconToken  `json:"icon"`
}

// Report is the analytics view model for one period.
type Report struct {
	Kind          period.Kind     `json:"kind"`
	Range         period.Range    `json:"range"`
	PreviousRange period.Range    `json:"previous_range"`
	Total         decimal.Decimal `json:"total"`
	Categories    []CategoryShare `json:"categories"`
	Trend         []Bucket        `json:"trend"`
	// ShowTrend is false for ranges within one calendar day; the trend is still
	// filled in for callers that want it.
	ShowTrend  bool       `json:"show_trend"`
	Comparison Comparison `json:"comparison"`
}

// Empty reports whether there is nothing to chart for the period.
func (r Report) Empty() bool {
	return len(r.Categories) == 0
}

// BuildReport assembles the report for range r. current should hold the
// expenses of r and previous those of PreviousRange(r); expenses outside those
// ranges are ignored.
func BuildReport(current, previous []core.Expense, kind period.Kind, r period.Range, labels Labels) Report {
	prevRange := period.PreviousRange(r)
	summary := Aggregate(current, r)
	prevTotal := Total(previous, prevRange)

	shares := make([]CategoryShare, len(summary.Categories))
	for i, c := range summary.Categories {
		shares[i] = CategoryShare{
			CategoryTotal: c,
			DisplayName:   category.DisplayNameIn(c.Category, labels.Tag),
			Color:         category.Color(c.Category),
			Icon:          category.Icon(c.Category),
		}
	}

	return Report{
		Kind:          kind,
		Range:         r,
		PreviousRange: prevRange,
		Total:         summary.Total,
		Categories:    shares,
		Trend:         Bucketizer{Labels: labels}.Bucketize(current, r, kind),
		ShowTrend:     !r.SingleDay(),
		Comparison:    NewComparison(summary.Total, prevTotal),
	}
}
