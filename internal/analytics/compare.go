package analytics

import "github.com/shopspring/decimal"

// Comparison relates the totals of two consecutive periods.
type Comparison struct {
	CurrentTotal  decimal.Decimal `json:"current_total"`
	PreviousTotal decimal.Decimal `json:"previous_total"`
	PercentChange decimal.Decimal `json:"percent_change"`
}

// Compare returns the change from previous to current in percent, rounded to
// two decimals. Growth from a zero baseline is reported as a flat 100, and no
// spending in either period as 0.
func Compare(current, previous decimal.Decimal) decimal.Decimal {
	switch {
	case previous.IsPositive():
		return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
	case current.IsPositive():
		return hundred
	default:
		return decimal.Zero
	}
}

// NewComparison builds a Comparison for the two totals.
func NewComparison(current, previous decimal.Decimal) Comparison {
	return Comparison{
		CurrentTotal:  current,
		PreviousTotal: previous,
		PercentChange: Compare(current, previous),
	}
}
