// Package analytics turns expenses and a resolved period into chart data:
// per-category shares, a bucketed trend series and a comparison with the
// previous period. Every function here is pure.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/period"
)

var hundred = decimal.NewFromInt(100)

// CategoryTotal is the spending of one literal category label.
type CategoryTotal struct {
	Category     string          `json:"category"`
	Total        decimal.Decimal `json:"total"`
	SharePercent decimal.Decimal `json:"share_percent"`
}

// Summary is the result of Aggregate.
type Summary struct {
	Total      decimal.Decimal `json:"total"`
	Categories []CategoryTotal `json:"categories"`
}

// Aggregate sums the expenses that fall within r, overall and per category.
//
// Categories are grouped by their exact label (not normalized), sorted by total
// descending with ties kept in first-seen order. Shares are rounded to two
// decimals. When the total is zero no categories are returned.
func Aggregate(expenses []core.Expense, r period.Range) Summary {
	total := decimal.Zero
	index := make(map[string]int)
	var groups []CategoryTotal

	for _, e := range expenses {
		if !r.Contains(e.OccurredAt) {
			continue
		}
		total = total.Add(e.Amount)
		i, ok := index[e.Category]
		if !ok {
			i = len(groups)
			index[e.Category] = i
			groups = append(groups, CategoryTotal{Category: e.Category, Total: decimal.Zero})
		}
		groups[i].Total = groups[i].Total.Add(e.Amount)
	}

	if !total.IsPositive() {
		return Summary{Total: total, Categories: []CategoryTotal{}}
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Total.GreaterThan(groups[b].Total)
	})
	for i := range groups {
		groups[i].SharePercent = groups[i].Total.Div(total).Mul(hundred).Round(2)
	}
	return Summary{Total: total, Categories: groups}
}

// Total sums the expenses that fall within r.
func Total(expenses []core.Expense, r period.Range) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		if r.Contains(e.OccurredAt) {
			total = total.Add(e.Amount)
		}
	}
	return total
}
