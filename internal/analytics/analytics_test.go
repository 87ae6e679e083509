package analytics

import (
	"math/rand"
	"runtime"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"expensetracker/internal/core"
	"expensetracker/internal/period"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func expense(amount int64, cat string, when time.Time) core.Expense {
	return core.Expense{Amount: decimal.NewFromInt(amount), Category: cat, OccurredAt: when}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// now is a Wednesday afternoon.
var now = at(2024, time.March, 13, 15, 30)

func resolve(t *testing.T, sel period.Selection) period.Range {
	t.Helper()
	r, err := period.Resolve(sel, now)
	require.NoError(t, err)
	return r
}

func randomExpenses(rng *rand.Rand, r period.Range, n int) []core.Expense {
	from := r.Start.Add(-72 * time.Hour)
	span := r.End.Add(72*time.Hour).Sub(from).Milliseconds()
	cats := []string{"Food", "Transport", "продукты", "Bills", "Coffee"}
	out := make([]core.Expense, n)
	for i := range out {
		out[i] = core.Expense{
			ID:         int64(i + 1),
			Amount:     decimal.New(rng.Int63n(100000), -2),
			Category:   cats[rng.Intn(len(cats))],
			OccurredAt: from.Add(time.Duration(rng.Int63n(span+1)) * time.Millisecond),
		}
	}
	return out
}

func TestAggregateScenario(t *testing.T) {
	r := resolve(t, period.Selection{Kind: period.Week})
	expenses := []core.Expense{
		expense(100, "Food", at(2024, time.March, 12, 10, 0)),
		expense(50, "Food", at(2024, time.March, 11, 10, 0)),
		expense(25, "Transport", at(2024, time.March, 10, 10, 0)),
	}

	got := Aggregate(expenses, r)
	require.True(t, got.Total.Equal(dec("175")))
	require.Len(t, got.Categories, 2)
	require.Equal(t, "Food", got.Categories[0].Category)
	require.True(t, got.Categories[0].Total.Equal(dec("150")))
	require.True(t, got.Categories[0].SharePercent.Equal(dec("85.71")))
	require.Equal(t, "Transport", got.Categories[1].Category)
	require.True(t, got.Categories[1].Total.Equal(dec("25")))
	require.True(t, got.Categories[1].SharePercent.Equal(dec("14.29")))
}

func TestAggregateKeepsLiteralLabels(t *testing.T) {
	r := resolve(t, period.Selection{Kind: period.Week})
	expenses := []core.Expense{
		expense(10, "Food", at(2024, time.March, 12, 10, 0)),
		expense(10, "продукты", at(2024, time.March, 12, 11, 0)),
	}
	got := Aggregate(expenses, r)
	require.Len(t, got.Categories, 2, "synonyms are separate groups in the breakdown")
}

func TestAggregateTiesKeepFirstSeenOrder(t *testing.T) {
	r := resolve(t, period.Selection{Kind: period.Week})
	expenses := []core.Expense{
		expense(5, "B", at(2024, time.March, 12, 10, 0)),
		expense(20, "A", at(2024, time.March, 12, 10, 0)),
		expense(5, "C", at(2024, time.March, 12, 10, 0)),
		expense(5, "D", at(2024, time.March, 12, 10, 0)),
	}
	got := Aggregate(expenses, r)
	var order []string
	for _, c := range got.Categories {
		order = append(order, c.Category)
	}
	require.Equal(t, []string{"A", "B", "C", "D"}, order)
}

func TestAggregateFiltersToRangeInclusive(t *testing.T) {
	r := resolve(t, period.Selection{Kind: period.Week})
	expenses := []core.Expense{
		expense(1, "Edge", r.Start),
		expense(2, "Edge", r.End),
		expense(100, "Out", r.Start.Add(-time.Millisecond)),
		expense(100, "Out", r.End.Add(time.Millisecond)),
	}
	got := Aggregate(expenses, r)
	require.True(t, got.Total.Equal(dec("3")))
	require.Len(t, got.Categories, 1)
}

func TestAggregateEmptyPeriod(t *testing.T) {
	r := resolve(t, period.Selection{Kind: period.Day})
	got := Aggregate([]core.Expense{expense(10, "Food", at(2024, time.January, 1, 0, 0))}, r)
	require.True(t, got.Total.IsZero())
	require.NotNil(t, got.Categories)
	require.Empty(t, got.Categories)

	for _, kind := range []period.Kind{period.Day, period.Week, period.Month} {
		kr := resolve(t, period.Selection{Kind: kind})
		for _, b := range Bucketize(nil, kr, kind) {
			require.True(t, b.Total.IsZero())
		}
	}
}

func TestAggregateZeroAmountsYieldNoCategories(t *testing.T) {
	r := resolve(t, period.Selection{Kind: period.Day})
	got := Aggregate([]core.Expense{expense(0, "Food", now)}, r)
	require.True(t, got.Total.IsZero())
	require.Empty(t, got.Categories)
}

func TestAggregateProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, kind := range []period.Kind{period.Day, period.Week, period.Month} {
		r := resolve(t, period.Selection{Kind: kind})
		for round := 0; round < 20; round++ {
			expenses := randomExpenses(rng, r, 1+rng.Intn(60))

			first := Aggregate(expenses, r)
			require.Equal(t, first, Aggregate(expenses, r), "aggregate must be idempotent")

			sum, shares := decimal.Zero, decimal.Zero
			for i, c := range first.Categories {
				sum = sum.Add(c.Total)
				shares = shares.Add(c.SharePercent)
				if i > 0 {
					require.False(t, c.Total.GreaterThan(first.Categories[i-1].Total), "sorted descending")
				}
			}
			if first.Total.IsPositive() {
				require.True(t, sum.Equal(first.Total), "category totals add up to the total")
				require.True(t, shares.Sub(hundred).Abs().LessThanOrEqual(dec("0.05")), "shares sum to ~100, got %s", shares)
			}
		}
	}
}

func TestBucketCoverage(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ranges := []struct {
		kind period.Kind
		sel  period.Selection
	}{
		{period.Day, period.Selection{Kind: period.Day}},
		{period.Week, period.Selection{Kind: period.Week}},
		{period.Month, period.Selection{Kind: period.Month}},
		{period.Custom, period.NewCustom(at(2024, time.January, 1, 0, 0), at(2024, time.January, 1, 0, 0))},
		{period.Custom, period.NewCustom(at(2024, time.January, 29, 0, 0), at(2024, time.February, 6, 0, 0))},
		{period.Custom, period.NewCustom(at(2023, time.December, 20, 0, 0), at(2024, time.February, 29, 0, 0))},
		{period.Day, period.NewCustom(at(2024, time.January, 1, 0, 0), at(2024, time.January, 9, 0, 0))},
		{period.Month, period.NewCustom(at(2024, time.January, 1, 0, 0), at(2024, time.January, 31, 0, 0))},
	}
	for _, tc := range ranges {
		r := resolve(t, tc.sel)
		for round := 0; round < 10; round++ {
			expenses := randomExpenses(rng, r, 1+rng.Intn(80))
			buckets := Bucketize(expenses, r, tc.kind)
			require.NotEmpty(t, buckets)

			sum := decimal.Zero
			for _, b := range buckets {
				sum = sum.Add(b.Total)
			}
			require.True(t, sum.Equal(Aggregate(expenses, r).Total), "kind %s range %v", tc.kind, r)
		}
	}
}

func TestBucketsSpanRangeContiguously(t *testing.T) {
	cases := []struct {
		kind period.Kind
		sel  period.Selection
	}{
		{period.Month, period.Selection{Kind: period.Month}},
		{period.Custom, period.NewCustom(at(2023, time.December, 20, 0, 0), at(2024, time.February, 29, 0, 0))},
		{period.Day, period.Selection{Kind: period.Day}},
	}
	for _, tc := range cases {
		r := resolve(t, tc.sel)
		buckets := Bucketize(nil, r, tc.kind)
		require.Equal(t, r.Start, buckets[0].Start)
		require.Equal(t, r.End, buckets[len(buckets)-1].End)
		for i := 1; i < len(buckets); i++ {
			prevDay := period.EpochDay(buckets[i-1].End)
			require.Equal(t, prevDay+1, period.EpochDay(buckets[i].Start), "bucket %d of %s", i, tc.kind)
			require.Equal(t, period.StartOfDay(buckets[i].Start), buckets[i].Start)
		}
	}
}

func TestWeekBucketsEndWithToday(t *testing.T) {
	r := resolve(t, period.Selection{Kind: period.Week})
	expenses := []core.Expense{
		expense(10, "Food", at(2024, time.March, 6, 16, 0)),  // Wednesday a week ago
		expense(5, "Food", at(2024, time.March, 13, 9, 0)),   // today
		expense(20, "Food", at(2024, time.March, 7, 12, 0)),  // Thursday
		expense(1, "Food", at(2024, time.March, 11, 12, 0)),  // Monday
		expense(100, "Food", at(2024, time.March, 6, 10, 0)), // before the window
	}
	buckets := Bucketize(expenses, r, period.Week)

	var labels []string
	for _, b := range buckets {
		labels = append(labels, b.Label)
	}
	require.Equal(t, []string{"Thu", "Fri", "Sat", "Sun", "Mon", "Tue", "Wed"}, labels)
	require.True(t, buckets[0].Total.Equal(dec("20")))
	require.True(t, buckets[4].Total.Equal(dec("1")))
	require.True(t, buckets[6].Total.Equal(dec("15")))
	require.Equal(t, at(2024, time.March, 13, 0, 0), buckets[6].Start)
	require.Equal(t, now, buckets[6].End)
}

func TestWeekBucketsFoldRangeStartIntoToday(t *testing.T) {
	r := resolve(t, period.Selection{Kind: period.Week})
	early := r.Start.Add(time.Hour)
	buckets := Bucketize([]core.Expense{expense(9, "Food", early)}, r, period.Week)

	last := buckets[len(buckets)-1]
	require.Equal(t, "Wed", last.Label)
	require.True(t, dec("9").Equal(last.Total))
	require.True(t, early.Before(last.Start), "the folded day lies before the nominal Start")
	require.Equal(t, period.StartOfDay(now), last.Start)
	require.Equal(t, now, last.End)
}

func TestWeekBucketsRussianLabels(t *testing.T) {
	r := resolve(t, period.Selection{Kind: period.Week})
	buckets := Bucketizer{Labels: Russian}.Bucketize(nil, r, period.Week)
	require.Equal(t, "Чт", buckets[0].Label)
	require.Equal(t, "Ср", buckets[6].Label)
}

func TestMonthBucketsAreMondayAlignedWeeks(t *testing.T) {
	r := resolve(t, period.Selection{Kind: period.Month}) // Tue Feb 13 15:30 .. Wed Mar 13 15:30
	expenses := []core.Expense{
		expense(7, "Food", at(2024, time.February, 18, 23, 59)),
		expense(3, "Food", at(2024, time.February, 26, 0, 0)),
		expense(4, "Food", at(2024, time.March, 3, 12, 0)),
	}
	buckets := Bucketize(expenses, r, period.Month)

	var labels []string
	for _, b := range buckets {
		labels = append(labels, b.Label)
	}
	require.Equal(t, []string{"13-18", "19-25", "26-3", "4-10", "11-13"}, labels)
	require.Equal(t, r.Start, buckets[0].Start, "first bucket is clamped to the range start")
	require.Equal(t, r.End, buckets[4].End, "last bucket is clipped to the range end")
	require.True(t, buckets[0].Total.Equal(dec("7")))
	require.True(t, buckets[2].Total.Equal(dec("7")))
}

func TestCustomAdaptiveGrouping(t *testing.T) {
	r := resolve(t, period.NewCustom(at(2024, time.January, 1, 0, 0), at(2024, time.January, 10, 0, 0)))
	require.Equal(t, 10, r.Days())
	require.Equal(t, 5, GroupCount(10))

	buckets := Bucketize(nil, r, period.Custom)
	var labels []string
	for _, b := range buckets {
		labels = append(labels, b.Label)
	}
	require.Equal(t, []string{"1-2", "3-4", "5-6", "7-8", "9-10"}, labels)
}

func TestCustomRemainderGoesToFirstGroups(t *testing.T) {
	r := resolve(t, period.NewCustom(at(2024, time.January, 1, 0, 0), at(2024, time.January, 6, 0, 0)))
	buckets := Bucketize(nil, r, period.Custom)
	var labels []string
	for _, b := range buckets {
		labels = append(labels, b.Label)
	}
	require.Equal(t, []string{"1-2", "3-4", "5", "6"}, labels)
}

func TestCustomLabelsAcrossMonths(t *testing.T) {
	r := resolve(t, period.NewCustom(at(2024, time.January, 29, 0, 0), at(2024, time.February, 6, 0, 0)))
	buckets := Bucketize(nil, r, period.Custom)
	var labels []string
	for _, b := range buckets {
		labels = append(labels, b.Label)
	}
	require.Equal(t, []string{"29-30", "31 Jan - 1 Feb", "2-3", "4-5", "6"}, labels)

	ru := Bucketizer{Labels: Russian}.Bucketize(nil, r, period.Custom)
	require.Equal(t, "31 янв - 1 фев", ru[1].Label)
}

func TestCustomSmallRangesGetOneBucketPerDay(t *testing.T) {
	for days := 1; days <= 4; days++ {
		r := resolve(t, period.NewCustom(at(2024, time.May, 1, 0, 0), at(2024, time.May, days, 0, 0)))
		require.Len(t, Bucketize(nil, r, period.Custom), days)
	}
}

func TestCustomVeryLongRange(t *testing.T) {
	r := resolve(t, period.NewCustom(at(1, time.January, 1, 0, 0), at(9999, time.December, 31, 0, 0)))
	expenses := []core.Expense{
		expense(1, "Food", at(1, time.January, 1, 9, 0)),
		expense(2, "Food", at(2024, time.March, 13, 9, 0)),
		expense(4, "Food", at(9999, time.December, 31, 23, 0)),
	}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	buckets := Bucketize(expenses, r, period.Custom)
	runtime.ReadMemStats(&after)

	require.Len(t, buckets, 7)
	require.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20), "allocation must not grow with the day count")

	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.Total)
	}
	require.True(t, dec("7").Equal(total))
	require.True(t, dec("1").Equal(buckets[0].Total))
	require.True(t, dec("4").Equal(buckets[6].Total))
	for _, e := range expenses[1:2] {
		found := false
		for _, b := range buckets {
			if !e.OccurredAt.Before(b.Start) && !e.OccurredAt.After(b.End) {
				require.True(t, e.Amount.Equal(b.Total))
				found = true
			}
		}
		require.True(t, found)
	}
}

func TestGroupCount(t *testing.T) {
	table := map[int]int{1: 1, 2: 2, 4: 4, 5: 4, 7: 4, 8: 5, 14: 5, 15: 6, 21: 6, 22: 7, 365: 7}
	for days, want := range table {
		require.Equal(t, want, GroupCount(days), "days=%d", days)
	}
	prev := 0
	for days := 1; days <= 400; days++ {
		got := GroupCount(days)
		require.GreaterOrEqual(t, got, prev)
		require.LessOrEqual(t, got, 7)
		prev = got
	}
}

func TestDayKindSingleBucket(t *testing.T) {
	r := resolve(t, period.Selection{Kind: period.Day})
	buckets := Bucketize([]core.Expense{expense(12, "Food", at(2024, time.March, 13, 8, 0))}, r, period.Day)
	require.Len(t, buckets, 1)
	require.Equal(t, "13", buckets[0].Label)
	require.True(t, buckets[0].Total.Equal(dec("12")))
}

func TestCompare(t *testing.T) {
	cases := []struct {
		current, previous, want string
	}{
		{"0", "0", "0"},
		{"100", "0", "100"},
		{"150", "100", "50"},
		{"50", "100", "-50"},
		{"0", "80", "-100"},
		{"10", "30", "-66.67"},
	}
	for _, tc := range cases {
		got := Compare(dec(tc.current), dec(tc.previous))
		require.True(t, got.Equal(dec(tc.want)), "compare(%s, %s) = %s, want %s", tc.current, tc.previous, got, tc.want)
	}
}

func TestBuildReport(t *testing.T) {
	r := resolve(t, period.Selection{Kind: period.Week})
	prev := period.PreviousRange(r)
	current := []core.Expense{
		expense(100, "Food", at(2024, time.March, 12, 10, 0)),
		expense(50, "транспорт", at(2024, time.March, 11, 10, 0)),
	}
	previous := []core.Expense{
		expense(100, "Food", prev.End.Add(-time.Hour)),
	}

	rep := BuildReport(current, previous, period.Week, r, English)
	require.Equal(t, period.Week, rep.Kind)
	require.Equal(t, prev, rep.PreviousRange)
	require.True(t, rep.Total.Equal(dec("150")))
	require.True(t, rep.ShowTrend)
	require.False(t, rep.Empty())
	require.Len(t, rep.Trend, 7)
	require.Equal(t, "Food", rep.Categories[0].DisplayName)
	require.Equal(t, "Transport", rep.Categories[1].DisplayName)
	require.Equal(t, "транспорт", rep.Categories[1].Category)
	require.Equal(t, "directions_car", string(rep.Categories[1].Icon))
	require.True(t, rep.Comparison.PreviousTotal.Equal(dec("100")))
	require.True(t, rep.Comparison.PercentChange.Equal(dec("50")))

	ru := BuildReport(current, previous, period.Week, r, Russian)
	require.Equal(t, "Продукты", ru.Categories[0].DisplayName)
}

func TestBuildReportHidesTrendForSingleDay(t *testing.T) {
	r := resolve(t, period.Selection{Kind: period.Day})
	rep := BuildReport(nil, nil, period.Day, r, English)
	require.False(t, rep.ShowTrend)
	require.True(t, rep.Empty())
	require.Len(t, rep.Trend, 1)
	require.True(t, rep.Comparison.PercentChange.IsZero())
}

func TestLabelsFor(t *testing.T) {
	require.Equal(t, Russian.Tag, LabelsFor(language.MustParse("ru-RU")).Tag)
	require.Equal(t, English.Tag, LabelsFor(language.MustParse("de")).Tag)
	require.Equal(t, Russian.Tag, ParseLabels("ru").Tag)
	require.Equal(t, Russian.Tag, ParseLabels("de;q=0.9, ru;q=0.8").Tag)
	require.Equal(t, English.Tag, ParseLabels("").Tag)
	require.Equal(t, English.Tag, ParseLabels("!!").Tag)
}
