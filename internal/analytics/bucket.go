package analytics

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/period"
)

// Bucket is one point of the trend series. Buckets come in chronological order
// and the last one is the most recent sub-period.
//
// For Week, Start and End are nominal: they hold the most recent date of the
// bucket's weekday. The last bucket also sums the partial day at the start of
// the range, which shares today's weekday and lies before its Start.
type Bucket struct {
	Label string          `json:"label"`
	Start time.Time       `json:"start"`
	End   time.Time       `json:"end"`
	Total decimal.Decimal `json:"total"`
}

// Bucketizer splits a range into labeled buckets.
type Bucketizer struct {
	Labels Labels
}

// Bucketize uses English labels.
func Bucketize(expenses []core.Expense, r period.Range, kind period.Kind) []Bucket {
	return Bucketizer{Labels: English}.Bucketize(expenses, r, kind)
}

// GroupCount is the number of buckets a custom range of totalDays days is split
// into: one per day up to 4 days, then 4, 5, 6 and at most 7.
func GroupCount(totalDays int) int {
	switch {
	case totalDays <= 4:
		return max(totalDays, 0)
	case totalDays <= 7:
		return 4
	case totalDays <= 14:
		return 5
	case totalDays <= 21:
		return 6
	default:
		return 7
	}
}

// span is an inclusive run of epoch days.
type span struct {
	first, last int64
}

// Bucketize sums the expenses inside r into buckets whose granularity depends on
// kind:
//
//	Week:   seven weekday buckets, starting tomorrow's weekday and ending today's
//	Month:  Monday-aligned weeks clipped to r, labeled "startDay-endDay"
//	Custom: 1 to 7 groups of near-equal day counts, see GroupCount
//	Day:    one bucket per calendar day
//
// Every calendar day of r belongs to exactly one bucket, so bucket totals add up
// to Aggregate's total. Days are taken in the location of r.Start.
func (b Bucketizer) Bucketize(expenses []core.Expense, r period.Range, kind period.Kind) []Bucket {
	loc := r.Start.Location()
	first := period.EpochDay(r.Start)
	last := period.EpochDay(r.End.In(loc))
	if last < first {
		return []Bucket{}
	}

	if kind == period.Week {
		return b.byWeekday(expenses, r, last)
	}

	var spans []span
	switch kind {
	case period.Month:
		spans = weekSpans(first, last)
	case period.Custom:
		spans = groupSpans(first, last)
	default:
		spans = daySpans(first, last)
	}

	buckets := make([]Bucket, len(spans))
	for i, s := range spans {
		start := period.DayStart(s.first, loc)
		if start.Before(r.Start) {
			start = r.Start
		}
		end := period.DayEnd(s.last, loc)
		if end.After(r.End) {
			end = r.End
		}
		buckets[i] = Bucket{Label: b.label(kind, s, loc), Start: start, End: end, Total: decimal.Zero}
	}

	for _, e := range expenses {
		if !r.Contains(e.OccurredAt) {
			continue
		}
		i := spanIndex(spans, period.EpochDay(e.OccurredAt.In(loc)))
		buckets[i].Total = buckets[i].Total.Add(e.Amount)
	}
	return buckets
}

// spanIndex returns the span holding day. Spans are contiguous and sorted.
func spanIndex(spans []span, day int64) int {
	return sort.Search(len(spans), func(i int) bool { return spans[i].last >= day })
}

// byWeekday keys buckets by weekday rather than by date: the first bucket is the
// weekday after today's and the last is today's. A rolling week touches today's
// weekday twice, and both days land in the last bucket, whose Start/End only
// cover today.
func (b Bucketizer) byWeekday(expenses []core.Expense, r period.Range, today int64) []Bucket {
	loc := r.Start.Location()
	todayIdx := period.WeekdayIndex(period.DayStart(today, loc))

	buckets := make([]Bucket, 7)
	for i := range buckets {
		day := today - 6 + int64(i)
		end := period.DayEnd(day, loc)
		if end.After(r.End) {
			end = r.End
		}
		buckets[i] = Bucket{
			Label: b.Labels.Weekdays[(todayIdx+i+1)%7],
			Start: period.DayStart(day, loc),
			End:   end,
			Total: decimal.Zero,
		}
	}

	for _, e := range expenses {
		if !r.Contains(e.OccurredAt) {
			continue
		}
		wd := period.WeekdayIndex(e.OccurredAt.In(loc))
		i := (wd - todayIdx + 6) % 7
		buckets[i].Total = buckets[i].Total.Add(e.Amount)
	}
	return buckets
}

func daySpans(first, last int64) []span {
	spans := make([]span, 0, last-first+1)
	for d := first; d <= last; d++ {
		spans = append(spans, span{d, d})
	}
	return spans
}

// weekSpans cuts [first, last] at every Monday. The leading span runs from first
// to the following Sunday, so the first bucket never starts before the range.
func weekSpans(first, last int64) []span {
	var spans []span
	for d := first; d <= last; {
		end := d + int64(6-weekdayOfEpochDay(d))
		if end > last {
			end = last
		}
		spans = append(spans, span{d, end})
		d = end + 1
	}
	return spans
}

// groupSpans splits [first, last] into GroupCount groups; the first
// days%groups groups get one extra day.
func groupSpans(first, last int64) []span {
	days := int(last - first + 1)
	groups := GroupCount(days)
	base, remainder := days/groups, days%groups

	spans := make([]span, 0, groups)
	d := first
	for g := 0; g < groups; g++ {
		size := base
		if g < remainder {
			size++
		}
		spans = append(spans, span{d, d + int64(size) - 1})
		d += int64(size)
	}
	return spans
}

func weekdayOfEpochDay(day int64) int {
	return period.WeekdayIndex(period.DayStart(day, time.UTC))
}

func (b Bucketizer) label(kind period.Kind, s span, loc *time.Location) string {
	start := period.DayStart(s.first, loc)
	end := period.DayStart(s.last, loc)
	switch {
	case kind == period.Month:
		return strconv.Itoa(start.Day()) + "-" + strconv.Itoa(end.Day())
	case s.first == s.last:
		return strconv.Itoa(start.Day())
	case start.Year() == end.Year() && start.Month() == end.Month():
		return strconv.Itoa(start.Day()) + "-" + strconv.Itoa(end.Day())
	default:
		return strconv.Itoa(start.Day()) + " " + b.Labels.Months[start.Month()-1] +
			" - " + strconv.Itoa(end.Day()) + " " + b.Labels.Months[end.Month()-1]
	}
}
