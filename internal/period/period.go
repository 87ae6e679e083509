// Package period turns a user's period choice into a concrete time range.
//
// Day, Week and Month are rolling windows that end at "now", so resolving the
// same selection later yields a later range. Custom ranges are whole days.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind selects both the range rule and the trend granularity.
type Kind int

const (
	Day Kind = iota
	Week
	Month
	Custom
)

var kindNames = [...]string{"day", "week", "month", "custom"}

var ErrUnknownKind = errors.New("unknown period kind")

// ErrInvalidRange is returned when a custom range starts after it ends.
var ErrInvalidRange = errors.New("invalid range: start after end")

func (k Kind) String() string {
	if k < Day || k > Custom {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind parses "day", "week", "month" or "custom" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range kindNames {
		if s == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < Day || k > Custom {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Selection is a period choice. Start and End are only read for Custom.
type Selection struct {
	Kind  Kind      `json:"kind"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewCustom selects the whole days from start to end. Callers swap the two
// when start is later than end.
func NewCustom(start, end time.Time) Selection {
	return Selection{Kind: Custom, Start: start, End: end}
}

// Range is an inclusive [Start, End] interval.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration is End - Start.
func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// DurationMillis is the duration in whole milliseconds.
func (r Range) DurationMillis() int64 {
	return r.Duration().Milliseconds()
}

// Contains reports whether t lies in the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Days is the number of calendar days the range touches, counted in the
// location of Start.
func (r Range) Days() int {
	return int(EpochDay(r.End.In(r.Start.Location())) - EpochDay(r.Start)) + 1
}

// SingleDay reports whether the range lies within one calendar day.
func (r Range) SingleDay() bool {
	return r.Days() == 1
}

// Resolve computes the concrete range for sel at instant now.
//
//	Day:    [midnight(now), now]
//	Week:   [now - 7 days, now]
//	Month:  [now - 1 month, now]
//	Custom: [midnight(start), endOfDay(end)]
func Resolve(sel Selection, now time.Time) (Range, error) {
	switch sel.Kind {
	case Day:
		return Range{Start: StartOfDay(now), End: now}, nil
	case Week:
		return Range{Start: now.AddDate(0, 0, -7), End: now}, nil
	case Month:
		return Range{Start: AddMonths(now, -1), End: now}, nil
	case Custom:
		r := Range{Start: StartOfDay(sel.Start), End: EndOfDay(sel.End)}
		if r.Start.After(r.End) {
			return Range{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
				r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
		}
		return r, nil
	default:
		return Range{}, fmt.Errorf("%w: %d", ErrUnknownKind, int(sel.Kind))
	}
}

const dayGap = 24 * time.Hour

// PreviousRange is the window of the same duration that ends one day before r
// starts: [start - duration - 1 day, start - 1 day].
func PreviousRange(r Range) Range {
	end := r.Start.Add(-dayGap)
	return Range{Start: end.Add(-r.Duration()), End: end}
}
