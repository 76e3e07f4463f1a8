package scheduling

import (
	"errors"
	"fmt"
	"time"
)

// DefaultMaxOccurrences caps how many dates a single rule may generate.
const DefaultMaxOccurrences = 365

// Frequency is the unit a recurrence steps by.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// Rule is a recurrence pattern. At least one of Until and Count must be set;
// when both are, generation stops at whichever bound is reached first.
type Rule struct {
	Frequency Frequency
	Interval  int
	Until     *time.Time
	Count     int
}

var ErrInvalidRule = errors.New("invalid recurrence rule")

func (r Rule) Validate() error {
	if !r.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, r.Frequency)
	}
	if r.Interval < 1 {
		return fmt.Errorf("%w: interval must be at least 1", ErrInvalidRule)
	}
	if r.Count < 0 {
		return fmt.Errorf("%w: occurrences must not be negative", ErrInvalidRule)
	}
	if r.Until == nil && r.Count == 0 {
		return fmt.Errorf("%w: end date or occurrences is required", ErrInvalidRule)
	}
	return nil
}

// Nth returns the date of the n-th occurrence (0-based) counted from start.
// Monthly steps keep the day of month, clamped to the last day of short months.
func (r Rule) Nth(start time.Time, n int) time.Time {
	switch r.Frequency {
	case Weekly:
		return start.AddDate(0, 0, 7*r.Interval*n)
	case Monthly:
		return addMonthsClamped(start, r.Interval*n)
	default:
		return start.AddDate(0, 0, r.Interval*n)
	}
}

// ExpandDates generates candidate dates for the rule starting at start. The
// result never exceeds ceiling entries; truncated is true when the ceiling,
// and not the rule itself, ended generation.
func ExpandDates(start time.Time, r Rule, ceiling int) (dates []time.Time, truncated bool) {
	if ceiling <= 0 {
		ceiling = DefaultMaxOccurrences
	}
	for n := 0; ; n++ {
		if r.Count > 0 && n >= r.Count {
			return dates, false
		}
		d := r.Nth(start, n)
		if r.Until != nil && d.After(*r.Until) {
			return dates, false
		}
		if len(dates) >= ceiling {
			return dates, true
		}
		dates = append(dates, d)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
