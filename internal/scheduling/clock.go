// Package scheduling holds the calendar arithmetic behind availability,
// conflict detection and recurrence. Times of day are minute offsets from
// midnight; intervals are half-open.
package scheduling

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// MinutesPerDay bounds every wall-clock offset.
const MinutesPerDay = 24 * 60

var (
	ErrInvalidClock = errors.New("invalid wall-clock time")
	ErrInvalidDate  = errors.New("invalid calendar date")
	ErrPastMidnight = errors.New("interval runs past midnight")
)

// ToMinutes converts an "HH:MM" wall-clock string to minutes since midnight.
func ToMinutes(clock string) (int, error) {
	if len(clock) != 5 || clock[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	h, okH := twoDigits(clock[0], clock[1])
	m, okM := twoDigits(clock[3], clock[4])
	if !okH || !okM || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	return h*60 + m, nil
}

// ToWallClock formats minutes since midnight as zero-padded "HH:MM".
func ToWallClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ValidClock reports whether s parses as an "HH:MM" wall-clock time.
func ValidClock(s string) bool {
	_, err := ToMinutes(s)
	return err == nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// ParseDate parses a "YYYY-MM-DD" calendar date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// DateOf truncates t to its calendar date in t's own location, returned at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Interval is a half-open [Start, End) range of minutes since midnight.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewInterval builds the interval starting at clock and lasting duration minutes.
// The interval must end by midnight of the same day.
func NewInterval(clock string, duration int) (Interval, error) {
	start, err := ToMinutes(clock)
	if err != nil {
		return Interval{}, err
	}
	if duration <= 0 {
		return Interval{}, fmt.Errorf("duration must be positive, got %d", duration)
	}
	if start+duration > MinutesPerDay {
		return Interval{}, fmt.Errorf("%w: %s plus %d minutes", ErrPastMidnight, clock, duration)
	}
	return Interval{Start: start, End: start + duration}, nil
}

// Overlaps reports whether two half-open intervals share at least one minute.
// Back-to-back intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return Overlaps(i.Start, i.End, o.Start, o.End)
}

// Within reports whether i lies fully inside o.
func (i Interval) Within(o Interval) bool {
	return i.Start >= o.Start && i.End <= o.End
}

func (i Interval) String() string {
	return ToWallClock(i.Start) + "-" + ToWallClock(i.End)
}

// Overlaps is the raw form of Interval.Overlaps.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
