package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// WeekConvention maps calendar dates onto the 0..6 day index used by business
// calendars and overrides. Index 0 is the configured first day of the week.
type WeekConvention struct {
	start time.Weekday
}

// DefaultWeekConvention starts the week on Saturday, leaving Friday at index 6.
var DefaultWeekConvention = WeekConvention{start: time.Saturday}

func NewWeekConvention(start time.Weekday) WeekConvention {
	return WeekConvention{start: start}
}

// ParseWeekConvention accepts an English weekday name, case-insensitive.
func ParseWeekConvention(name string) (WeekConvention, error) {
	if name == "" {
		return DefaultWeekConvention, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(name)) {
			return WeekConvention{start: d}, nil
		}
	}
	return WeekConvention{}, fmt.Errorf("unknown week start %q", name)
}

// Start is the weekday that maps to index 0.
func (w WeekConvention) Start() time.Weekday {
	return w.start
}

// Index returns the day index (0..6) of date under this convention.
func (w WeekConvention) Index(date time.Time) int {
	return (int(date.Weekday()) - int(w.start) + 7) % 7
}

// Weekday is the inverse of Index.
func (w WeekConvention) Weekday(index int) time.Weekday {
	return time.Weekday((int(w.start) + index%7 + 7) % 7)
}
