package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatDates(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Format(DateLayout)
	}
	return out
}

func TestExpandDatesWeeklyCount(t *testing.T) {
	dates, truncated := ExpandDates(day(2025, 1, 6), Rule{Frequency: Weekly, Interval: 1, Count: 4}, 0)
	assert.False(t, truncated)
	assert.Equal(t, []string{"2025-01-06", "2025-01-13", "2025-01-20", "2025-01-27"}, formatDates(dates))
}

func TestExpandDatesUntilIsInclusive(t *testing.T) {
	until := day(2025, 1, 10)
	dates, truncated := ExpandDates(day(2025, 1, 6), Rule{Frequency: Daily, Interval: 2, Until: &until}, 0)
	assert.False(t, truncated)
	assert.Equal(t, []string{"2025-01-06", "2025-01-08", "2025-01-10"}, formatDates(dates))
}

func TestExpandDatesUntilBoundsCount(t *testing.T) {
	until := day(2025, 1, 20)
	dates, _ := ExpandDates(day(2025, 1, 6), Rule{Frequency: Weekly, Interval: 1, Count: 10, Until: &until}, 0)
	assert.Len(t, dates, 3)
}

func TestExpandDatesCountWithDistantUntil(t *testing.T) {
	until := day(2030, 1, 1)
	dates, _ := ExpandDates(day(2025, 1, 6), Rule{Frequency: Weekly, Interval: 2, Count: 5, Until: &until}, 0)
	assert.Len(t, dates, 5)
}

func TestExpandDatesCeiling(t *testing.T) {
	dates, truncated := ExpandDates(day(2025, 1, 1), Rule{Frequency: Daily, Interval: 1, Count: 400}, 365)
	assert.True(t, truncated)
	assert.Len(t, dates, 365)

	dates, truncated = ExpandDates(day(2025, 1, 1), Rule{Frequency: Daily, Interval: 1, Count: 365}, 365)
	assert.False(t, truncated)
	assert.Len(t, dates, 365)

	dates, truncated = ExpandDates(day(2025, 1, 1), Rule{Frequency: Weekly, Interval: 1}, 10)
	assert.True(t, truncated, "unbounded rule stops at ceiling")
	assert.Len(t, dates, 10)
}

func TestExpandDatesMonthlyClampsShortMonths(t *testing.T) {
	dates, _ := ExpandDates(day(2025, 1, 31), Rule{Frequency: Monthly, Interval: 1, Count: 4}, 0)
	assert.Equal(t, []string{"2025-01-31", "2025-02-28", "2025-03-31", "2025-04-30"}, formatDates(dates))
}

func TestRuleValidate(t *testing.T) {
	require.NoError(t, Rule{Frequency: Weekly, Interval: 1, Count: 3}.Validate())
	assert.ErrorIs(t, Rule{Frequency: "hourly", Interval: 1}.Validate(), ErrInvalidRule)
	assert.ErrorIs(t, Rule{Frequency: Daily, Interval: 0}.Validate(), ErrInvalidRule)
	assert.ErrorIs(t, Rule{Frequency: Daily, Interval: 1, Count: -1}.Validate(), ErrInvalidRule)

	until := day(2025, 3, 1)
	require.NoError(t, Rule{Frequency: Monthly, Interval: 1, Until: &until}.Validate())
	assert.ErrorIs(t, Rule{Frequency: Weekly, Interval: 1}.Validate(), ErrInvalidRule, "no termination")
}
