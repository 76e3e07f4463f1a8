package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"14:30", 870},
		{"23:59", 1439},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToMinutes(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, ToWallClock(got))
		})
	}
}

func TestToMinutesRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "9:00", "24:00", "12:60", "ab:cd", "12-30", "12:300"} {
		_, err := ToMinutes(in)
		assert.ErrorIs(t, err, ErrInvalidClock, in)
		assert.False(t, ValidClock(in))
	}
}

func TestToWallClockPads(t *testing.T) {
	assert.Equal(t, "07:05", ToWallClock(425))
	assert.Equal(t, "00:15", ToWallClock(15))
}

func TestOverlapsHalfOpen(t *testing.T) {
	assert.True(t, Overlaps(600, 660, 630, 690))
	assert.True(t, Overlaps(600, 720, 630, 660), "containment")
	assert.False(t, Overlaps(600, 660, 660, 720), "back-to-back")
	assert.False(t, Overlaps(660, 720, 600, 660), "back-to-back reversed")
	assert.False(t, Overlaps(600, 630, 700, 730))
}

func TestNewInterval(t *testing.T) {
	iv, err := NewInterval("14:00", 30)
	require.NoError(t, err)
	assert.Equal(t, Interval{Start: 840, End: 870}, iv)
	assert.Equal(t, "14:00-14:30", iv.String())

	_, err = NewInterval("14:00", 0)
	assert.Error(t, err)
}

func TestNewIntervalEndsByMidnight(t *testing.T) {
	iv, err := NewInterval("23:45", 15)
	require.NoError(t, err)
	assert.Equal(t, MinutesPerDay, iv.End)

	_, err = NewInterval("23:45", 30)
	assert.ErrorIs(t, err, ErrPastMidnight)

	_, err = NewInterval("00:00", MinutesPerDay)
	assert.NoError(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-06")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-06", d.Format(DateLayout))

	_, err = ParseDate("06/01/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
