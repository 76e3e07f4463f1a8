package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeekConvention(t *testing.T) {
	sat := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		d := sat.AddDate(0, 0, i)
		assert.Equal(t, i, DefaultWeekConvention.Index(d), d.Weekday().String())
	}
	fri := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 6, DefaultWeekConvention.Index(fri))
}

func TestWeekConventionRoundTrip(t *testing.T) {
	w := NewWeekConvention(time.Monday)
	mon := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, w.Index(mon))
	assert.Equal(t, 6, w.Index(mon.AddDate(0, 0, -1)))
	for i := 0; i < 7; i++ {
		assert.Equal(t, i, w.Index(mon.AddDate(0, 0, i)))
		assert.Equal(t, mon.AddDate(0, 0, i).Weekday(), w.Weekday(i))
	}
}

func TestParseWeekConvention(t *testing.T) {
	w, err := ParseWeekConvention("Sunday")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, w.Start())

	w, err = ParseWeekConvention("")
	require.NoError(t, err)
	assert.Equal(t, DefaultWeekConvention, w)

	_, err = ParseWeekConvention("someday")
	assert.Error(t, err)
}
