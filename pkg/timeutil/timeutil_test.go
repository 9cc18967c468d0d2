package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayBoundariesUseIST(t *testing.T) {
	// 19:00 UTC is already 00:30 the next day in IST.
	late := time.Date(2024, 3, 10, 19, 0, 0, 0, time.UTC)
	early := time.Date(2024, 3, 10, 17, 0, 0, 0, time.UTC)

	assert.False(t, IsSameDay(early, late))
	assert.True(t, IsConsecutiveDay(early, late))
}

func TestIsConsecutiveDayAcrossMonth(t *testing.T) {
	a := time.Date(2024, 1, 31, 12, 0, 0, 0, IST)
	b := time.Date(2024, 2, 1, 8, 0, 0, 0, IST)
	c := time.Date(2024, 2, 2, 8, 0, 0, 0, IST)

	assert.True(t, IsConsecutiveDay(a, b))
	assert.False(t, IsConsecutiveDay(a, c))
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, IST)

	assert.Equal(t, "just now", FormatRelative(now.Add(-10*time.Second), now))
	assert.Equal(t, "5 min ago", FormatRelative(now.Add(-5*time.Minute), now))
	assert.Equal(t, "yesterday", FormatRelative(now.Add(-30*time.Hour), now))
	assert.Equal(t, "in 15 min", FormatRelative(now.Add(15*time.Minute), now))
	assert.Equal(t, "tomorrow", FormatRelative(now.Add(25*time.Hour), now))
}
