package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Instants below are UTC; Africa/Malabo is UTC+1 all year.

func TestWithinBusinessHours(t *testing.T) {
	cal := Default()

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"weekday mid-morning", time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC), true},   // Mon 10:00 local
		{"weekday opening hour", time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC), true},  // Mon 08:00 local
		{"weekday before opening", time.Date(2025, 3, 3, 6, 30, 0, 0, time.UTC), false},
		{"weekday at closing", time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC), false},  // Mon 18:00 local, exclusive
		{"weekday just before closing", time.Date(2025, 3, 3, 16, 59, 0, 0, time.UTC), true},
		{"weekday evening", time.Date(2025, 3, 3, 21, 0, 0, 0, time.UTC), false},
		{"saturday working hour", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), false},
		{"sunday working hour", time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC), false},
		{"christmas working hour", time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC), false}, // Thursday
		{"independence day", time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC), false},       // Monday
		{"labour day off-hours too", time.Date(2025, 5, 1, 3, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cal.WithinBusinessHours(tc.at))
		})
	}
}

func TestIsHolidayRecursEveryYear(t *testing.T) {
	cal := Default()

	for _, year := range []int{2024, 2025, 2026, 2030} {
		assert.True(t, cal.IsHoliday(time.Date(year, 1, 1, 12, 0, 0, 0, cal.Location())), "new year %d", year)
		assert.True(t, cal.IsHoliday(time.Date(year, 12, 25, 12, 0, 0, 0, cal.Location())), "christmas %d", year)
	}
	assert.False(t, cal.IsHoliday(time.Date(2025, 3, 3, 12, 0, 0, 0, cal.Location())))
}

func TestIsHolidayUsesLocalDate(t *testing.T) {
	cal := Default()

	// 23:30 UTC on Dec 31 is already Jan 1 in Malabo.
	assert.True(t, cal.IsHoliday(time.Date(2025, 12, 31, 23, 30, 0, 0, time.UTC)))
}

func TestNextBusinessHour(t *testing.T) {
	cal := Default()

	t.Run("already within returns input", func(t *testing.T) {
		at := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
		assert.Equal(t, at, cal.NextBusinessHour(at))
	})

	t.Run("friday evening rolls to monday opening", func(t *testing.T) {
		at := time.Date(2025, 3, 7, 20, 0, 0, 0, time.UTC) // Fri 21:00 local
		got := cal.NextBusinessHour(at).In(cal.Location())
		assert.Equal(t, time.Monday, got.Weekday())
		assert.Equal(t, 8, got.Hour())
		assert.Equal(t, 10, got.Day())
	})

	t.Run("early morning snaps to opening", func(t *testing.T) {
		at := time.Date(2025, 3, 4, 5, 0, 0, 0, time.UTC) // Tue 06:00 local
		got := cal.NextBusinessHour(at).In(cal.Location())
		assert.Equal(t, 8, got.Hour())
		assert.Equal(t, 4, got.Day())
	})
}

func TestAddBusinessHours(t *testing.T) {
	cal := Default()

	// Fri 16:00 local + 4 business hours lands Monday morning.
	from := time.Date(2025, 3, 7, 15, 0, 0, 0, time.UTC)
	got := cal.AddBusinessHours(from, 4).In(cal.Location())
	assert.Equal(t, time.Monday, got.Weekday())
}

func TestBusinessHoursBetween(t *testing.T) {
	cal := Default()

	// Full working Monday spans 10 business hours.
	start := time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC)  // 08:00 local
	end := time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC)   // 18:00 local
	assert.Equal(t, 10, cal.BusinessHoursBetween(start, end))

	// Weekend contributes nothing.
	satStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	sunEnd := time.Date(2025, 3, 2, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, cal.BusinessHoursBetween(satStart, sunEnd))
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, 8, 18, nil, nil)
	require.Error(t, err)

	_, err = New(time.UTC, 18, 8, nil, nil)
	require.Error(t, err)
}
