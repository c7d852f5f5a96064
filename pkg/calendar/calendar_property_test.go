//go:build property
// +build property

package calendar

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Properties over arbitrary instants in a ten-year window.
func instantGen() gopter.Gen {
	lo := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	hi := time.Date(2032, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	return gen.Int64Range(lo, hi).Map(func(s int64) time.Time {
		return time.Unix(s, 0).UTC()
	})
}

func TestWeekendNeverWithinBusinessHours(t *testing.T) {
	cal := Default()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("weekend instants are never business hours", prop.ForAll(
		func(at time.Time) bool {
			local := at.In(cal.Location())
			if local.Weekday() != time.Saturday && local.Weekday() != time.Sunday {
				return true
			}
			return !cal.WithinBusinessHours(at)
		},
		instantGen(),
	))

	properties.TestingRun(t)
}

func TestHolidayNeverWithinBusinessHours(t *testing.T) {
	cal := Default()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("holiday instants are never business hours", prop.ForAll(
		func(at time.Time) bool {
			if !cal.IsHoliday(at) {
				return true
			}
			return !cal.WithinBusinessHours(at)
		},
		instantGen(),
	))

	properties.TestingRun(t)
}

func TestNextBusinessHourAlwaysWithin(t *testing.T) {
	cal := Default()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("NextBusinessHour lands inside business hours", prop.ForAll(
		func(at time.Time) bool {
			next := cal.NextBusinessHour(at)
			return cal.WithinBusinessHours(next) && !next.Before(at)
		},
		instantGen(),
	))

	properties.TestingRun(t)
}
