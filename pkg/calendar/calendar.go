// Package calendar implements the fixed-jurisdiction business-hours
// calculator. All wall-clock and timezone conversion happens here; the
// rest of the system passes UTC instants in and gets booleans out.
package calendar

import (
	"fmt"
	"time"
)

// Holiday is a recurring-yearly public holiday (month and day).
type Holiday struct {
	Month time.Month `yaml:"month"`
	Day   int        `yaml:"day"`
	Name  string     `yaml:"name,omitempty"`
}

// Calendar describes one jurisdiction's working window: weekday set, local
// hour range and recurring holiday list, bound to a fixed timezone. The
// value is immutable after construction.
type Calendar struct {
	loc         *time.Location
	startHour   int
	endHour     int
	workingDays map[time.Weekday]bool
	holidays    map[string]Holiday // keyed "MM-DD"
}

// New builds a Calendar. startHour is inclusive, endHour exclusive, both in
// local time of loc.
func New(loc *time.Location, startHour, endHour int, workingDays []time.Weekday, holidays []Holiday) (*Calendar, error) {
	if loc == nil {
		return nil, fmt.Errorf("calendar: nil location")
	}
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return nil, fmt.Errorf("calendar: invalid hour range %d-%d", startHour, endHour)
	}
	days := make(map[time.Weekday]bool, len(workingDays))
	for _, d := range workingDays {
		days[d] = true
	}
	hs := make(map[string]Holiday, len(holidays))
	for _, h := range holidays {
		hs[holidayKey(h.Month, h.Day)] = h
	}
	return &Calendar{
		loc:         loc,
		startHour:   startHour,
		endHour:     endHour,
		workingDays: days,
		holidays:    hs,
	}, nil
}

// Default returns the Equatorial Guinea ministry calendar: Monday-Friday
// 08:00-18:00 Africa/Malabo, with the fixed national holiday set.
func Default() *Calendar {
	loc, err := time.LoadLocation("Africa/Malabo")
	if err != nil {
		// Africa/Malabo is WAT all year; fall back to its fixed offset when
		// the tz database is unavailable.
		loc = time.FixedZone("WAT", 1*60*60)
	}
	cal, _ := New(loc, 8, 18,
		[]time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		[]Holiday{
			{Month: time.January, Day: 1, Name: "Año Nuevo"},
			{Month: time.April, Day: 18, Name: "Viernes Santo"},
			{Month: time.May, Day: 1, Name: "Día del Trabajo"},
			{Month: time.June, Day: 5, Name: "Natalicio del Presidente"},
			{Month: time.August, Day: 3, Name: "Día de las Fuerzas Armadas"},
			{Month: time.August, Day: 15, Name: "Día de la Constitución"},
			{Month: time.October, Day: 12, Name: "Día de la Independencia"},
			{Month: time.December, Day: 25, Name: "Navidad"},
		})
	return cal
}

// Location returns the calendar's timezone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Hours returns the configured local hour range.
func (c *Calendar) Hours() (start, end int) { return c.startHour, c.endHour }

// WithinBusinessHours reports whether the instant falls on a working day,
// outside any holiday, within the local hour range.
func (c *Calendar) WithinBusinessHours(t time.Time) bool {
	local := t.In(c.loc)
	if !c.workingDays[local.Weekday()] {
		return false
	}
	if c.IsHoliday(t) {
		return false
	}
	h := local.Hour()
	return h >= c.startHour && h < c.endHour
}

// IsHoliday reports whether the instant's local date is a public holiday.
func (c *Calendar) IsHoliday(t time.Time) bool {
	local := t.In(c.loc)
	_, ok := c.holidays[holidayKey(local.Month(), local.Day())]
	return ok
}

// ShouldSendReminders is the reminder-delivery gate: reminders go out only
// during business hours.
func (c *Calendar) ShouldSendReminders(now time.Time) bool {
	return c.WithinBusinessHours(now)
}

// NextBusinessHour returns the earliest instant at or after t that falls
// within business hours.
func (c *Calendar) NextBusinessHour(t time.Time) time.Time {
	if c.WithinBusinessHours(t) {
		return t
	}
	local := t.In(c.loc)
	for {
		if !c.workingDays[local.Weekday()] || c.IsHoliday(local) || local.Hour() >= c.endHour {
			local = time.Date(local.Year(), local.Month(), local.Day(), c.startHour, 0, 0, 0, c.loc).AddDate(0, 0, 1)
			continue
		}
		if local.Hour() < c.startHour {
			local = time.Date(local.Year(), local.Month(), local.Day(), c.startHour, 0, 0, 0, c.loc)
		}
		if c.WithinBusinessHours(local) {
			return local
		}
	}
}

// AddBusinessHours walks forward hour by hour, counting only business
// hours, and returns the resulting instant.
func (c *Calendar) AddBusinessHours(from time.Time, hours int) time.Time {
	t := from
	for added := 0; added < hours; {
		t = t.Add(time.Hour)
		if c.WithinBusinessHours(t) {
			added++
		}
	}
	return t
}

// BusinessHoursBetween counts whole business hours between start and end.
func (c *Calendar) BusinessHoursBetween(start, end time.Time) int {
	total := 0
	for t := start; t.Before(end); t = t.Add(time.Hour) {
		if c.WithinBusinessHours(t) {
			total++
		}
	}
	return total
}

func holidayKey(m time.Month, d int) string {
	return fmt.Sprintf("%02d-%02d", int(m), d)
}
