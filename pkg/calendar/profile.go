package calendar

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile is the on-disk form of a jurisdiction calendar. It intentionally
// allows nothing beyond an hour range, a weekday list and an explicit
// holiday list.
type Profile struct {
	Name        string    `yaml:"name"`
	Timezone    string    `yaml:"timezone"`
	StartHour   int       `yaml:"start_hour"`
	EndHour     int       `yaml:"end_hour"`
	WorkingDays []string  `yaml:"working_days"`
	Holidays    []Holiday `yaml:"holidays"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// LoadProfile reads a calendar profile YAML and builds a Calendar from it.
func LoadProfile(path string) (*Calendar, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("calendar: read profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("calendar: parse profile: %w", err)
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar: unknown timezone %q: %w", p.Timezone, err)
	}

	days := make([]time.Weekday, 0, len(p.WorkingDays))
	for _, name := range p.WorkingDays {
		d, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("calendar: unknown weekday %q", name)
		}
		days = append(days, d)
	}

	return New(loc, p.StartHour, p.EndHour, days, p.Holidays)
}
