// Package gameday computes the logical "game day" used for daily leaderboard
// bucketing and tone-scale rotation. The game day rolls over at a configurable
// local hour (default 5am) rather than at midnight.
package gameday

import (
	"time"

	"github.com/kapu/gridblink/internal/config"
)

// Date returns the game-day calendar date (midnight in loc) for the given instant.
// Before resetHour local time the previous calendar day is still "today".
func Date(loc *time.Location, resetHour int, now time.Time) time.Time {
	if resetHour < 0 || resetHour > 23 {
		resetHour = config.DefaultResetHour
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	if local.Hour() < resetHour {
		local = local.AddDate(0, 0, -1)
	}
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DayString returns the game day formatted as YYYY-MM-DD.
func DayString(loc *time.Location, resetHour int, now time.Time) string {
	return Date(loc, resetHour, now).Format("2006-01-02")
}

// DayOfYear returns the ordinal day of the game day within its year (Jan 1 = 1).
func DayOfYear(loc *time.Location, resetHour int, now time.Time) int {
	return Date(loc, resetHour, now).YearDay()
}

// Location resolves an IANA timezone name, falling back to the default
// timezone and finally UTC if the name cannot be loaded.
func Location(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	if loc, err := time.LoadLocation(config.DefaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}
