// Package timeutil provides calendar-day helpers in the canonical UTC zone.
// Streak arithmetic counts UTC calendar days, so a user crossing local
// midnight does not change how days are compared.
package timeutil

import (
	"time"
)

// Zone is the canonical zone for calendar-day arithmetic.
var Zone = time.UTC

// Date creates a midnight time in the canonical zone.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, Zone)
}

// DateTime creates a time in the canonical zone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, Zone)
}

// StartOfDay returns the start of the day (00:00:00) in the canonical zone.
func StartOfDay(t time.Time) time.Time {
	u := t.In(Zone)
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, Zone)
}

// DayDiff returns the signed number of calendar days from t1 to t2.
// A negative result means t2 is before t1.
func DayDiff(t1, t2 time.Time) int {
	d := StartOfDay(t2).Sub(StartOfDay(t1))
	return int(d / (24 * time.Hour))
}

// FormatDate is the storage format for calendar days (YYYY-MM-DD).
const FormatDate = "2006-01-02"

// FormatDateStr formats a time as a calendar day in the canonical zone.
func FormatDateStr(t time.Time) string {
	return t.In(Zone).Format(FormatDate)
}

// ParseDate parses a YYYY-MM-DD calendar day in the canonical zone.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, Zone)
}
