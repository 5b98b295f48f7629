package ledger

import "time"

// =============================================================================
// DAY ARITHMETIC - Calendar-day helpers used by trend and age calculations
// =============================================================================

// StartOfDay truncates t to midnight UTC. All day bucketing in the engine
// goes through this so that movements recorded at any hour land in the same
// calendar bucket.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day (UTC).
func SameDay(a, b time.Time) bool {
	return StartOfDay(a).Equal(StartOfDay(b))
}

// DaysBetweenCeil returns the number of calendar days between from and now,
// ceiling-rounded, never negative. Same-day yields 0.
func DaysBetweenCeil(from, now time.Time) int {
	if !from.Before(now) {
		return 0
	}
	d := now.Sub(from)
	days := int(d.Hours() / 24)
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}
