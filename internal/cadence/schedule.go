package cadence

import "time"

// anchor is the fixed reference point for the fortnightly alternation.
// It is a Monday; moving it by a week flips which alternating week is "on".
var anchor = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// sendWeekday is the designated first weekday of the reporting week.
const sendWeekday = time.Monday

// ShouldSend decides whether a report goes out today for the given cadence.
//
//	DAILY       -> always
//	WEEKLY      -> only on the designated first weekday
//	FORTNIGHTLY -> first weekday, and only on even weeks since the anchor
//
// Any other value fails closed.
func ShouldSend(today time.Time, c Cadence) bool {
	switch c {
	case Daily:
		return true
	case Weekly:
		return today.Weekday() == sendWeekday
	case Fortnightly:
		if today.Weekday() != sendWeekday {
			return false
		}
		return weeksSinceAnchor(today)%2 == 0
	default:
		return false
	}
}

// weeksSinceAnchor returns the number of whole weeks between the anchor and
// the given date. Dates are truncated to midnight UTC before comparison so
// the time of day of the run cannot shift the parity.
func weeksSinceAnchor(today time.Time) int {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Sub(anchor).Hours()) / 24 / 7
}
