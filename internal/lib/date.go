package lib

import "time"

// AddMonths advances t by the given number of calendar months. The day of
// month is clamped to the last valid day of the target month, so
// Jan 31 + 1 month is the last day of February, not Mar 2/3 as with
// time.AddDate normalization.
func AddMonths(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(months), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())

	day := t.Day()
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// MonthsBetween returns the contract duration in calendar months between
// start and end. A partial trailing month counts as a whole one, and any
// positive interval is at least one month. Returns 0 when end is not after
// start.
func MonthsBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}

	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if months > 0 && AddMonths(start, months).After(end) {
		months--
	}
	if AddMonths(start, months).Before(end) {
		months++
	}
	if months < 1 {
		months = 1
	}
	return months
}
