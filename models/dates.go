package models

import "time"

const DateLayout = "2006-01-02"

// Wall clocks are stored as UTC, whatever zone the driver hands them back in.

// DateOf keeps the calendar date of t as stored.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats the stored calendar date of t.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func SameDate(a, b time.Time) bool {
	return DateKey(a) == DateKey(b)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
