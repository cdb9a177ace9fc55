// Package calendar works at calendar-day granularity. A date is represented
// as a time.Time at midnight UTC carrying the wall-clock year, month and day
// of the instant it was derived from.
package calendar

import (
	"fmt"
	"time"
)

const layoutDate = "2006-01-02"

// Day returns the calendar date of t, read in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from a to b.
// It is negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

func AddDays(t time.Time, days int) time.Time {
	return Day(t).AddDate(0, 0, days)
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// MonthKey formats t's month as YYYY-MM.
func MonthKey(t time.Time) string {
	y, m, _ := t.Date()
	return fmt.Sprintf("%04d-%02d", y, int(m))
}

// TrailingMonths returns n month starts ending at now's month, oldest first.
func TrailingMonths(now time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	last := MonthStart(now)
	months := make([]time.Time, n)
	for i := 0; i < n; i++ {
		months[i] = last.AddDate(0, i-(n-1), 0)
	}
	return months
}

// InRange reports whether day lies in [from, to], inclusive on both ends.
func InRange(day, from, to time.Time) bool {
	d := Day(day)
	return !d.Before(Day(from)) && !d.After(Day(to))
}

func FormatDate(t time.Time) string {
	return Day(t).Format(layoutDate)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(layoutDate, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}
