// Package clock defines what "today" means for memberships and access records.
//
// Calendar dates are carried as time.Time values at 00:00 UTC holding the
// local year/month/day of the gym. That matches how lib/pq scans DATE columns
// and keeps date arithmetic free of DST shifts.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// System reads the wall clock and reports dates in Location.
type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now()
	}
	return time.Now().In(s.Location)
}

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// Date builds a calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf returns the calendar date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return Date(t.Year(), t.Month(), t.Day())
}

// Today is the current calendar date of c.
func Today(c Clock) time.Time {
	now := c.Now()
	return DateOf(now, now.Location())
}

// Normalize drops any time-of-day component from a calendar date.
func Normalize(d time.Time) time.Time {
	return Date(d.Year(), d.Month(), d.Day())
}

func AddDays(d time.Time, n int) time.Time {
	return Normalize(d).AddDate(0, 0, n)
}

// DaysBetween returns b - a in whole days.
func DaysBetween(a, b time.Time) int {
	return int(Normalize(b).Sub(Normalize(a)).Hours() / 24)
}

func MaxDate(a, b time.Time) time.Time {
	if Normalize(a).After(Normalize(b)) {
		return Normalize(a)
	}
	return Normalize(b)
}

// Within reports whether d falls in [from, to].
func Within(d, from, to time.Time) bool {
	d = Normalize(d)
	return !d.Before(Normalize(from)) && !d.After(Normalize(to))
}
