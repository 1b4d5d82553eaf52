package core

import "time"

// Date is a calendar date. The time-of-day portion is normalized to
// midnight UTC so comparisons are purely by day.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// In reports whether the date falls inside the range. A nil range means
// "all time" and matches everything.
func (d Date) In(r *DateRange) bool {
	if r == nil {
		return true
	}
	return !d.Before(r.Start.Time) && !d.After(r.End.Time)
}

// DateRange is an inclusive [Start, End] window.
type DateRange struct {
	Start Date
	End   Date
}

// CurrentMonth returns the range covering now's calendar month.
func CurrentMonth(now time.Time) DateRange {
	y, m, _ := now.UTC().Date()
	start := NewDate(y, m, 1)
	end := NewDate(y, m, DaysInMonth(y, m))
	return DateRange{Start: start, End: end}
}

// MonthKey identifies a calendar month. It is the membership key for EMI
// paid-month tracking: O(1) lookups instead of scanning date slices.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthKeyOf returns the calendar month a timestamp falls in (UTC).
func MonthKeyOf(t time.Time) MonthKey {
	y, m, _ := t.UTC().Date()
	return MonthKey{Year: y, Month: m}
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths advances a date by n calendar months, clamping the day to the
// target month's length (Jan 31 + 1 month = Feb 29 in a leap year).
func AddMonths(d Date, n int) Date {
	y, m, day := d.Date()
	target := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	ty, tm, _ := target.Date()
	if max := DaysInMonth(ty, tm); day > max {
		day = max
	}
	return NewDate(ty, tm, day)
}

// FirstOfNextMonth returns the first day of the month after d's month.
func FirstOfNextMonth(d Date) Date {
	y, m, _ := d.Date()
	return Date{Time: time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)}
}
