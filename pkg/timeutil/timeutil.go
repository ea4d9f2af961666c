// Package timeutil provides timezone utilities for Tashkent time (UTC+5).
// Business dates of grants, sales, and deadlines all live in the program's
// local timezone; Uzbekistan observes no DST, so the offset is constant.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// TashkentTZ is the Tashkent timezone (UTC+5, no DST).
var TashkentTZ = time.FixedZone("Asia/Tashkent", 5*60*60)

// DateLayout is the wire format for business dates.
const DateLayout = "2006-01-02"

// Now returns the current time in Tashkent timezone.
func Now() time.Time {
	return time.Now().In(TashkentTZ)
}

// ToLocal converts a time to Tashkent timezone.
func ToLocal(t time.Time) time.Time {
	return t.In(TashkentTZ)
}

// Date creates a time in Tashkent timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, TashkentTZ)
}

// StartOfDay returns the start of the day (00:00:00) in Tashkent timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToLocal(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, TashkentTZ)
}

// EndOfDay returns the last nanosecond of the day in Tashkent timezone.
func EndOfDay(t time.Time) time.Time {
	local := ToLocal(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, TashkentTZ)
}

// ParseDate parses a "YYYY-MM-DD" business date in Tashkent timezone.
// An empty string or a malformed date yields a zero time, mirroring the
// lenient date-range handling of the statistics endpoints.
func ParseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(DateLayout, s, TashkentTZ)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatDate renders a business date as "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return ToLocal(t).Format(DateLayout)
}

// SameDay reports whether two instants fall on the same Tashkent calendar day.
func SameDay(a, b time.Time) bool {
	al, bl := ToLocal(a), ToLocal(b)
	return al.Year() == bl.Year() && al.YearDay() == bl.YearDay()
}
