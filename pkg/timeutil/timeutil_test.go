package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	d := ParseDate("2026-03-15")
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 15, d.Day())
	assert.Equal(t, TashkentTZ, d.Location())

	assert.True(t, ParseDate("").IsZero())
	assert.True(t, ParseDate("15.03.2026").IsZero())
	assert.True(t, ParseDate("not-a-date").IsZero())
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2026-03-15", FormatDate(Date(2026, 3, 15)))
	assert.Equal(t, "", FormatDate(time.Time{}))

	// 23:00 UTC on the 14th already belongs to the 15th in Tashkent.
	utc := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-15", FormatDate(utc))
}

func TestStartAndEndOfDay(t *testing.T) {
	at := time.Date(2026, 3, 15, 13, 45, 12, 0, TashkentTZ)

	start := StartOfDay(at)
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 15, start.Day())

	end := EndOfDay(at)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 15, end.Day())
	assert.True(t, end.After(start))
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 3, 15, 1, 0, 0, 0, TashkentTZ)
	b := time.Date(2026, 3, 15, 23, 0, 0, 0, TashkentTZ)
	assert.True(t, SameDay(a, b))

	// Late UTC evening and next local morning are the same Tashkent day.
	utcEvening := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	assert.True(t, SameDay(utcEvening, a))

	assert.False(t, SameDay(a, a.Add(24*time.Hour)))
}
