// Package month implements the canonical "YYYY-MM" month key used to browse
// settlements, the arithmetic to step between adjacent months, and the
// Navigator cursor built on top of it.
//
// Formatting helpers in this package never fail: a malformed key renders as
// the empty string. Callers that need a hard failure use Validate or Parse.
package month

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Key is a calendar month in canonical "YYYY-MM" form. Any string can be
// stored in a Key; only keys accepted by Validate are meaningful.
type Key string

const (
	minYear = 0
	maxYear = 9999
)

// ErrInvalidKey is returned when a value is not a canonical month key.
var ErrInvalidKey = errors.New("invalid month key")

var keyPattern = regexp.MustCompile(`^[0-9]{4}-(0[1-9]|1[0-2])$`)

// Of returns the key for the given year and month.
func Of(year int, m time.Month) Key {
	return Key(fmt.Sprintf("%04d-%02d", year, int(m)))
}

// FromTime returns the key of the month containing t, in t's location.
func FromTime(t time.Time) Key {
	return Of(t.Year(), t.Month())
}

// Current returns the key for the clock's current date. A nil clock reads
// the system clock.
func Current(clock Clock) Key {
	if clock == nil {
		clock = SystemClock{}
	}
	return FromTime(clock.Now())
}

// Validate reports whether s is a canonical month key.
func Validate(s string) error {
	if !keyPattern.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return nil
}

// Parse validates s and returns it as a Key.
func Parse(s string) (Key, error) {
	if err := Validate(s); err != nil {
		return "", err
	}
	return Key(s), nil
}

// Valid reports whether k is canonical.
func (k Key) Valid() bool {
	return keyPattern.MatchString(string(k))
}

// YearMonth splits a valid key. ok is false for malformed keys.
func (k Key) YearMonth() (year int, m time.Month, ok bool) {
	if !k.Valid() {
		return 0, 0, false
	}
	s := string(k)
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0, 0, false
	}
	mm, err := strconv.Atoi(s[5:])
	if err != nil {
		return 0, 0, false
	}
	return y, time.Month(mm), true
}

// Start returns midnight UTC on the first day of the month.
func (k Key) Start() (time.Time, bool) {
	y, m, ok := k.YearMonth()
	if !ok {
		return time.Time{}, false
	}
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), true
}

// Range returns the half-open interval [start, end) covering the month.
func (k Key) Range() (start, end time.Time, ok bool) {
	y, m, ok := k.YearMonth()
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	ny, nm := nextYearMonth(y, m)
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), time.Date(ny, nm, 1, 0, 0, 0, 0, time.UTC), true
}

func (k Key) String() string {
	return string(k)
}

// Previous returns the month before k. Malformed keys and the first
// representable month are returned unchanged.
func Previous(k Key) Key {
	y, m, ok := k.YearMonth()
	if !ok || (y == minYear && m == time.January) {
		return k
	}
	if m == time.January {
		return Of(y-1, time.December)
	}
	return Of(y, m-1)
}

// Next returns the month after k. Malformed keys and the last representable
// month are returned unchanged.
func Next(k Key) Key {
	y, m, ok := k.YearMonth()
	if !ok || (y == maxYear && m == time.December) {
		return k
	}
	return Of(nextYearMonth(y, m))
}

func nextYearMonth(y int, m time.Month) (int, time.Month) {
	if m == time.December {
		return y + 1, time.January
	}
	return y, m + 1
}

// FormatMonthYear renders k as "March 2025". Month names are English
// regardless of the process locale. Malformed keys render as "".
func FormatMonthYear(k Key) string {
	y, m, ok := k.YearMonth()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s %04d", m.String(), y)
}

// FormatShort renders k as "Mar 2025", or "" when malformed.
func FormatShort(k Key) string {
	t, ok := k.Start()
	if !ok {
		return ""
	}
	return t.Format("Jan 2006")
}

// Add steps k by n months (negative steps backwards) using repeated
// Previous/Next, so the boundary behaviour is the same.
func Add(k Key, n int) Key {
	for ; n > 0; n-- {
		k = Next(k)
	}
	for ; n < 0; n++ {
		k = Previous(k)
	}
	return k
}
