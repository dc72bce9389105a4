package format

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestCurrency(t *testing.T) {
	tests := []struct {
		name string
		in   *float64
		want string
	}{
		{"absent", nil, CurrencyPlaceholder},
		{"two decimals", ptr(12.5), "£12.50"},
		{"zero", ptr(0), "£0.00"},
		{"pennies", ptr(0.07), "£0.07"},
		{"rounds to pence", ptr(3.456), "£3.46"},
		{"grouping", ptr(1234.5), "£1,234.50"},
		{"millions", ptr(1234567.891), "£1,234,567.89"},
		{"negative", ptr(-12.5), "-£12.50"},
		{"nan", ptr(math.NaN()), CurrencyPlaceholder},
		{"inf", ptr(math.Inf(1)), CurrencyPlaceholder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Currency(tt.in))
		})
	}
}

func TestPence(t *testing.T) {
	assert.Equal(t, "£12.50", Pence(1250))
	assert.Equal(t, "£0.05", Pence(5))
	assert.Equal(t, "-£0.05", Pence(-5))
	assert.Equal(t, "£10,000.00", Pence(1000000))
	assert.NotPanics(t, func() { Pence(math.MinInt64) })
}

func TestDateStringAndTimeAgree(t *testing.T) {
	fromString := Date("2025-03-05")
	fromTime := Date(time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "Mar 5, 2025", fromString)
	assert.Equal(t, fromString, fromTime)
}

func TestDateAcceptsTimestamps(t *testing.T) {
	assert.Equal(t, "Dec 31, 2024", Date("2024-12-31T23:30:00-05:00"))
	assert.Equal(t, "Jan 9, 2025", Date("2025-01-09T08:00:00Z"))
	assert.Equal(t, "Jan 9, 2025", Date("2025-01-09 08:00:00"))
	assert.Equal(t, "Jan 9, 2025", Date("  2025-01-09 "))
}

func TestDateDegradesToEmpty(t *testing.T) {
	for _, s := range []string{"", "yesterday", "2025-02-30", "05/03/2025"} {
		assert.Equal(t, "", Date(s), "input %q", s)
	}
	assert.Equal(t, "", Date(time.Time{}))
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("2025-03-05")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC), got)

	_, ok = ParseDate("nope")
	assert.False(t, ok)
}
