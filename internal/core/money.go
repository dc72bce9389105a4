package core

import (
	"strconv"
	"strings"
)

// ParseDecimalToPence converts a user-entered amount such as "12.34",
// "12,34" or "£1,234.5" to pence.
//
// A comma is a decimal separator unless the string also contains a dot, in
// which case commas are thousands separators. The third decimal place is
// rounded half-up. Negative, zero and malformed amounts are rejected with
// ErrInvalidAmount.
//
// Examples:
//
//	ParseDecimalToPence("12.34")    -> 1234, nil
//	ParseDecimalToPence("12,34")    -> 1234, nil
//	ParseDecimalToPence("£1,234.5") -> 123450, nil
//	ParseDecimalToPence("12.345")   -> 1235, nil
func ParseDecimalToPence(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "£")
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidAmount
	}
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}

	whole, frac, _ := strings.Cut(s, ".")
	if strings.Contains(frac, ".") {
		return 0, ErrInvalidAmount
	}
	if whole == "" {
		whole = "0"
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, ErrInvalidAmount
	}

	pounds, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxPounds = (1<<63 - 1) / 100
	if pounds > maxPounds-1 {
		return 0, ErrInvalidAmount
	}

	var pence int64
	for i := 0; i < 2 && i < len(frac); i++ {
		d := int64(frac[i] - '0')
		if i == 0 {
			pence += d * 10
		} else {
			pence += d
		}
	}
	if len(frac) > 2 && frac[2] >= '5' {
		pence++
	}

	total := pounds*100 + pence
	if total <= 0 {
		return 0, ErrInvalidAmount
	}
	return total, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Pounds returns the amount as a float for spreadsheets and JSON. Use Pence
// for arithmetic.
func (m Money) Pounds() float64 {
	return float64(m.Pence) / 100.0
}
