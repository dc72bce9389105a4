// Package format renders dates and money for display. It is shared by the
// web handlers, the CLI and the triggers so that every surface prints the
// same text for the same value.
//
// None of these functions fail. Unusable input renders as a fixed
// degraded value documented on each function.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// CurrencyPlaceholder is shown when an amount is absent.
	CurrencyPlaceholder = "£0.00"

	dateLayout = "Jan 2, 2006"
)

var currencyTag = language.BritishEnglish

// dateLayouts are tried in order when a date arrives as text.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// DateInput is anything Date knows how to normalise.
type DateInput interface {
	time.Time | string
}

// Date renders d as "Mar 5, 2025". Text input is parsed with ParseDate.
// Zero times and text that does not parse render as "".
func Date[T DateInput](d T) string {
	var t time.Time
	switch v := any(d).(type) {
	case time.Time:
		t = v
	case string:
		parsed, ok := ParseDate(v)
		if !ok {
			return ""
		}
		t = parsed
	}
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// ParseDate accepts "2006-01-02", RFC 3339 and "2006-01-02T15:04:05"
// (with a space or a T separator). Dates without an offset are UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Currency renders amount as pounds sterling, e.g. "£1,234.50". The amount
// is rounded to whole pence. A nil, NaN or infinite amount renders as
// CurrencyPlaceholder.
func Currency(amount *float64) string {
	if amount == nil || math.IsNaN(*amount) || math.IsInf(*amount, 0) {
		return CurrencyPlaceholder
	}
	pence := math.Round(*amount * 100)
	if pence > math.MaxInt64 || pence < math.MinInt64 {
		return CurrencyPlaceholder
	}
	return Pence(int64(pence))
}

// Pence renders an amount held in integer pence.
func Pence(p int64) string {
	sign := ""
	u := uint64(p)
	if p < 0 {
		sign = "-"
		u = uint64(-(p + 1)) + 1
	}
	pounds := message.NewPrinter(currencyTag).Sprintf("%d", u/100)
	return fmt.Sprintf("%s£%s.%02d", sign, pounds, u%100)
}
