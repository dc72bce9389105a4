// Package notify renders the user-facing copy for settlement notifications.
package notify

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"settlements/internal/core"
	"settlements/internal/format"
	"settlements/internal/month"
)

const (
	defaultGenericTitle = "Settlement update"
	defaultGenericBody  = "A settlement was updated."
)

// Localizer is the minimal message-printer contract required by Render.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// Output is the rendered title and body of one notification.
type Output struct {
	Title string
	Body  string
}

// NewPrinter returns the printer used in production.
func NewPrinter() *message.Printer {
	return message.NewPrinter(language.BritishEnglish)
}

// Render returns copy for a notification of kind about s.
func Render(loc Localizer, kind core.NotificationKind, s core.Settlement) Output {
	var prefix string
	switch kind {
	case core.NotificationSettlementCreated:
		prefix = "notification.settlement_created"
	case core.NotificationSettlementSettled:
		prefix = "notification.settlement_settled"
	default:
		return genericOutput(loc)
	}

	title := localize(loc, prefix+".title")
	bodyKey := prefix + ".body"
	body := localize(loc, bodyKey,
		s.OwedBy,
		s.PaidBy,
		format.Pence(s.Amount.Pence),
		s.Description,
		format.Date(s.Date.Time),
		month.FormatMonthYear(s.MonthKey()),
	)
	if title == prefix+".title" || body == bodyKey {
		return genericOutput(loc)
	}
	return Output{Title: title, Body: body}
}

func genericOutput(loc Localizer) Output {
	return Output{
		Title: localizeWithFallback(loc, "notification.generic.title", defaultGenericTitle),
		Body:  localizeWithFallback(loc, "notification.generic.body", defaultGenericBody),
	}
}

func localize(loc Localizer, key string, args ...any) string {
	if loc == nil {
		return key
	}
	return loc.Sprintf(key, args...)
}

func localizeWithFallback(loc Localizer, key string, fallback string) string {
	value := strings.TrimSpace(localize(loc, key))
	if value == "" || value == key {
		return fallback
	}
	return value
}
