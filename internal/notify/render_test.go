package notify

import (
	"fmt"
	"testing"

	"golang.org/x/text/message"

	"settlements/internal/core"
)

type fakeLocalizer struct {
	values map[string]string
}

func (f fakeLocalizer) Sprintf(key message.Reference, args ...any) string {
	k, _ := key.(string)
	v, ok := f.values[k]
	if !ok {
		return k
	}
	return fmt.Sprintf(v, args...)
}

func sample() core.Settlement {
	return core.Settlement{
		ID:          "s1",
		Description: "concert tickets",
		Amount:      core.Money{Pence: 123450},
		PaidBy:      "Alice",
		OwedBy:      "Bob",
		Date:        core.NewDate(2025, 3, 5),
	}
}

func TestRender_DefaultCatalog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind      core.NotificationKind
		wantTitle string
		wantBody  string
	}{
		{
			core.NotificationSettlementCreated,
			"New settlement",
			"Bob owes Alice £1,234.50 for concert tickets on Mar 5, 2025 (March 2025).",
		},
		{
			core.NotificationSettlementSettled,
			"Settlement paid",
			"Bob paid back Alice £1,234.50 for concert tickets (March 2025).",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			out := Render(NewPrinter(), tt.kind, sample())
			if out.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", out.Title, tt.wantTitle)
			}
			if out.Body != tt.wantBody {
				t.Errorf("body = %q, want %q", out.Body, tt.wantBody)
			}
		})
	}
}

func TestRender_LocalizedCatalog(t *testing.T) {
	t.Parallel()

	loc := fakeLocalizer{values: map[string]string{
		"notification.settlement_created.title": "Nuovo rimborso",
		"notification.settlement_created.body":  "%[1]s deve %[3]s a %[2]s",
	}}

	out := Render(loc, core.NotificationSettlementCreated, sample())
	if out.Title != "Nuovo rimborso" {
		t.Fatalf("title = %q", out.Title)
	}
	if out.Body != "Bob deve £1,234.50 a Alice" {
		t.Fatalf("body = %q", out.Body)
	}
}

func TestRender_FallsBackToGeneric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		loc  Localizer
		kind core.NotificationKind
	}{
		{"unknown kind", NewPrinter(), core.NotificationKind("reminder")},
		{"missing catalog entries", fakeLocalizer{}, core.NotificationSettlementSettled},
		{"nil localizer", nil, core.NotificationSettlementCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Render(tt.loc, tt.kind, sample())
			if out.Title != defaultGenericTitle || out.Body != defaultGenericBody {
				t.Fatalf("got %+v, want generic output", out)
			}
		})
	}
}
