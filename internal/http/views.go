package http

import (
	"time"

	"settlements/internal/core"
	"settlements/internal/format"
	"settlements/internal/month"
)

// settlementView is the row shape shared by templates and JSON responses.
type settlementView struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	AmountPence int64      `json:"amountPence"`
	Amount      string     `json:"amount"`
	PaidBy      string     `json:"paidBy"`
	OwedBy      string     `json:"owedBy"`
	Date        string     `json:"date"`
	DisplayDate string     `json:"displayDate"`
	Month       month.Key  `json:"month"`
	Status      string     `json:"status"`
	Settled     bool       `json:"settled"`
	CreatedAt   time.Time  `json:"createdAt"`
	SettledAt   *time.Time `json:"settledAt,omitempty"`
	Version     int64      `json:"version"`
}

func newSettlementView(s core.Settlement) settlementView {
	v := settlementView{
		ID:          s.ID,
		Description: s.Description,
		AmountPence: s.Amount.Pence,
		Amount:      format.Pence(s.Amount.Pence),
		PaidBy:      s.PaidBy,
		OwedBy:      s.OwedBy,
		Date:        s.Date.Format("2006-01-02"),
		DisplayDate: format.Date(s.Date.Time),
		Month:       s.MonthKey(),
		Status:      string(s.Status),
		Settled:     s.IsSettled(),
		CreatedAt:   s.CreatedAt,
		Version:     s.Version,
	}
	if !s.SettledAt.IsZero() {
		at := s.SettledAt
		v.SettledAt = &at
	}
	return v
}

func newSettlementViews(items []core.Settlement) []settlementView {
	out := make([]settlementView, 0, len(items))
	for _, s := range items {
		out = append(out, newSettlementView(s))
	}
	return out
}

type summaryView struct {
	Count        int    `json:"count"`
	Pending      int    `json:"pending"`
	Settled      int    `json:"settled"`
	PendingPence int64  `json:"pendingPence"`
	SettledPence int64  `json:"settledPence"`
	PendingTotal string `json:"pendingTotal"`
	SettledTotal string `json:"settledTotal"`
}

func newSummaryView(sum core.MonthSummary) summaryView {
	return summaryView{
		Count:        sum.Count,
		Pending:      sum.Pending,
		Settled:      sum.Settled,
		PendingPence: sum.PendingTotal.Pence,
		SettledPence: sum.SettledTotal.Pence,
		PendingTotal: format.Pence(sum.PendingTotal.Pence),
		SettledTotal: format.Pence(sum.SettledTotal.Pence),
	}
}

// monthResponse is the navigation state of a month plus its totals.
type monthResponse struct {
	month.State
	Summary summaryView `json:"summary"`
}

type settlementListResponse struct {
	Month          month.Key        `json:"month"`
	FormattedMonth string           `json:"formattedMonth"`
	Settlements    []settlementView `json:"settlements"`
}

type indexPage struct {
	Nav         month.State
	Settlements []settlementView
	Summary     summaryView
	Today       string
	LoadError   string
}

type notificationView struct {
	Kind      string
	Title     string
	Body      string
	CreatedAt string
}

type selectorOption struct {
	Key      month.Key
	Label    string
	Selected bool
}

type selectorPartial struct {
	State   string
	Options []selectorOption
	Error   string
}
