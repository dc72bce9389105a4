package core

import (
	"errors"
	"time"

	"settlements/internal/month"
)

// LedgerRow is one line appended to the external ledger each time a
// trigger fires.
type LedgerRow struct {
	EventID      string
	SettlementID string
	Kind         NotificationKind
	Month        month.Key
	Date         Date
	Description  string
	PaidBy       string
	OwedBy       string
	Amount       Money
	Status       Status
	RecordedAt   time.Time
}

// NewLedgerRow builds the ledger line for settlement s as seen by event
// eventID.
func NewLedgerRow(eventID string, kind NotificationKind, s Settlement, at time.Time) LedgerRow {
	return LedgerRow{
		EventID:      eventID,
		SettlementID: s.ID,
		Kind:         kind,
		Month:        s.MonthKey(),
		Date:         s.Date,
		Description:  s.Description,
		PaidBy:       s.PaidBy,
		OwedBy:       s.OwedBy,
		Amount:       s.Amount,
		Status:       s.Status,
		RecordedAt:   at,
	}
}

func (r LedgerRow) Validate() error {
	if r.EventID == "" || r.SettlementID == "" {
		return errors.New("ledger row needs event and settlement ids")
	}
	if !r.Month.Valid() {
		return month.ErrInvalidKey
	}
	return r.Amount.Validate()
}
