package core

import "time"

const (
	NotificationSettlementCreated NotificationKind = "settlement_created"
	NotificationSettlementSettled NotificationKind = "settlement_settled"
)

type NotificationKind string

// Notification is the user-facing record a trigger leaves behind. EventID
// is unique so replaying a change event does not duplicate it.
type Notification struct {
	ID           string
	EventID      string
	SettlementID string
	Kind         NotificationKind
	Title        string
	Body         string
	CreatedAt    time.Time
}
