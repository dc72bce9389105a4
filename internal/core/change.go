package core

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
)

// eventNamespace scopes the name-based event ids below.
var eventNamespace = uuid.MustParse("6f1d3c2a-8b5e-4f7a-9c0d-2e4b6a8c0f13")

// ChangeKind says whether a settlement document was written for the first
// time or rewritten.
type ChangeKind string

// SettlementChange is one write to a settlement document. Before is nil for
// ChangeCreated; After is always set.
type SettlementChange struct {
	EventID   string
	Kind      ChangeKind
	Before    *Settlement
	After     *Settlement
	Timestamp time.Time
}

// SettlementID returns the id of the document the change applies to.
func (c SettlementChange) SettlementID() string {
	switch {
	case c.After != nil:
		return c.After.ID
	case c.Before != nil:
		return c.Before.ID
	}
	return ""
}

// IsSettleTransition reports whether the change moved a settlement from
// pending to settled.
func (c SettlementChange) IsSettleTransition() bool {
	return c.Kind == ChangeUpdated &&
		c.Before != nil && c.After != nil &&
		!c.Before.IsSettled() && c.After.IsSettled()
}

// EventIDFor returns the event id of the change that produces a
// notification of kind for settlementID. The web process and the worker's
// sweep derive the same id, so a notification is written once whichever
// path delivers it first.
func EventIDFor(kind NotificationKind, settlementID string) string {
	return uuid.NewSHA1(eventNamespace, []byte(string(kind)+":"+settlementID)).String()
}
