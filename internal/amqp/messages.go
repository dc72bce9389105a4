package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"settlements/internal/core"
)

const snapshotDateLayout = "2006-01-02"

// ErrInvalidMessage is returned when a message body cannot be turned into
// a settlement change.
var ErrInvalidMessage = errors.New("invalid settlement change message")

// SettlementSnapshot is the wire form of a settlement document at one point
// in time.
type SettlementSnapshot struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	AmountPence int64      `json:"amount_pence"`
	PaidBy      string     `json:"paid_by"`
	OwedBy      string     `json:"owed_by"`
	Date        string     `json:"date"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`
	Version     int64      `json:"version"`
}

// SettlementChangeMessage carries a document change from the web process to
// the trigger worker. Before is omitted for created documents.
type SettlementChangeMessage struct {
	EventID   string              `json:"event_id"`
	Kind      string              `json:"kind"`
	Before    *SettlementSnapshot `json:"before,omitempty"`
	After     *SettlementSnapshot `json:"after"`
	Timestamp time.Time           `json:"timestamp"`
}

// SnapshotOf converts a settlement to its wire form.
func SnapshotOf(s core.Settlement) *SettlementSnapshot {
	snap := &SettlementSnapshot{
		ID:          s.ID,
		Description: s.Description,
		AmountPence: s.Amount.Pence,
		PaidBy:      s.PaidBy,
		OwedBy:      s.OwedBy,
		Date:        s.Date.Format(snapshotDateLayout),
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt.UTC(),
		Version:     s.Version,
	}
	if !s.SettledAt.IsZero() {
		at := s.SettledAt.UTC()
		snap.SettledAt = &at
	}
	return snap
}

// Settlement converts the snapshot back to the domain type.
func (s *SettlementSnapshot) Settlement() (core.Settlement, error) {
	d, err := time.Parse(snapshotDateLayout, s.Date)
	if err != nil {
		return core.Settlement{}, fmt.Errorf("%w: date %q", ErrInvalidMessage, s.Date)
	}
	out := core.Settlement{
		ID:          s.ID,
		Description: s.Description,
		Amount:      core.Money{Pence: s.AmountPence},
		PaidBy:      s.PaidBy,
		OwedBy:      s.OwedBy,
		Date:        core.Date{Time: d},
		Status:      core.Status(s.Status),
		CreatedAt:   s.CreatedAt,
		Version:     s.Version,
	}
	if s.SettledAt != nil {
		out.SettledAt = *s.SettledAt
	}
	return out, nil
}

// NewChangeMessage wraps a domain change for publishing. A missing EventID
// or Timestamp is filled in.
func NewChangeMessage(c core.SettlementChange) *SettlementChangeMessage {
	msg := &SettlementChangeMessage{
		EventID:   c.EventID,
		Kind:      string(c.Kind),
		Timestamp: c.Timestamp,
	}
	if msg.EventID == "" {
		msg.EventID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if c.Before != nil {
		msg.Before = SnapshotOf(*c.Before)
	}
	if c.After != nil {
		msg.After = SnapshotOf(*c.After)
	}
	return msg
}

// Change converts the message back to a domain change.
func (m *SettlementChangeMessage) Change() (core.SettlementChange, error) {
	if m.EventID == "" {
		return core.SettlementChange{}, fmt.Errorf("%w: missing event id", ErrInvalidMessage)
	}
	c := core.SettlementChange{
		EventID:   m.EventID,
		Kind:      core.ChangeKind(m.Kind),
		Timestamp: m.Timestamp,
	}
	if m.Before != nil {
		before, err := m.Before.Settlement()
		if err != nil {
			return core.SettlementChange{}, err
		}
		c.Before = &before
	}
	if m.After != nil {
		after, err := m.After.Settlement()
		if err != nil {
			return core.SettlementChange{}, err
		}
		c.After = &after
	}
	return c, nil
}

// ToJSON converts the message to JSON bytes
func (m *SettlementChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SettlementChangeMessageFromJSON decodes a message body.
func SettlementChangeMessageFromJSON(data []byte) (*SettlementChangeMessage, error) {
	var msg SettlementChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return &msg, nil
}
