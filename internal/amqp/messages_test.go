package amqp

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlements/internal/core"
)

func sampleSettlement() core.Settlement {
	return core.Settlement{
		ID:          "s1",
		Description: "Groceries",
		Amount:      core.Money{Pence: 4599},
		PaidBy:      "Alice",
		OwedBy:      "Bob",
		Date:        core.NewDate(2025, 3, 5),
		Status:      core.StatusPending,
		CreatedAt:   time.Date(2025, 3, 5, 9, 30, 0, 0, time.UTC),
		Version:     1,
	}
}

func TestNewChangeMessage_FillsEventIDAndTimestamp(t *testing.T) {
	after := sampleSettlement()
	msg := NewChangeMessage(core.SettlementChange{Kind: core.ChangeCreated, After: &after})

	assert.NotEmpty(t, msg.EventID)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Nil(t, msg.Before)
	require.NotNil(t, msg.After)
	assert.Equal(t, "2025-03-05", msg.After.Date)
	assert.Nil(t, msg.After.SettledAt)

	other := NewChangeMessage(core.SettlementChange{Kind: core.ChangeCreated, After: &after})
	assert.NotEqual(t, msg.EventID, other.EventID, "event ids must be unique")
}

func TestSettlementChangeMessage_RoundTrip(t *testing.T) {
	before := sampleSettlement()
	after := before
	after.Status = core.StatusSettled
	after.SettledAt = time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC)
	after.Version = 2

	msg := NewChangeMessage(core.SettlementChange{
		EventID:   "evt-42",
		Kind:      core.ChangeUpdated,
		Before:    &before,
		After:     &after,
		Timestamp: time.Date(2025, 3, 9, 18, 0, 1, 0, time.UTC),
	})
	body, err := msg.ToJSON()
	require.NoError(t, err)

	decoded, err := SettlementChangeMessageFromJSON(body)
	require.NoError(t, err)
	change, err := decoded.Change()
	require.NoError(t, err)

	assert.Equal(t, "evt-42", change.EventID)
	assert.Equal(t, core.ChangeUpdated, change.Kind)
	require.NotNil(t, change.Before)
	require.NotNil(t, change.After)
	assert.True(t, change.IsSettleTransition())
	assert.Equal(t, int64(4599), change.After.Amount.Pence)
	assert.True(t, after.SettledAt.Equal(change.After.SettledAt))
	assert.Equal(t, "2025-03", change.After.MonthKey().String())
}

func TestSettlementChangeMessageFromJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"event_id": `},
		{"wrong type", `{"event_id": 12}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SettlementChangeMessageFromJSON([]byte(tt.body))
			assert.True(t, errors.Is(err, ErrInvalidMessage), "got %v", err)
		})
	}
}

func TestSettlementChangeMessage_ChangeRejectsBadSnapshots(t *testing.T) {
	_, err := (&SettlementChangeMessage{Kind: "created"}).Change()
	assert.ErrorIs(t, err, ErrInvalidMessage)

	msg := &SettlementChangeMessage{
		EventID: "evt-1",
		Kind:    "created",
		After:   &SettlementSnapshot{ID: "s1", Date: "05/03/2025"},
	}
	_, err = msg.Change()
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
