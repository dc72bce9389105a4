// Package storetest holds the behaviour every settlement store must share.
// Store implementations call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlements/internal/core"
	"settlements/internal/month"
)

// Store is the surface exercised by Run.
type Store interface {
	CreateSettlement(ctx context.Context, s core.Settlement) error
	GetSettlement(ctx context.Context, id string) (core.Settlement, error)
	ListByMonth(ctx context.Context, k month.Key) ([]core.Settlement, error)
	ListMonths(ctx context.Context) ([]month.Key, error)
	UpdateSettlement(ctx context.Context, s core.Settlement, expectedVersion int64) error
	SaveNotification(ctx context.Context, n core.Notification) (bool, error)
	ListNotifications(ctx context.Context, limit int) ([]core.Notification, error)
	ListUnnotified(ctx context.Context, limit int) ([]core.Settlement, error)
}

var base = time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

func settlement(id string, day int, m time.Month, offset time.Duration) core.Settlement {
	return core.Settlement{
		ID:          id,
		Description: "Dinner " + id,
		Amount:      core.Money{Pence: 1250},
		PaidBy:      "Alice",
		OwedBy:      "Bob",
		Date:        core.NewDate(2025, int(m), day),
		Status:      core.StatusPending,
		CreatedAt:   base.Add(offset),
		Version:     1,
	}
}

// Run executes the contract against a fresh store from newStore for each
// subtest.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("create and get", func(t *testing.T) {
		ctx := context.Background()
		st := newStore(t)
		in := settlement("s1", 5, time.March, 0)
		require.NoError(t, st.CreateSettlement(ctx, in))

		got, err := st.GetSettlement(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, in.ID, got.ID)
		assert.Equal(t, in.Amount, got.Amount)
		assert.True(t, in.Date.Equal(got.Date.Time))
		assert.True(t, in.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, got.SettledAt.IsZero())
		assert.Equal(t, core.StatusPending, got.Status)

		_, err = st.GetSettlement(ctx, "missing")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("list by month", func(t *testing.T) {
		ctx := context.Background()
		st := newStore(t)
		require.NoError(t, st.CreateSettlement(ctx, settlement("late", 20, time.March, 0)))
		require.NoError(t, st.CreateSettlement(ctx, settlement("early", 2, time.March, time.Minute)))
		require.NoError(t, st.CreateSettlement(ctx, settlement("april", 1, time.April, 2*time.Minute)))

		got, err := st.ListByMonth(ctx, "2025-03")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "early", got[0].ID)
		assert.Equal(t, "late", got[1].ID)

		empty, err := st.ListByMonth(ctx, "2019-01")
		require.NoError(t, err)
		assert.Empty(t, empty)

		months, err := st.ListMonths(ctx)
		require.NoError(t, err)
		assert.Equal(t, []month.Key{"2025-04", "2025-03"}, months)
	})

	t.Run("update checks version", func(t *testing.T) {
		ctx := context.Background()
		st := newStore(t)
		in := settlement("s1", 5, time.March, 0)
		require.NoError(t, st.CreateSettlement(ctx, in))

		settled := in
		settled.Status = core.StatusSettled
		settled.SettledAt = base.Add(time.Hour)
		settled.Version = 2
		require.NoError(t, st.UpdateSettlement(ctx, settled, 1))

		got, err := st.GetSettlement(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, core.StatusSettled, got.Status)
		assert.Equal(t, int64(2), got.Version)
		assert.True(t, settled.SettledAt.Equal(got.SettledAt))

		assert.ErrorIs(t, st.UpdateSettlement(ctx, settled, 1), core.ErrVersionConflict)

		ghost := settlement("ghost", 1, time.March, 0)
		assert.ErrorIs(t, st.UpdateSettlement(ctx, ghost, 1), core.ErrNotFound)
	})

	t.Run("notifications are idempotent per event", func(t *testing.T) {
		ctx := context.Background()
		st := newStore(t)
		require.NoError(t, st.CreateSettlement(ctx, settlement("s1", 5, time.March, 0)))

		n := core.Notification{
			ID:           "n1",
			EventID:      "evt-1",
			SettlementID: "s1",
			Kind:         core.NotificationSettlementCreated,
			Title:        "New settlement",
			Body:         "Bob owes Alice £12.50",
			CreatedAt:    base,
		}
		inserted, err := st.SaveNotification(ctx, n)
		require.NoError(t, err)
		assert.True(t, inserted)

		n.ID = "n2"
		inserted, err = st.SaveNotification(ctx, n)
		require.NoError(t, err)
		assert.False(t, inserted, "same event id must not insert twice")

		list, err := st.ListNotifications(ctx, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "evt-1", list[0].EventID)
		assert.Equal(t, core.NotificationSettlementCreated, list[0].Kind)
	})

	t.Run("unnotified follows current status", func(t *testing.T) {
		ctx := context.Background()
		st := newStore(t)
		a := settlement("a", 5, time.March, 0)
		b := settlement("b", 6, time.March, time.Minute)
		require.NoError(t, st.CreateSettlement(ctx, a))
		require.NoError(t, st.CreateSettlement(ctx, b))

		pending, err := st.ListUnnotified(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "a", pending[0].ID)

		_, err = st.SaveNotification(ctx, core.Notification{
			ID: "n-a", EventID: "e-a", SettlementID: "a",
			Kind: core.NotificationSettlementCreated, Title: "t", Body: "b", CreatedAt: base,
		})
		require.NoError(t, err)

		pending, err = st.ListUnnotified(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "b", pending[0].ID)

		settled := a
		settled.Status = core.StatusSettled
		settled.SettledAt = base.Add(time.Hour)
		settled.Version = 2
		require.NoError(t, st.UpdateSettlement(ctx, settled, 1))

		pending, err = st.ListUnnotified(ctx, 1)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "a", pending[0].ID, "settled without a settled notification is pending again")
	})

	t.Run("settled without created notification stays pending", func(t *testing.T) {
		ctx := context.Background()
		st := newStore(t)
		a := settlement("a", 5, time.March, 0)
		require.NoError(t, st.CreateSettlement(ctx, a))
		settled := a
		settled.Status = core.StatusSettled
		settled.SettledAt = base.Add(time.Hour)
		settled.Version = 2
		require.NoError(t, st.UpdateSettlement(ctx, settled, 1))

		_, err := st.SaveNotification(ctx, core.Notification{
			ID: "n-s", EventID: "e-s", SettlementID: "a",
			Kind: core.NotificationSettlementSettled, Title: "t", Body: "b", CreatedAt: base,
		})
		require.NoError(t, err)

		pending, err := st.ListUnnotified(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1, "created notification is still owed")

		_, err = st.SaveNotification(ctx, core.Notification{
			ID: "n-c", EventID: "e-c", SettlementID: "a",
			Kind: core.NotificationSettlementCreated, Title: "t", Body: "b", CreatedAt: base,
		})
		require.NoError(t, err)

		pending, err = st.ListUnnotified(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}
