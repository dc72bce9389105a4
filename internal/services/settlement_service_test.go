package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlements/internal/core"
	"settlements/internal/month"
	"settlements/internal/storage/memory"
)

var now = time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []core.SettlementChange
	err     error
}

func (p *recordingPublisher) PublishChange(_ context.Context, c core.SettlementChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return p.err
}

func (p *recordingPublisher) published() []core.SettlementChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.SettlementChange(nil), p.changes...)
}

func newService(pub Publisher) (*SettlementService, *memory.Store) {
	store := memory.New()
	return NewSettlementService(store, pub, month.FixedClock(now)), store
}

func validInput() core.Settlement {
	return core.Settlement{
		Description: "  Dinner ",
		Amount:      core.Money{Pence: 3200},
		PaidBy:      "Alice",
		OwedBy:      "Bob",
		Date:        core.NewDate(2025, 3, 5),
	}
}

func TestSettlementService_Create(t *testing.T) {
	pub := &recordingPublisher{}
	svc, store := newService(pub)
	ctx := context.Background()

	got, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Dinner", got.Description)
	assert.Equal(t, core.StatusPending, got.Status)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, now.Equal(got.CreatedAt))

	stored, err := store.GetSettlement(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ID, stored.ID)

	changes := pub.published()
	require.Len(t, changes, 1)
	assert.Equal(t, core.ChangeCreated, changes[0].Kind)
	assert.Nil(t, changes[0].Before)
	require.NotNil(t, changes[0].After)
	assert.Equal(t, got.ID, changes[0].After.ID)
	assert.Equal(t, core.EventIDFor(core.NotificationSettlementCreated, got.ID), changes[0].EventID)
}

func TestSettlementService_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*core.Settlement)
		wantErr error
	}{
		{"empty description", func(s *core.Settlement) { s.Description = "  " }, core.ErrEmptyDescription},
		{"zero amount", func(s *core.Settlement) { s.Amount = core.Money{} }, core.ErrInvalidAmount},
		{"missing party", func(s *core.Settlement) { s.OwedBy = "" }, core.ErrEmptyParty},
		{"same party", func(s *core.Settlement) { s.OwedBy = "alice" }, core.ErrSameParty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			svc, _ := newService(pub)
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, pub.published(), "invalid input must not publish")
		})
	}
}

func TestSettlementService_CreateSurvivesPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, store := newService(pub)

	got, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = store.GetSettlement(context.Background(), got.ID)
	assert.NoError(t, err)
}

func TestSettlementService_CreateWithoutPublisher(t *testing.T) {
	svc, _ := newService(nil)
	_, err := svc.Create(context.Background(), validInput())
	assert.NoError(t, err)
}

func TestSettlementService_MarkSettled(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newService(pub)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	settled, err := svc.MarkSettled(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusSettled, settled.Status)
	assert.Equal(t, int64(2), settled.Version)
	assert.True(t, now.Equal(settled.SettledAt))

	changes := pub.published()
	require.Len(t, changes, 2)
	upd := changes[1]
	assert.Equal(t, core.ChangeUpdated, upd.Kind)
	assert.True(t, upd.IsSettleTransition())
	assert.Equal(t, core.StatusPending, upd.Before.Status)

	_, err = svc.MarkSettled(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrAlreadySettled)
	assert.Len(t, pub.published(), 2, "second settle must not publish")

	_, err = svc.MarkSettled(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSettlementService_SummaryAndList(t *testing.T) {
	svc, _ := newService(&recordingPublisher{})
	ctx := context.Background()

	a, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	in := validInput()
	in.Amount = core.Money{Pence: 800}
	_, err = svc.Create(ctx, in)
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)
	assert.Equal(t, int64(4000), sum.PendingTotal.Pence)

	// Settling must invalidate the cached summary.
	_, err = svc.MarkSettled(ctx, a.ID)
	require.NoError(t, err)
	sum, err = svc.Summary(ctx, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Settled)
	assert.Equal(t, int64(3200), sum.SettledTotal.Pence)
	assert.Equal(t, int64(800), sum.PendingTotal.Pence)

	list, err := svc.ListByMonth(ctx, "2025-03")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	months, err := svc.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, []month.Key{"2025-03"}, months)

	_, err = svc.Summary(ctx, "2025-13")
	assert.ErrorIs(t, err, month.ErrInvalidKey)
	_, err = svc.ListByMonth(ctx, "March")
	assert.ErrorIs(t, err, month.ErrInvalidKey)
}

type steppingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *steppingClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestSettlementService_SummaryCatchesUpWithOtherWriters(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clock := &steppingClock{t: now}
	web := NewSettlementService(store, nil, clock)
	cli := NewSettlementService(store, nil, month.FixedClock(now))

	created, err := web.Create(ctx, validInput())
	require.NoError(t, err)
	sum, err := web.Summary(ctx, "2025-03")
	require.NoError(t, err)
	require.Equal(t, 0, sum.Settled)

	// A second process settles through its own service.
	_, err = cli.MarkSettled(ctx, created.ID)
	require.NoError(t, err)

	clock.advance(summaryCacheTTL / 2)
	sum, err = web.Summary(ctx, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Settled, "cached summary served within the ttl")

	clock.advance(summaryCacheTTL)
	sum, err = web.Summary(ctx, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Settled)
	assert.LessOrEqual(t, summaryCacheTTL, time.Minute)
}
