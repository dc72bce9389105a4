package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"settlements/internal/cache"
	"settlements/internal/core"
	"settlements/internal/month"
)

const (
	summaryCacheSize = 24

	// summaryCacheTTL bounds how stale a summary gets when another process,
	// such as settlectl, writes to the same database. Writes through this
	// service invalidate the month at once.
	summaryCacheTTL = 30 * time.Second
)

// Store is the persistence the service needs.
type Store interface {
	CreateSettlement(ctx context.Context, s core.Settlement) error
	GetSettlement(ctx context.Context, id string) (core.Settlement, error)
	ListByMonth(ctx context.Context, k month.Key) ([]core.Settlement, error)
	ListMonths(ctx context.Context) ([]month.Key, error)
	UpdateSettlement(ctx context.Context, s core.Settlement, expectedVersion int64) error
	ListNotifications(ctx context.Context, limit int) ([]core.Notification, error)
}

// Publisher delivers settlement changes to the trigger worker.
type Publisher interface {
	PublishChange(ctx context.Context, change core.SettlementChange) error
}

// SettlementService orchestrates settlement writes across the store and the
// change publisher. The store is the source of truth; publishing is best
// effort and the worker's sweep picks up anything that was not delivered.
type SettlementService struct {
	store     Store
	publisher Publisher
	clock     month.Clock
	summaries *cache.LRUCache[month.Key, core.MonthSummary]
}

// NewSettlementService wires a service. publisher may be nil, in which case
// changes are only picked up by the sweep.
func NewSettlementService(store Store, publisher Publisher, clock month.Clock) *SettlementService {
	if clock == nil {
		clock = month.SystemClock{}
	}
	return &SettlementService{
		store:     store,
		publisher: publisher,
		clock:     clock,
		summaries: cache.NewLRUCacheWithClock[month.Key, core.MonthSummary](summaryCacheSize, summaryCacheTTL, clock.Now),
	}
}

// SummaryCache exposes the summary cache so it can be registered for
// periodic cleanup.
func (s *SettlementService) SummaryCache() cache.Cleaner {
	return s.summaries
}

// Create validates in, stores it as a new pending settlement and publishes a
// created change.
func (s *SettlementService) Create(ctx context.Context, in core.Settlement) (core.Settlement, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.PaidBy = strings.TrimSpace(in.PaidBy)
	in.OwedBy = strings.TrimSpace(in.OwedBy)
	in.ID = uuid.NewString()
	in.Status = core.StatusPending
	in.CreatedAt = s.clock.Now().UTC()
	in.SettledAt = time.Time{}
	in.Version = 1

	if err := in.Validate(); err != nil {
		return core.Settlement{}, err
	}
	if err := s.store.CreateSettlement(ctx, in); err != nil {
		return core.Settlement{}, fmt.Errorf("save settlement: %w", err)
	}
	s.summaries.Delete(in.MonthKey())

	after := in
	s.publish(ctx, core.SettlementChange{
		EventID:   core.EventIDFor(core.NotificationSettlementCreated, in.ID),
		Kind:      core.ChangeCreated,
		After:     &after,
		Timestamp: in.CreatedAt,
	})
	return in, nil
}

// MarkSettled moves a pending settlement to settled. Settling twice returns
// core.ErrAlreadySettled.
func (s *SettlementService) MarkSettled(ctx context.Context, id string) (core.Settlement, error) {
	before, err := s.store.GetSettlement(ctx, id)
	if err != nil {
		return core.Settlement{}, err
	}
	if before.IsSettled() {
		return core.Settlement{}, core.ErrAlreadySettled
	}

	after := before
	after.Status = core.StatusSettled
	after.SettledAt = s.clock.Now().UTC()
	after.Version = before.Version + 1

	if err := s.store.UpdateSettlement(ctx, after, before.Version); err != nil {
		if errors.Is(err, core.ErrVersionConflict) {
			// Someone else got there first; report what they did.
			if cur, getErr := s.store.GetSettlement(ctx, id); getErr == nil && cur.IsSettled() {
				return core.Settlement{}, core.ErrAlreadySettled
			}
		}
		return core.Settlement{}, err
	}
	s.summaries.Delete(after.MonthKey())

	s.publish(ctx, core.SettlementChange{
		EventID:   core.EventIDFor(core.NotificationSettlementSettled, id),
		Kind:      core.ChangeUpdated,
		Before:    &before,
		After:     &after,
		Timestamp: after.SettledAt,
	})
	return after, nil
}

func (s *SettlementService) publish(ctx context.Context, change core.SettlementChange) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping change message",
			"event_id", change.EventID)
		return
	}
	if err := s.publisher.PublishChange(ctx, change); err != nil {
		// Don't fail the request, the settlement is saved locally.
		slog.ErrorContext(ctx, "Failed to publish settlement change",
			"event_id", change.EventID,
			"settlement_id", change.SettlementID(),
			"error", err)
	}
}

func (s *SettlementService) Get(ctx context.Context, id string) (core.Settlement, error) {
	return s.store.GetSettlement(ctx, id)
}

// ListByMonth returns the settlements dated in k.
func (s *SettlementService) ListByMonth(ctx context.Context, k month.Key) ([]core.Settlement, error) {
	if err := month.Validate(string(k)); err != nil {
		return nil, err
	}
	return s.store.ListByMonth(ctx, k)
}

// Months lists every month that has settlements, newest first.
func (s *SettlementService) Months(ctx context.Context) ([]month.Key, error) {
	return s.store.ListMonths(ctx)
}

// Summary returns the totals for k, served from cache when fresh.
func (s *SettlementService) Summary(ctx context.Context, k month.Key) (core.MonthSummary, error) {
	if err := month.Validate(string(k)); err != nil {
		return core.MonthSummary{}, err
	}
	if sum, ok := s.summaries.Get(k); ok {
		return sum, nil
	}
	items, err := s.store.ListByMonth(ctx, k)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("summary for %s: %w", k, err)
	}
	sum := core.Summarize(k, items)
	s.summaries.Set(k, sum)
	return sum, nil
}

// Notifications returns the most recent notifications, newest first.
func (s *SettlementService) Notifications(ctx context.Context, limit int) ([]core.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListNotifications(ctx, limit)
}
