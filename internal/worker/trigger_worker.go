package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"settlements/internal/amqp"
	"settlements/internal/core"
	"settlements/internal/triggers"
)

const (
	DefaultSweepInterval  = time.Minute
	DefaultSweepBatchSize = 50
)

// Consumer delivers settlement changes until ctx ends.
type Consumer interface {
	ConsumeChangesWithReconnect(ctx context.Context, handler amqp.ChangeHandler) error
}

// PendingLister finds settlements whose current state has not been
// notified yet.
type PendingLister interface {
	ListUnnotified(ctx context.Context, limit int) ([]core.Settlement, error)
}

// Dispatcher runs the trigger for one change.
type Dispatcher interface {
	Dispatch(ctx context.Context, change core.SettlementChange) error
}

// TriggerWorker is the runtime for the settlement triggers. Changes arrive
// over AMQP; a periodic sweep covers messages that were never published or
// were lost.
type TriggerWorker struct {
	consumer      Consumer
	pending       PendingLister
	dispatcher    Dispatcher
	sweepInterval time.Duration
	batchSize     int
}

// NewTriggerWorker builds a worker. consumer may be nil, in which case only
// the sweep runs.
func NewTriggerWorker(consumer Consumer, pending PendingLister, dispatcher Dispatcher, sweepInterval time.Duration, batchSize int) *TriggerWorker {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	return &TriggerWorker{
		consumer:      consumer,
		pending:       pending,
		dispatcher:    dispatcher,
		sweepInterval: sweepInterval,
		batchSize:     batchSize,
	}
}

// Run sweeps once, then consumes changes and sweeps periodically until ctx
// is cancelled.
func (w *TriggerWorker) Run(ctx context.Context) error {
	if n, err := w.Sweep(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup sweep failed", "error", err)
	} else if n > 0 {
		slog.InfoContext(ctx, "Startup sweep dispatched pending settlements", "count", n)
	} else {
		slog.InfoContext(ctx, "No pending settlements found on startup")
	}

	g, ctx := errgroup.WithContext(ctx)

	if w.consumer != nil {
		g.Go(func() error {
			return w.consumer.ConsumeChangesWithReconnect(ctx, w.HandleChange)
		})
	} else {
		slog.WarnContext(ctx, "No AMQP consumer configured, relying on periodic sweep only")
	}

	g.Go(func() error {
		ticker := time.NewTicker(w.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
					slog.ErrorContext(ctx, "Periodic sweep failed", "error", err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleChange dispatches a change delivered by the broker. Malformed
// changes are marked so the broker drops them instead of redelivering.
func (w *TriggerWorker) HandleChange(ctx context.Context, change core.SettlementChange) error {
	err := w.dispatcher.Dispatch(ctx, change)
	if errors.Is(err, triggers.ErrMalformedChange) {
		return fmt.Errorf("%w: %w", amqp.ErrDiscard, err)
	}
	return err
}

// Sweep dispatches synthesized changes for every settlement that is missing
// a notification. A settled settlement replays its creation before its
// settle transition; changes already handled are skipped by event id. It
// returns how many changes were dispatched successfully.
func (w *TriggerWorker) Sweep(ctx context.Context) (int, error) {
	pending, err := w.pending.ListUnnotified(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unnotified settlements: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing unnotified settlements", "count", len(pending))

	done := 0
	for _, s := range pending {
		for _, change := range SynthesizeChanges(s) {
			if err := w.dispatcher.Dispatch(ctx, change); err != nil {
				slog.ErrorContext(ctx, "Failed to dispatch synthesized change",
					"settlement_id", s.ID,
					"event_id", change.EventID,
					"error", err)
				// The settle notification must not precede the creation one.
				break
			}
			done++
		}
	}
	return done, nil
}

// SynthesizeChanges rebuilds the changes that should have announced s, in
// order: the creation, then the settle transition when s is settled. Event
// ids match the ones the web process publishes, so a late original message
// is recognised as a duplicate.
func SynthesizeChanges(s core.Settlement) []core.SettlementChange {
	before := s
	before.Status = core.StatusPending
	before.SettledAt = time.Time{}
	if s.IsSettled() && before.Version > 1 {
		before.Version--
	}

	created := before
	changes := []core.SettlementChange{{
		EventID:   core.EventIDFor(core.NotificationSettlementCreated, s.ID),
		Kind:      core.ChangeCreated,
		After:     &created,
		Timestamp: s.CreatedAt,
	}}
	if !s.IsSettled() {
		return changes
	}

	after := s
	return append(changes, core.SettlementChange{
		EventID:   core.EventIDFor(core.NotificationSettlementSettled, s.ID),
		Kind:      core.ChangeUpdated,
		Before:    &before,
		After:     &after,
		Timestamp: s.SettledAt,
	})
}
