// Package triggers holds the handlers that react to settlement document
// changes: one when a settlement is created and one when it becomes
// settled.
package triggers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"settlements/internal/core"
	"settlements/internal/log"
	"settlements/internal/month"
	"settlements/internal/notify"
	"settlements/internal/sheets"
)

// DefaultTimeout bounds one trigger invocation.
const DefaultTimeout = 30 * time.Second

// ErrMalformedChange is returned for changes that can never be processed.
// Retrying them is pointless.
var ErrMalformedChange = errors.New("malformed settlement change")

// NotificationStore persists notifications, at most one per event id.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n core.Notification) (inserted bool, err error)
}

type Triggers struct {
	store   NotificationStore
	ledger  sheets.LedgerWriter
	loc     notify.Localizer
	timeout time.Duration
	clock   month.Clock
	logger  *log.Logger
}

type Option func(*Triggers)

// WithLedger appends a ledger row for every notification written.
func WithLedger(l sheets.LedgerWriter) Option {
	return func(t *Triggers) { t.ledger = l }
}

func WithLocalizer(loc notify.Localizer) Option {
	return func(t *Triggers) { t.loc = loc }
}

// WithTimeout sets the per-invocation deadline. Non-positive values keep
// the default.
func WithTimeout(d time.Duration) Option {
	return func(t *Triggers) {
		if d > 0 {
			t.timeout = d
		}
	}
}

func WithClock(c month.Clock) Option {
	return func(t *Triggers) { t.clock = c }
}

func WithLogger(l *log.Logger) Option {
	return func(t *Triggers) { t.logger = l.WithComponent(log.ComponentTrigger) }
}

func New(store NotificationStore, opts ...Option) *Triggers {
	t := &Triggers{
		store:   store,
		loc:     notify.NewPrinter(),
		timeout: DefaultTimeout,
		clock:   month.SystemClock{},
		logger:  log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentTrigger}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnSettlementCreated runs once for every newly created settlement.
func (t *Triggers) OnSettlementCreated(ctx context.Context, change core.SettlementChange) error {
	if change.EventID == "" || change.After == nil {
		return fmt.Errorf("%w: created change needs an event id and a document", ErrMalformedChange)
	}
	return t.fire(ctx, change.EventID, core.NotificationSettlementCreated, *change.After)
}

// OnSettlementSettled runs for an updated settlement. It does nothing unless
// the update moved the settlement from pending to settled.
func (t *Triggers) OnSettlementSettled(ctx context.Context, change core.SettlementChange) error {
	if change.EventID == "" || change.Before == nil || change.After == nil {
		return fmt.Errorf("%w: update needs an event id and both document versions", ErrMalformedChange)
	}
	if !change.IsSettleTransition() {
		t.logger.DebugContext(ctx, "Update is not a settle transition, skipping",
			log.FieldEventID, change.EventID,
			log.FieldSettlementID, change.SettlementID(),
			"before_status", change.Before.Status,
			"after_status", change.After.Status)
		return nil
	}
	return t.fire(ctx, change.EventID, core.NotificationSettlementSettled, *change.After)
}

func (t *Triggers) fire(ctx context.Context, eventID string, kind core.NotificationKind, s core.Settlement) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	fields := log.NewFields().
		WithEvent(eventID, string(kind)).
		WithSettlement(s.ID, s.Amount.Pence, s.PaidBy, s.OwedBy)

	out := notify.Render(t.loc, kind, s)
	now := t.clock.Now().UTC()
	n := core.Notification{
		ID:           uuid.NewString(),
		EventID:      eventID,
		SettlementID: s.ID,
		Kind:         kind,
		Title:        out.Title,
		Body:         out.Body,
		CreatedAt:    now,
	}

	inserted, err := t.store.SaveNotification(ctx, n)
	if err != nil {
		return fmt.Errorf("save notification for %s: %w", s.ID, err)
	}
	if !inserted {
		t.logger.InfoContext(ctx, "Event already handled, skipping", fields.ToSlice()...)
		return nil
	}
	t.logger.InfoContext(ctx, "Notification written", fields.ToSlice()...)

	if t.ledger == nil {
		return nil
	}
	// The notification is the record of delivery; a failed ledger append is
	// reported but does not make the event redeliver.
	ref, err := t.ledger.AppendLedgerRow(ctx, core.NewLedgerRow(eventID, kind, s, now))
	if err != nil {
		t.logger.ErrorContext(ctx, "Ledger append failed", fields.WithError(err).ToSlice()...)
		return nil
	}
	t.logger.DebugContext(ctx, "Ledger row appended", append(fields.ToSlice(), log.FieldLedgerRef, ref)...)
	return nil
}
