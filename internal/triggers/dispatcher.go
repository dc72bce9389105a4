package triggers

import (
	"context"
	"fmt"

	"settlements/internal/core"
	"settlements/internal/log"
)

// Dispatcher routes a settlement change to the trigger that handles it.
type Dispatcher struct {
	triggers *Triggers
}

func NewDispatcher(t *Triggers) *Dispatcher {
	return &Dispatcher{triggers: t}
}

// Dispatch runs the trigger for change. Updates that are not a settle
// transition are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, change core.SettlementChange) error {
	switch change.Kind {
	case core.ChangeCreated:
		return d.triggers.OnSettlementCreated(ctx, change)
	case core.ChangeUpdated:
		return d.triggers.OnSettlementSettled(ctx, change)
	default:
		d.triggers.logger.WarnContext(ctx, "Unknown change kind",
			log.FieldEventID, change.EventID,
			log.FieldEventKind, change.Kind)
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedChange, change.Kind)
	}
}
