package sheets

import (
	"context"

	"settlements/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter appends one row per trigger invocation to an external
	// ledger and returns a reference to the written row.
	LedgerWriter interface {
		AppendLedgerRow(ctx context.Context, row core.LedgerRow) (rowRef string, err error)
	}
)
