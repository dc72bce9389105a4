// Package memory is an in-process ledger used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"settlements/internal/core"
	ports "settlements/internal/sheets"
)

type Ledger struct {
	mu   sync.Mutex
	rows []core.LedgerRow
}

var _ ports.LedgerWriter = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{}
}

// AppendLedgerRow stores the row and returns a synthetic row reference.
func (l *Ledger) AppendLedgerRow(_ context.Context, row core.LedgerRow) (string, error) {
	if err := row.Validate(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, row)
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (l *Ledger) Rows() []core.LedgerRow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.LedgerRow(nil), l.rows...)
}
