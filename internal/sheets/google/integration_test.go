//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"settlements/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_AppendLedgerRow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}

	now := time.Now().UTC()
	s := core.Settlement{
		ID:          uuid.NewString(),
		Description: "Integration test row",
		Amount:      core.Money{Pence: 1},
		PaidBy:      "Integration",
		OwedBy:      "Test",
		Date:        core.NewDate(now.Year(), int(now.Month()), now.Day()),
		Status:      core.StatusPending,
	}
	ref, err := client.AppendLedgerRow(ctx, core.NewLedgerRow(uuid.NewString(), core.NotificationSettlementCreated, s, now))
	if err != nil {
		t.Fatalf("AppendLedgerRow: %v", err)
	}
	if ref == "" {
		t.Error("expected a row reference")
	}
	t.Logf("appended %s", ref)
}
