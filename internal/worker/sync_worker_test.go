package worker

import (
	"context"
	"testing"
	"time"

	"spentee/internal/amqp"
	"spentee/internal/core"
	"spentee/internal/sheets/memory"
	"spentee/internal/storage"
)

func TestProcessPendingExportsRows(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	writer := memory.New()
	w := NewSyncWorker(store, writer, 10)

	expense, err := store.CreateExpense(ctx, core.Expense{
		OwnerID:  "u1",
		Amount:   core.Money{Cents: 450_50},
		Category: core.CategoryFood,
		Date:     core.NewDate(2024, time.June, 10),
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if _, err := store.CreateIncome(ctx, core.Income{
		OwnerID: "u1",
		Amount:  core.Money{Cents: 50_000_00},
		Source:  "Acme",
		Type:    core.IncomeSalary,
		Date:    core.NewDate(2024, time.June, 1),
	}); err != nil {
		t.Fatalf("CreateIncome() error = %v", err)
	}

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}

	rows := writer.Rows()
	if len(rows) != 2 {
		t.Fatalf("exported %d rows, want 2", len(rows))
	}
	amounts := map[string]string{}
	for _, row := range rows {
		amounts[row.Kind] = row.Amount
	}
	if amounts[storage.SyncKindExpense] != "-450.50" {
		t.Errorf("expense amount = %q, want -450.50", amounts[storage.SyncKindExpense])
	}
	if amounts[storage.SyncKindIncome] != "50000.00" {
		t.Errorf("income amount = %q, want 50000.00", amounts[storage.SyncKindIncome])
	}

	pending, err := store.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSync() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after export = %d items, want 0", len(pending))
	}

	// Updates re-queue the row for export.
	expense.Description = "groceries"
	if _, err := store.UpdateExpense(ctx, core.OwnerOnly("u1"), expense); err != nil {
		t.Fatalf("UpdateExpense() error = %v", err)
	}
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() after update error = %v", err)
	}
	if got := len(writer.Rows()); got != 3 {
		t.Errorf("exported rows after update = %d, want 3", got)
	}
}

func TestHandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	writer := memory.New()
	w := NewSyncWorker(store, writer, 10)

	saving, err := store.CreateSaving(ctx, core.Saving{
		OwnerID: "u1",
		Amount:  core.Money{Cents: 5_000_00},
		Date:    core.NewDate(2024, time.June, 5),
	})
	if err != nil {
		t.Fatalf("CreateSaving() error = %v", err)
	}

	msg := amqp.NewTransactionSyncMessage(storage.SyncKindSaving, saving.ID, false)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}
	if rows := writer.Rows(); len(rows) != 1 || rows[0].Amount != "-5000.00" {
		t.Errorf("rows = %+v, want one saving of -5000.00", rows)
	}

	// Deletion messages are acknowledged without touching the sheet.
	del := amqp.NewTransactionSyncMessage(storage.SyncKindSaving, saving.ID, true)
	if err := w.HandleSyncMessage(ctx, del); err != nil {
		t.Errorf("HandleSyncMessage(deleted) error = %v", err)
	}

	// A row deleted between publish and delivery is not an error.
	gone := amqp.NewTransactionSyncMessage(storage.SyncKindExpense, "no-such-id", false)
	if err := w.HandleSyncMessage(ctx, gone); err != nil {
		t.Errorf("HandleSyncMessage(vanished) error = %v", err)
	}

	bad := amqp.NewTransactionSyncMessage("bogus", "id", false)
	if err := w.HandleSyncMessage(ctx, bad); err == nil {
		t.Error("HandleSyncMessage(unknown kind) should fail")
	}

	if got := len(writer.Rows()); got != 1 {
		t.Errorf("rows after non-exporting messages = %d, want 1", got)
	}
}

func TestProcessPendingMarksFailures(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	writer := memory.New()
	w := NewSyncWorker(store, writer, 10)

	if _, err := store.CreateExpense(ctx, core.Expense{
		OwnerID:  "u1",
		Amount:   core.Money{Cents: 100_00},
		Category: core.CategoryFood,
		Date:     core.NewDate(2024, time.June, 10),
	}); err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	writer.FailNext = true
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if got := len(writer.Rows()); got != 0 {
		t.Errorf("rows after failed export = %d, want 0", got)
	}

	// The failed row is marked and no longer pending.
	pending, err := store.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSync() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after failure = %d items, want 0", len(pending))
	}
}

func TestBackoffWait(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{3, 8 * time.Second},
		{5, 30 * time.Second},
		{12, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffWait(tt.attempt); got != tt.expected {
			t.Errorf("backoffWait(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}
