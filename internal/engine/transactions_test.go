package engine

import (
	"context"
	"testing"
	"time"

	"spentee/internal/core"
)

func TestListTransactionsMaterializesEMIActivity(t *testing.T) {
	e, store := newTestEngine(t)
	seedScenario(t, store)

	feed, err := e.ListTransactions(context.Background(), core.OwnerOnly("u1"), nil)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}

	byKind := map[core.TransactionKind]core.UnifiedTransaction{}
	for _, tx := range feed {
		byKind[tx.Kind] = tx
	}

	payment, ok := byKind[core.KindEMIPayment]
	if !ok {
		t.Fatal("feed has no emi-payment entry")
	}
	if payment.SignedAmount.Cents != -2_000_00 {
		t.Errorf("payment amount = %d, want -200000", payment.SignedAmount.Cents)
	}
	if payment.Description != "Bike Loan - EMI Payment" {
		t.Errorf("payment description = %q", payment.Description)
	}

	down, ok := byKind[core.KindDownPayment]
	if !ok {
		t.Fatal("feed has no emi-downpayment entry")
	}
	if down.SignedAmount.Cents != -10_000_00 {
		t.Errorf("down payment amount = %d, want -1000000", down.SignedAmount.Cents)
	}
	if down.Description != "Bike Loan - Down Payment" {
		t.Errorf("down payment description = %q", down.Description)
	}

	if byKind[core.KindIncome].SignedAmount.Cents != 50_000_00 {
		t.Errorf("income amount = %d, want positive 5000000", byKind[core.KindIncome].SignedAmount.Cents)
	}
	if byKind[core.KindExpense].SignedAmount.Cents != -1_200_00 {
		t.Errorf("expense amount = %d, want -120000", byKind[core.KindExpense].SignedAmount.Cents)
	}
}

func TestListTransactionsStableIDs(t *testing.T) {
	e, store := newTestEngine(t)
	seedScenario(t, store)
	ctx := context.Background()

	first, err := e.ListTransactions(ctx, core.OwnerOnly("u1"), nil)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	second, err := e.ListTransactions(ctx, core.OwnerOnly("u1"), nil)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("feed length changed between calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("entry %d id changed: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestListTransactionsOrderingAndFilters(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	store.CreateExpense(ctx, core.Expense{
		OwnerID: "u1", Amount: core.Money{Cents: 100}, Category: core.CategoryFood,
		Date:      core.NewDate(2024, time.March, 1),
		CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	store.CreateExpense(ctx, core.Expense{
		OwnerID: "u1", Amount: core.Money{Cents: 200}, Category: core.CategoryFood,
		Date:      core.NewDate(2024, time.March, 2),
		CreatedAt: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
	})
	// Failed payments never reach the feed.
	store.CreateUPIPayment(ctx, core.UPIPayment{
		OwnerID: "u1", TransactionID: "tx1", Amount: core.Money{Cents: 300},
		App: core.UPIAppPaytm, RecipientName: "Shop", Category: core.CategoryShopping,
		Date: core.NewDate(2024, time.March, 3), Status: core.UPIFailed,
	})

	feed, err := e.ListTransactions(ctx, core.OwnerOnly("u1"), nil)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("len(feed) = %d, want 2 (failed UPI excluded)", len(feed))
	}
	if !feed[0].SortKey.After(feed[1].SortKey) {
		t.Errorf("feed not newest-first: %v then %v", feed[0].SortKey, feed[1].SortKey)
	}
}

func TestListTransactionsWindow(t *testing.T) {
	e, store := newTestEngine(t)
	seedScenario(t, store)

	window := &core.DateRange{
		Start: core.NewDate(2024, time.February, 1),
		End:   core.NewDate(2024, time.February, 29),
	}
	feed, err := e.ListTransactions(context.Background(), core.OwnerOnly("u1"), window)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(feed) != 0 {
		t.Errorf("feed = %+v, want empty for a month with no activity", feed)
	}
}
