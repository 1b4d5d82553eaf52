package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spentee/internal/core"
)

func newTestSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "spentee.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// The pre-aggregated category sums must agree with summing the listed
// rows by hand, under the same owner and window filters.
func TestSQLiteSumExpensesByCategory(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	rows := []core.Expense{
		{OwnerID: "u1", Amount: core.Money{Cents: 500_00}, Category: core.CategoryFood, Date: core.NewDate(2024, time.June, 1)},
		{OwnerID: "u1", Amount: core.Money{Cents: 300_00}, Category: core.CategoryFood, Date: core.NewDate(2024, time.June, 20)},
		{OwnerID: "u1", Amount: core.Money{Cents: 700_00}, Category: core.CategoryBills, Date: core.NewDate(2024, time.June, 10)},
		// Outside the June window.
		{OwnerID: "u1", Amount: core.Money{Cents: 999_00}, Category: core.CategoryFood, Date: core.NewDate(2024, time.July, 2)},
		// Another owner.
		{OwnerID: "u2", Amount: core.Money{Cents: 111_00}, Category: core.CategoryFood, Date: core.NewDate(2024, time.June, 5)},
	}
	for _, e := range rows {
		if _, err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
	}

	june := &core.DateRange{
		Start: core.NewDate(2024, time.June, 1),
		End:   core.NewDate(2024, time.June, 30),
	}

	tests := []struct {
		name   string
		owner  core.OwnerFilter
		window *core.DateRange
	}{
		{"owner windowed", core.OwnerOnly("u1"), june},
		{"owner all time", core.OwnerOnly("u1"), nil},
		{"all owners windowed", core.AllOwners(), june},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sums, err := repo.SumExpensesByCategory(ctx, tt.owner, tt.window)
			if err != nil {
				t.Fatalf("SumExpensesByCategory: %v", err)
			}

			list, err := repo.ListExpenses(ctx, tt.owner, tt.window)
			if err != nil {
				t.Fatalf("ListExpenses: %v", err)
			}
			want := make(map[core.ExpenseCategory]core.Money)
			for _, e := range list {
				want[e.Category] = want[e.Category].Add(e.Amount)
			}

			if len(sums) != len(want) {
				t.Fatalf("len(sums) = %d, want %d", len(sums), len(want))
			}
			for category, sum := range want {
				if sums[category].Cents != sum.Cents {
					t.Errorf("%s = %d, want %d", category, sums[category].Cents, sum.Cents)
				}
			}
		})
	}

	sums, err := repo.SumExpensesByCategory(ctx, core.OwnerOnly("u1"), june)
	if err != nil {
		t.Fatalf("SumExpensesByCategory: %v", err)
	}
	if sums[core.CategoryFood].Cents != 800_00 {
		t.Errorf("Food = %d, want 80000", sums[core.CategoryFood].Cents)
	}
	if sums[core.CategoryBills].Cents != 700_00 {
		t.Errorf("Bills = %d, want 70000", sums[core.CategoryBills].Cents)
	}
}
