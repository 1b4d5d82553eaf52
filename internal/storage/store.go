// Package storage persists the ledger. LedgerStore is the single seam the
// HTTP layer and the aggregation engine depend on; SQLite backs it in
// production and MemoryStore backs it in tests.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spentee/internal/core"
)

var (
	// ErrNotFound is returned when a record does not exist or is not
	// visible to the caller's owner filter.
	ErrNotFound = errors.New("record not found")

	// ErrConcurrentModification is returned by UpdateEMIPlan when the
	// plan changed between read and write. Callers may retry.
	ErrConcurrentModification = errors.New("plan was modified concurrently")

	// ErrUserExists is returned when registering an already-taken email.
	ErrUserExists = errors.New("user already exists")
)

// Sync kinds identify which table a pending-sync item belongs to.
const (
	SyncKindExpense = "expense"
	SyncKindIncome  = "income"
	SyncKindSaving  = "saving"
	SyncKindUPI     = "upi"
)

// SyncItem is a ledger row waiting to be exported to the spreadsheet.
type SyncItem struct {
	Kind      string
	ID        string
	CreatedAt time.Time
}

type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	GetExpense(ctx context.Context, owner core.OwnerFilter, id string) (core.Expense, error)
	ListExpenses(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) ([]core.Expense, error)
	UpdateExpense(ctx context.Context, owner core.OwnerFilter, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, owner core.OwnerFilter, id string) error
	SumExpensesByCategory(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) (map[core.ExpenseCategory]core.Money, error)
}

type IncomeStore interface {
	CreateIncome(ctx context.Context, in core.Income) (core.Income, error)
	GetIncome(ctx context.Context, owner core.OwnerFilter, id string) (core.Income, error)
	ListIncomes(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) ([]core.Income, error)
	UpdateIncome(ctx context.Context, owner core.OwnerFilter, in core.Income) (core.Income, error)
	DeleteIncome(ctx context.Context, owner core.OwnerFilter, id string) error
}

type SavingStore interface {
	CreateSaving(ctx context.Context, s core.Saving) (core.Saving, error)
	GetSaving(ctx context.Context, owner core.OwnerFilter, id string) (core.Saving, error)
	ListSavings(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) ([]core.Saving, error)
	UpdateSaving(ctx context.Context, owner core.OwnerFilter, s core.Saving) (core.Saving, error)
	DeleteSaving(ctx context.Context, owner core.OwnerFilter, id string) error
}

type UPIStore interface {
	CreateUPIPayment(ctx context.Context, u core.UPIPayment) (core.UPIPayment, error)
	GetUPIPayment(ctx context.Context, owner core.OwnerFilter, id string) (core.UPIPayment, error)
	ListUPIPayments(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) ([]core.UPIPayment, error)
	UpdateUPIPayment(ctx context.Context, owner core.OwnerFilter, u core.UPIPayment) (core.UPIPayment, error)
	DeleteUPIPayment(ctx context.Context, owner core.OwnerFilter, id string) error
}

type EMIStore interface {
	CreateEMIPlan(ctx context.Context, p core.EMIPlan) (core.EMIPlan, error)
	GetEMIPlan(ctx context.Context, owner core.OwnerFilter, id string) (core.EMIPlan, error)
	ListEMIPlans(ctx context.Context, owner core.OwnerFilter) ([]core.EMIPlan, error)

	// UpdateEMIPlan loads the plan, applies mutate and writes the result
	// back guarded by the plan's version. A version mismatch at write
	// time yields ErrConcurrentModification and no change.
	UpdateEMIPlan(ctx context.Context, owner core.OwnerFilter, id string, mutate func(core.EMIPlan) (core.EMIPlan, error)) (core.EMIPlan, error)
	DeleteEMIPlan(ctx context.Context, owner core.OwnerFilter, id string) error
}

type BudgetStore interface {
	CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	GetBudget(ctx context.Context, owner core.OwnerFilter, id string) (core.Budget, error)
	ListBudgets(ctx context.Context, owner core.OwnerFilter) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, owner core.OwnerFilter, b core.Budget) (core.Budget, error)
	DeleteBudget(ctx context.Context, owner core.OwnerFilter, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
}

// SyncQueue tracks which ledger rows still need exporting to the sheet.
type SyncQueue interface {
	PendingSync(ctx context.Context, limit int) ([]SyncItem, error)
	MarkSynced(ctx context.Context, kind, id string) error
	MarkSyncError(ctx context.Context, kind, id string) error
}

type LedgerStore interface {
	ExpenseStore
	IncomeStore
	SavingStore
	UPIStore
	EMIStore
	BudgetStore
	UserStore
	SyncQueue
	Close() error
}

// Open selects a backend by name: "sqlite" (default) or "memory".
func Open(backend, dbPath string) (LedgerStore, error) {
	switch backend {
	case "", "sqlite":
		return NewSQLiteRepository(dbPath)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown data backend: %s", backend)
	}
}
