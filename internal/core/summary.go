package core

import "time"

// TransactionKind labels entries in the unified transaction feed.
type TransactionKind string

const (
	KindExpense     TransactionKind = "expense"
	KindIncome      TransactionKind = "income"
	KindUPI         TransactionKind = "upi"
	KindEMIPayment  TransactionKind = "emi-payment"
	KindDownPayment TransactionKind = "emi-downpayment"
	KindSavings     TransactionKind = "savings"
)

// UnifiedTransaction is one entry of the merged, signed transaction feed.
// Outflows carry a negative amount, income a positive one.
type UnifiedTransaction struct {
	ID           string          `json:"id"`
	Kind         TransactionKind `json:"kind"`
	SignedAmount Money           `json:"signedAmount"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Date         Date            `json:"date"`

	// SortKey is the creation/event timestamp used for newest-first
	// ordering, falling back to the record date when none exists.
	SortKey time.Time `json:"sortKey"`
}

// IncomeSummary aggregates the income ledger.
type IncomeSummary struct {
	Total  Money                `json:"total"`
	Count  int                  `json:"count"`
	ByType map[IncomeType]Money `json:"byType"`
}

// ExpenseSummary aggregates outflows. TotalAll includes EMIs, down
// payments, UPI, and savings on top of plain expenses, and always equals
// the sum of ByCategory.
type ExpenseSummary struct {
	Total      Money            `json:"total"`
	TotalAll   Money            `json:"totalAll"`
	Count      int              `json:"count"`
	ByCategory map[string]Money `json:"byCategory"`
}

// EMISummary aggregates installment activity for the reporting window.
type EMISummary struct {
	TotalMonthly      Money `json:"totalMonthly"`
	TotalDownPayments Money `json:"totalDownPayments"`
	Count             int   `json:"count"`
}

// SavingsSummary aggregates the savings ledger for the window.
type SavingsSummary struct {
	Total Money `json:"total"`
	Count int   `json:"count"`
}

// Balance carries the cumulative, all-time figures. Available is income
// minus every recorded outflow, regardless of any reporting window.
type Balance struct {
	Available         Money `json:"available"`
	TotalIncome       Money `json:"totalIncome"`
	TotalExpenses     Money `json:"totalExpenses"`
	TotalEMI          Money `json:"totalEMI"`
	TotalDownPayments Money `json:"totalDownPayments"`
	TotalUPI          Money `json:"totalUPI"`
	TotalSavings      Money `json:"totalSavings"`
	TotalAllExpenses  Money `json:"totalAllExpenses"`
}

// FinancialSummary is the engine's answer to Summarize: windowed ledger
// aggregates plus the all-time balance. Warnings surface invariant
// violations and skipped malformed records; a summary with warnings is
// best-effort, never withheld.
type FinancialSummary struct {
	Income   IncomeSummary  `json:"income"`
	Expenses ExpenseSummary `json:"expenses"`
	EMIs     EMISummary     `json:"emis"`
	Savings  SavingsSummary `json:"savings"`
	Balance  Balance        `json:"balance"`
	Warnings []string       `json:"warnings,omitempty"`
}

// BudgetStatus is a budget with its derived consumption figures.
type BudgetStatus struct {
	Budget
	Spent          Money   `json:"spent"`
	Remaining      Money   `json:"remaining"`
	PercentageUsed float64 `json:"percentageUsed"`
}

// OverBudget reports whether spending exceeded the cap.
func (b BudgetStatus) OverBudget() bool { return b.PercentageUsed > 100 }
