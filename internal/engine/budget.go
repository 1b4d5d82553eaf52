package engine

import (
	"context"

	"spentee/internal/core"
)

// EvaluateBudget derives a budget's consumption over its own window.
// Spending is plain expenses plus successful UPI payments in the matching
// category; the Overall pseudo-category matches every category.
func (e *Engine) EvaluateBudget(ctx context.Context, owner core.OwnerFilter, b core.Budget) (core.BudgetStatus, error) {
	window := &core.DateRange{Start: b.StartDate, End: b.EndDate}

	// Expenses are pre-aggregated by the store; only UPI payments need a
	// row scan, since failed and pending ones are excluded.
	sums, err := e.store.SumExpensesByCategory(ctx, owner, window)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	upi, err := e.store.ListUPIPayments(ctx, owner, window)
	if err != nil {
		return core.BudgetStatus{}, err
	}

	var spent core.Money
	for category, sum := range sums {
		if budgetMatches(b.Category, category) {
			spent = spent.Add(sum)
		}
	}
	for _, u := range upi {
		if u.Status == core.UPISuccess && budgetMatches(b.Category, u.Category) {
			spent = spent.Add(u.Amount)
		}
	}

	status := core.BudgetStatus{
		Budget:    b,
		Spent:     spent,
		Remaining: b.Amount.Sub(spent),
	}
	if b.Amount.Cents > 0 {
		status.PercentageUsed = float64(spent.Cents) / float64(b.Amount.Cents) * 100
	}
	return status, nil
}

// EvaluateAllBudgets derives consumption for every active budget.
// Deactivated budgets stay stored but are left out of the report;
// EvaluateBudget still works on them when called directly.
func (e *Engine) EvaluateAllBudgets(ctx context.Context, owner core.OwnerFilter) ([]core.BudgetStatus, error) {
	budgets, err := e.store.ListBudgets(ctx, owner)
	if err != nil {
		return nil, err
	}

	statuses := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		if !b.IsActive {
			continue
		}
		status, err := e.EvaluateBudget(ctx, owner, b)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func budgetMatches(budgetCategory, spendCategory core.ExpenseCategory) bool {
	return budgetCategory == core.BudgetCategoryOverall || budgetCategory == spendCategory
}
