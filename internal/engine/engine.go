// Package engine computes every derived financial figure: the summary,
// the unified transaction feed, and budget consumption. Nothing here is
// cached or stored; each call re-reads the ledgers and recomputes, so a
// figure can never go stale relative to the data.
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"spentee/internal/core"
	"spentee/internal/storage"
)

// Synthetic breakdown categories for flows that are not expense rows.
const (
	categoryEMI          = "EMI"
	categoryDownPayments = "Down Payments"
	categorySavings      = "Savings"
)

type Engine struct {
	store storage.LedgerStore
	now   func() time.Time
}

func New(store storage.LedgerStore) *Engine {
	return &Engine{store: store, now: time.Now}
}

// ledgers is one consistent read of all five ledgers.
type ledgers struct {
	expenses []core.Expense
	incomes  []core.Income
	savings  []core.Saving
	upi      []core.UPIPayment
	plans    []core.EMIPlan
}

// loadLedgers fetches the five ledgers concurrently. One failed fetch
// fails the whole read; a partial summary would silently misreport the
// balance.
func (e *Engine) loadLedgers(ctx context.Context, owner core.OwnerFilter) (ledgers, error) {
	var l ledgers
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		l.expenses, err = e.store.ListExpenses(gctx, owner, nil)
		return err
	})
	g.Go(func() error {
		var err error
		l.incomes, err = e.store.ListIncomes(gctx, owner, nil)
		return err
	})
	g.Go(func() error {
		var err error
		l.savings, err = e.store.ListSavings(gctx, owner, nil)
		return err
	})
	g.Go(func() error {
		var err error
		l.upi, err = e.store.ListUPIPayments(gctx, owner, nil)
		return err
	})
	g.Go(func() error {
		var err error
		l.plans, err = e.store.ListEMIPlans(gctx, owner)
		return err
	})

	if err := g.Wait(); err != nil {
		return ledgers{}, fmt.Errorf("load ledgers: %w", err)
	}
	return l, nil
}

// Summarize computes the windowed aggregates and the all-time balance in
// one pass. A nil window means all time. Malformed records are skipped
// and reported in Warnings rather than failing the whole summary.
func (e *Engine) Summarize(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) (core.FinancialSummary, error) {
	l, err := e.loadLedgers(ctx, owner)
	if err != nil {
		return core.FinancialSummary{}, err
	}

	var s core.FinancialSummary
	today := core.DateOf(e.now())

	s.Income.ByType = make(map[core.IncomeType]core.Money)
	s.Expenses.ByCategory = make(map[string]core.Money)

	for _, in := range l.incomes {
		if err := in.Validate(); err != nil {
			s.Warnings = append(s.Warnings, fmt.Sprintf("skipped income %s: %v", in.ID, err))
			continue
		}
		s.Balance.TotalIncome = s.Balance.TotalIncome.Add(in.Amount)
		if in.Date.In(window) {
			s.Income.Total = s.Income.Total.Add(in.Amount)
			s.Income.Count++
			s.Income.ByType[in.Type] = s.Income.ByType[in.Type].Add(in.Amount)
		}
	}

	for _, ex := range l.expenses {
		if err := ex.Validate(); err != nil {
			s.Warnings = append(s.Warnings, fmt.Sprintf("skipped expense %s: %v", ex.ID, err))
			continue
		}
		s.Balance.TotalExpenses = s.Balance.TotalExpenses.Add(ex.Amount)
		if ex.Date.In(window) {
			s.Expenses.Total = s.Expenses.Total.Add(ex.Amount)
			s.Expenses.Count++
			key := string(ex.Category)
			s.Expenses.ByCategory[key] = s.Expenses.ByCategory[key].Add(ex.Amount)
		}
	}

	var upiWindowed core.Money
	for _, u := range l.upi {
		if err := u.Validate(); err != nil {
			s.Warnings = append(s.Warnings, fmt.Sprintf("skipped upi payment %s: %v", u.ID, err))
			continue
		}
		// Pending and failed payments never count toward anything.
		if u.Status != core.UPISuccess {
			continue
		}
		s.Balance.TotalUPI = s.Balance.TotalUPI.Add(u.Amount)
		if u.Date.In(window) {
			upiWindowed = upiWindowed.Add(u.Amount)
			key := string(u.Category)
			s.Expenses.ByCategory[key] = s.Expenses.ByCategory[key].Add(u.Amount)
		}
	}

	var savingsWindowed core.Money
	for _, sv := range l.savings {
		if err := sv.Validate(); err != nil {
			s.Warnings = append(s.Warnings, fmt.Sprintf("skipped saving %s: %v", sv.ID, err))
			continue
		}
		s.Balance.TotalSavings = s.Balance.TotalSavings.Add(sv.Amount)
		if sv.Date.In(window) {
			savingsWindowed = savingsWindowed.Add(sv.Amount)
			s.Savings.Total = s.Savings.Total.Add(sv.Amount)
			s.Savings.Count++
		}
	}

	for _, p := range l.plans {
		if err := p.Validate(); err != nil {
			s.Warnings = append(s.Warnings, fmt.Sprintf("skipped emi plan %s: %v", p.ID, err))
			continue
		}
		for _, problem := range p.CheckInvariants() {
			s.Warnings = append(s.Warnings, fmt.Sprintf("emi plan %s: %s", p.ID, problem))
		}
		s.EMIs.Count++

		// All-time: every recorded payment costs one installment.
		paidTotal := p.MonthlyInstallment.Mul(int64(len(p.PaidMonthDates)))
		s.Balance.TotalEMI = s.Balance.TotalEMI.Add(paidTotal)

		// Windowed: an installment counts in the window holding its
		// payment date, once per month.
		for _, d := range p.PaidMonthDates {
			if d.In(window) {
				s.EMIs.TotalMonthly = s.EMIs.TotalMonthly.Add(p.MonthlyInstallment)
			}
		}

		if p.IncludeDownPayment && !p.DownPayment.IsZero() {
			if !p.StartDate.After(today.Time) {
				s.Balance.TotalDownPayments = s.Balance.TotalDownPayments.Add(p.DownPayment)
			}
			if p.StartDate.In(window) {
				s.EMIs.TotalDownPayments = s.EMIs.TotalDownPayments.Add(p.DownPayment)
			}
		}
	}

	if !s.EMIs.TotalMonthly.IsZero() {
		s.Expenses.ByCategory[categoryEMI] = s.EMIs.TotalMonthly
	}
	if !s.EMIs.TotalDownPayments.IsZero() {
		s.Expenses.ByCategory[categoryDownPayments] = s.EMIs.TotalDownPayments
	}
	if !savingsWindowed.IsZero() {
		s.Expenses.ByCategory[categorySavings] = savingsWindowed
	}

	s.Expenses.TotalAll = s.Expenses.Total.
		Add(s.EMIs.TotalMonthly).
		Add(s.EMIs.TotalDownPayments).
		Add(upiWindowed).
		Add(savingsWindowed)

	s.Balance.TotalAllExpenses = s.Balance.TotalExpenses.
		Add(s.Balance.TotalEMI).
		Add(s.Balance.TotalDownPayments).
		Add(s.Balance.TotalUPI).
		Add(s.Balance.TotalSavings)
	s.Balance.Available = s.Balance.TotalIncome.Sub(s.Balance.TotalAllExpenses)

	return s, nil
}
