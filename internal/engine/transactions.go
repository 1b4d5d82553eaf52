package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"spentee/internal/core"
)

// ListTransactions merges all five ledgers into one signed, newest-first
// feed. EMI activity is materialized on the fly: one entry per recorded
// payment month and one per included down payment; the plans themselves
// never appear as rows.
func (e *Engine) ListTransactions(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) ([]core.UnifiedTransaction, error) {
	l, err := e.loadLedgers(ctx, owner)
	if err != nil {
		return nil, err
	}

	var feed []core.UnifiedTransaction

	for _, ex := range l.expenses {
		if !ex.Date.In(window) {
			continue
		}
		feed = append(feed, core.UnifiedTransaction{
			ID:           ex.ID,
			Kind:         core.KindExpense,
			SignedAmount: core.Money{Cents: -ex.Amount.Cents},
			Category:     string(ex.Category),
			Description:  ex.Description,
			Date:         ex.Date,
			SortKey:      sortKey(ex.CreatedAt, ex.Date),
		})
	}

	for _, in := range l.incomes {
		if !in.Date.In(window) {
			continue
		}
		desc := in.Description
		if desc == "" {
			desc = in.Source
		}
		feed = append(feed, core.UnifiedTransaction{
			ID:           in.ID,
			Kind:         core.KindIncome,
			SignedAmount: in.Amount,
			Category:     string(in.Type),
			Description:  desc,
			Date:         in.Date,
			SortKey:      sortKey(in.CreatedAt, in.Date),
		})
	}

	for _, sv := range l.savings {
		if !sv.Date.In(window) {
			continue
		}
		feed = append(feed, core.UnifiedTransaction{
			ID:           sv.ID,
			Kind:         core.KindSavings,
			SignedAmount: core.Money{Cents: -sv.Amount.Cents},
			Category:     categorySavings,
			Description:  sv.Description,
			Date:         sv.Date,
			SortKey:      sortKey(sv.CreatedAt, sv.Date),
		})
	}

	for _, u := range l.upi {
		if u.Status != core.UPISuccess || !u.Date.In(window) {
			continue
		}
		feed = append(feed, core.UnifiedTransaction{
			ID:           u.ID,
			Kind:         core.KindUPI,
			SignedAmount: core.Money{Cents: -u.Amount.Cents},
			Category:     string(u.Category),
			Description:  fmt.Sprintf("%s - %s", u.App, u.RecipientName),
			Date:         u.Date,
			SortKey:      sortKey(u.CreatedAt, u.Date),
		})
	}

	for _, p := range l.plans {
		for _, d := range p.PaidMonthDates {
			if !d.In(window) {
				continue
			}
			feed = append(feed, core.UnifiedTransaction{
				ID:           fmt.Sprintf("%s_emi_%s", p.ID, d.Format("2006-01-02")),
				Kind:         core.KindEMIPayment,
				SignedAmount: core.Money{Cents: -p.MonthlyInstallment.Cents},
				Category:     categoryEMI,
				Description:  p.Name + " - EMI Payment",
				Date:         d,
				SortKey:      d.Time,
			})
		}
		if p.IncludeDownPayment && !p.DownPayment.IsZero() && p.StartDate.In(window) {
			feed = append(feed, core.UnifiedTransaction{
				ID:           fmt.Sprintf("%s_downpayment_%s", p.ID, p.StartDate.Format("2006-01-02")),
				Kind:         core.KindDownPayment,
				SignedAmount: core.Money{Cents: -p.DownPayment.Cents},
				Category:     categoryDownPayments,
				Description:  p.Name + " - Down Payment",
				Date:         p.StartDate,
				SortKey:      p.StartDate.Time,
			})
		}
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].SortKey.After(feed[j].SortKey)
	})
	return feed, nil
}

// sortKey orders the feed by creation time, falling back to the record
// date for rows imported without one.
func sortKey(createdAt time.Time, date core.Date) time.Time {
	if createdAt.IsZero() {
		return date.Time
	}
	return createdAt
}
