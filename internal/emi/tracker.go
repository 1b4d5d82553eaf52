// Package emi implements the EMI payment-state machine: marking and
// unmarking calendar-month payments on a plan and deriving the next due
// date, remaining term, and active/closed status.
//
// Transitions are pure functions from plan to plan. Persistence and the
// compare-and-swap that makes concurrent transitions safe live in the
// storage layer; this package only computes the next state.
package emi

import (
	"errors"
	"time"

	"spentee/internal/core"
)

var (
	// ErrAlreadyPaidThisMonth rejects a second payment inside one
	// calendar month. Expected, user-facing, not fatal.
	ErrAlreadyPaidThisMonth = errors.New("emi already marked as paid for this month")

	// ErrNoPaymentThisMonth rejects an unmark when the month has no
	// recorded payment.
	ErrNoPaymentThisMonth = errors.New("no payment found for this month to unmark")

	// ErrPlanClosed rejects payments on a fully paid plan. Closed is
	// terminal for MarkPaid.
	ErrPlanClosed = errors.New("emi plan is closed")
)

// Initialize fills the derived fields of a freshly created plan: the next
// due date is the first day of the month after the start date, the end
// date is start plus tenure, and no payments are recorded yet.
func Initialize(p core.EMIPlan) core.EMIPlan {
	p.EndDate = core.AddMonths(p.StartDate, p.TenureMonths)
	p.NextDueDate = core.FirstOfNextMonth(p.StartDate)
	p.PaidMonths = 0
	p.PaidMonthDates = nil
	p.RemainingMonths = p.TenureMonths
	p.IsActive = true
	return p
}

// MarkPaid records a payment for asOf's calendar month and returns the
// advanced plan. It fails with ErrPlanClosed on a finished plan and with
// ErrAlreadyPaidThisMonth if the month already has a payment; the input
// plan is never mutated.
func MarkPaid(p core.EMIPlan, asOf time.Time) (core.EMIPlan, error) {
	if p.RemainingMonths <= 0 {
		return p, ErrPlanClosed
	}
	if p.HasPaymentIn(core.MonthKeyOf(asOf)) {
		return p, ErrAlreadyPaidThisMonth
	}

	next := p
	next.PaidMonthDates = append(append([]core.Date(nil), p.PaidMonthDates...), core.DateOf(asOf))
	next.PaidMonths++
	next.RemainingMonths--
	if next.RemainingMonths == 0 {
		next.IsActive = false
	} else {
		next.NextDueDate = core.AddMonths(next.NextDueDate, 1)
	}
	return next, nil
}

// UnmarkPaid removes the payment recorded for asOf's calendar month and
// returns the rewound plan. The next due date is recomputed from the
// latest remaining payment, or from the start date when none remain; if
// every payment has been undone the plan is forced back to active.
func UnmarkPaid(p core.EMIPlan, asOf time.Time) (core.EMIPlan, error) {
	key := core.MonthKeyOf(asOf)
	if !p.HasPaymentIn(key) {
		return p, ErrNoPaymentThisMonth
	}

	next := p
	next.PaidMonthDates = nil
	for _, d := range p.PaidMonthDates {
		if core.MonthKeyOf(d.Time) != key {
			next.PaidMonthDates = append(next.PaidMonthDates, d)
		}
	}
	next.PaidMonths--
	next.RemainingMonths++
	if next.RemainingMonths > next.TenureMonths {
		next.RemainingMonths = next.TenureMonths
	}
	next.NextDueDate = nextDueAfter(next)
	if next.RemainingMonths == next.TenureMonths {
		next.IsActive = true
	}
	return next, nil
}

// nextDueAfter derives the due date from the payment history: the first
// day of the month after the latest recorded payment, or after the start
// date when no payments remain. Due dates are always first-of-month so
// that mark and unmark stay exact inverses of each other.
func nextDueAfter(p core.EMIPlan) core.Date {
	latest := p.StartDate
	for _, d := range p.PaidMonthDates {
		if d.After(latest.Time) {
			latest = d
		}
	}
	return core.FirstOfNextMonth(latest)
}
