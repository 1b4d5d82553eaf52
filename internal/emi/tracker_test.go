package emi

import (
	"errors"
	"testing"
	"time"

	"spentee/internal/core"
)

func testPlan(tenure int, start core.Date) core.EMIPlan {
	return Initialize(core.EMIPlan{
		ID:                 "plan-1",
		Name:               "Home Loan",
		PrincipalAmount:    core.Money{Cents: 50_000_00},
		MonthlyInstallment: core.Money{Cents: 2_000_00},
		TenureMonths:       tenure,
		StartDate:          start,
		Category:           core.EMIHomeLoan,
		IsActive:           true,
	})
}

func TestInitialize(t *testing.T) {
	p := testPlan(12, core.NewDate(2024, time.January, 10))

	if got, want := p.NextDueDate, core.NewDate(2024, time.February, 1); !got.Equal(want.Time) {
		t.Errorf("NextDueDate = %v, want %v", got, want)
	}
	if got, want := p.EndDate, core.NewDate(2025, time.January, 10); !got.Equal(want.Time) {
		t.Errorf("EndDate = %v, want %v", got, want)
	}
	if p.RemainingMonths != 12 || p.PaidMonths != 0 || !p.IsActive {
		t.Errorf("unexpected initial state: remaining=%d paid=%d active=%v",
			p.RemainingMonths, p.PaidMonths, p.IsActive)
	}
}

func TestMarkPaid(t *testing.T) {
	start := core.NewDate(2024, time.January, 10)

	t.Run("records payment and advances due date", func(t *testing.T) {
		p := testPlan(12, start)
		got, err := MarkPaid(p, time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("MarkPaid: %v", err)
		}
		if got.PaidMonths != 1 || got.RemainingMonths != 11 {
			t.Errorf("paid=%d remaining=%d, want 1/11", got.PaidMonths, got.RemainingMonths)
		}
		if want := core.NewDate(2024, time.March, 1); !got.NextDueDate.Equal(want.Time) {
			t.Errorf("NextDueDate = %v, want %v", got.NextDueDate, want)
		}
		if len(got.PaidMonthDates) != 1 {
			t.Fatalf("PaidMonthDates = %v, want one entry", got.PaidMonthDates)
		}
		// Input must not be mutated.
		if p.PaidMonths != 0 || len(p.PaidMonthDates) != 0 {
			t.Errorf("input plan mutated: %+v", p)
		}
	})

	t.Run("rejects second payment in same month", func(t *testing.T) {
		p := testPlan(12, start)
		p, err := MarkPaid(p, time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("first MarkPaid: %v", err)
		}
		_, err = MarkPaid(p, time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC))
		if !errors.Is(err, ErrAlreadyPaidThisMonth) {
			t.Errorf("err = %v, want ErrAlreadyPaidThisMonth", err)
		}
	})

	t.Run("final payment closes the plan", func(t *testing.T) {
		p := testPlan(2, start)
		p, err := MarkPaid(p, time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("MarkPaid: %v", err)
		}
		p, err = MarkPaid(p, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("MarkPaid: %v", err)
		}
		if p.RemainingMonths != 0 || p.IsActive {
			t.Errorf("remaining=%d active=%v, want closed", p.RemainingMonths, p.IsActive)
		}

		_, err = MarkPaid(p, time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC))
		if !errors.Is(err, ErrPlanClosed) {
			t.Errorf("err on closed plan = %v, want ErrPlanClosed", err)
		}
	})

	t.Run("month boundary clamps day", func(t *testing.T) {
		p := testPlan(12, core.NewDate(2024, time.January, 31))
		// Next due is still first-of-month, but end date clamps
		// Jan 31 + 12 months inside the calendar.
		if want := core.NewDate(2025, time.January, 31); !p.EndDate.Equal(want.Time) {
			t.Errorf("EndDate = %v, want %v", p.EndDate, want)
		}
		q := testPlan(1, core.NewDate(2024, time.January, 31))
		if want := core.NewDate(2024, time.February, 29); !q.EndDate.Equal(want.Time) {
			t.Errorf("EndDate = %v, want clamped %v", q.EndDate, want)
		}
	})
}

func TestUnmarkPaid(t *testing.T) {
	start := core.NewDate(2024, time.January, 10)
	feb := time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)

	t.Run("rejects month with no payment", func(t *testing.T) {
		p := testPlan(12, start)
		_, err := UnmarkPaid(p, feb)
		if !errors.Is(err, ErrNoPaymentThisMonth) {
			t.Errorf("err = %v, want ErrNoPaymentThisMonth", err)
		}
	})

	t.Run("round trip restores the plan", func(t *testing.T) {
		p := testPlan(12, start)
		marked, err := MarkPaid(p, feb)
		if err != nil {
			t.Fatalf("MarkPaid: %v", err)
		}
		got, err := UnmarkPaid(marked, feb)
		if err != nil {
			t.Fatalf("UnmarkPaid: %v", err)
		}
		if got.PaidMonths != p.PaidMonths ||
			got.RemainingMonths != p.RemainingMonths ||
			!got.NextDueDate.Equal(p.NextDueDate.Time) ||
			len(got.PaidMonthDates) != 0 ||
			got.IsActive != p.IsActive {
			t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, p)
		}
	})

	t.Run("round trip with earlier payment remaining", func(t *testing.T) {
		p := testPlan(12, start)
		p, _ = MarkPaid(p, feb)
		marked, err := MarkPaid(p, mar)
		if err != nil {
			t.Fatalf("MarkPaid: %v", err)
		}
		got, err := UnmarkPaid(marked, mar)
		if err != nil {
			t.Fatalf("UnmarkPaid: %v", err)
		}
		if got.PaidMonths != 1 || got.RemainingMonths != 11 {
			t.Errorf("paid=%d remaining=%d, want 1/11", got.PaidMonths, got.RemainingMonths)
		}
		if want := core.NewDate(2024, time.March, 1); !got.NextDueDate.Equal(want.Time) {
			t.Errorf("NextDueDate = %v, want %v", got.NextDueDate, want)
		}
	})

	t.Run("undoing every payment reactivates the plan", func(t *testing.T) {
		p := testPlan(1, start)
		p, err := MarkPaid(p, feb)
		if err != nil {
			t.Fatalf("MarkPaid: %v", err)
		}
		if p.IsActive {
			t.Fatalf("plan should be closed after final payment")
		}
		p, err = UnmarkPaid(p, feb)
		if err != nil {
			t.Fatalf("UnmarkPaid: %v", err)
		}
		if !p.IsActive || p.RemainingMonths != 1 {
			t.Errorf("active=%v remaining=%d, want reactivated 1", p.IsActive, p.RemainingMonths)
		}
	})

	t.Run("remaining months never exceed tenure", func(t *testing.T) {
		p := testPlan(3, start)
		p, _ = MarkPaid(p, feb)
		p.RemainingMonths = 3 // simulate drifted legacy row
		p, err := UnmarkPaid(p, feb)
		if err != nil {
			t.Fatalf("UnmarkPaid: %v", err)
		}
		if p.RemainingMonths != 3 {
			t.Errorf("RemainingMonths = %d, want clamped to tenure 3", p.RemainingMonths)
		}
	})
}
