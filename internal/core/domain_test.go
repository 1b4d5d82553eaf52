package core

import (
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2024, time.January, 1), true},
		{NewDate(2024, time.December, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestAddMonthsClampsDay(t *testing.T) {
	cases := []struct {
		start Date
		n     int
		want  Date
	}{
		{NewDate(2024, time.January, 31), 1, NewDate(2024, time.February, 29)}, // leap year
		{NewDate(2023, time.January, 31), 1, NewDate(2023, time.February, 28)},
		{NewDate(2024, time.January, 31), 3, NewDate(2024, time.April, 30)},
		{NewDate(2024, time.March, 15), 12, NewDate(2025, time.March, 15)},
	}
	for _, tc := range cases {
		if got := AddMonths(tc.start, tc.n); !got.Equal(tc.want.Time) {
			t.Fatalf("AddMonths(%v, %d) = %v, want %v", tc.start, tc.n, got, tc.want)
		}
	}
}

func TestDateIn(t *testing.T) {
	window := DateRange{
		Start: NewDate(2024, time.June, 1),
		End:   NewDate(2024, time.June, 30),
	}
	if !NewDate(2024, time.June, 1).In(&window) || !NewDate(2024, time.June, 30).In(&window) {
		t.Fatal("window bounds should be inclusive")
	}
	if NewDate(2024, time.July, 1).In(&window) {
		t.Fatal("date past the window should not match")
	}
	if !NewDate(1999, time.January, 1).In(nil) {
		t.Fatal("nil window means all time")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Amount:   Money{Cents: 100},
		Category: CategoryFood,
		Date:     NewDate(2024, time.June, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Amount: Money{Cents: -1}, Category: CategoryFood, Date: NewDate(2024, time.June, 1)},
		{Amount: Money{Cents: 100}, Category: "Gadgets", Date: NewDate(2024, time.June, 1)},
		{Amount: Money{Cents: 100}, Category: CategoryFood},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestEMIPlanCheckInvariants(t *testing.T) {
	plan := EMIPlan{
		Name:               "Bike Loan",
		MonthlyInstallment: Money{Cents: 2000_00},
		TenureMonths:       12,
		PaidMonths:         1,
		PaidMonthDates:     []Date{NewDate(2024, time.January, 15)},
		RemainingMonths:    11,
		IsActive:           true,
		StartDate:          NewDate(2024, time.January, 10),
		Category:           EMIPersonalLoan,
	}
	if problems := plan.CheckInvariants(); len(problems) != 0 {
		t.Fatalf("consistent plan reported problems: %v", problems)
	}

	drifted := plan
	drifted.PaidMonths = 3
	if problems := drifted.CheckInvariants(); len(problems) == 0 {
		t.Fatal("counter drift should be reported")
	}

	duplicate := plan
	duplicate.PaidMonthDates = []Date{
		NewDate(2024, time.January, 5),
		NewDate(2024, time.January, 20),
	}
	duplicate.PaidMonths = 2
	duplicate.RemainingMonths = 10
	if problems := duplicate.CheckInvariants(); len(problems) == 0 {
		t.Fatal("two payments in one calendar month should be reported")
	}
}

func TestOwnerFilterMatches(t *testing.T) {
	if !AllOwners().Matches("anyone") {
		t.Fatal("AllOwners should match every owner")
	}
	only := OwnerOnly("u1")
	if !only.Matches("u1") || only.Matches("u2") {
		t.Fatal("OwnerOnly should match exactly its owner")
	}
}
