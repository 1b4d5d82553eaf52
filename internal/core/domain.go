package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryFood          ExpenseCategory = "Food"
	CategoryTransport     ExpenseCategory = "Transport"
	CategoryShopping      ExpenseCategory = "Shopping"
	CategoryBills         ExpenseCategory = "Bills"
	CategoryEntertainment ExpenseCategory = "Entertainment"
	CategoryHealthcare    ExpenseCategory = "Healthcare"
	CategoryEducation     ExpenseCategory = "Education"
	CategoryOther         ExpenseCategory = "Other"

	// BudgetCategoryOverall matches spending across every expense category.
	BudgetCategoryOverall ExpenseCategory = "Overall"

	IncomeSalary     IncomeType = "Salary"
	IncomeFreelance  IncomeType = "Freelance"
	IncomeInvestment IncomeType = "Investment"
	IncomeBusiness   IncomeType = "Business"
	IncomeOther      IncomeType = "Other"

	UPIAppGooglePay UPIApp = "Google Pay"
	UPIAppPhonePe   UPIApp = "PhonePe"
	UPIAppPaytm     UPIApp = "Paytm"
	UPIAppBHIM      UPIApp = "BHIM"
	UPIAppAmazonPay UPIApp = "Amazon Pay"
	UPIAppOther     UPIApp = "Other"

	UPISuccess UPIStatus = "Success"
	UPIPending UPIStatus = "Pending"
	UPIFailed  UPIStatus = "Failed"

	EMIHomeLoan      EMICategory = "Home Loan"
	EMICarLoan       EMICategory = "Car Loan"
	EMIPersonalLoan  EMICategory = "Personal Loan"
	EMICreditCard    EMICategory = "Credit Card"
	EMIEducationLoan EMICategory = "Education Loan"
	EMIOther         EMICategory = "Other"

	PeriodWeekly  BudgetPeriod = "Weekly"
	PeriodMonthly BudgetPeriod = "Monthly"
	PeriodYearly  BudgetPeriod = "Yearly"
)

type (
	ExpenseCategory string
	IncomeType      string
	UPIApp          string
	UPIStatus       string
	EMICategory     string
	BudgetPeriod    string

	// Expense is a single recorded outflow.
	Expense struct {
		ID          string          `json:"id"`
		OwnerID     string          `json:"ownerId,omitempty"`
		Amount      Money           `json:"amount"`
		Category    ExpenseCategory `json:"category"`
		Description string          `json:"description"`
		Date        Date            `json:"date"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	// Income is a single recorded inflow.
	Income struct {
		ID          string     `json:"id"`
		OwnerID     string     `json:"ownerId,omitempty"`
		Amount      Money      `json:"amount"`
		Source      string     `json:"source"`
		Description string     `json:"description"`
		Type        IncomeType `json:"type"`
		Date        Date       `json:"date"`
		CreatedAt   time.Time  `json:"createdAt"`
	}

	// Saving is money moved out of the available balance into savings.
	// For balance purposes it is an outflow, not an asset.
	Saving struct {
		ID          string    `json:"id"`
		OwnerID     string    `json:"ownerId,omitempty"`
		Amount      Money     `json:"amount"`
		Description string    `json:"description"`
		Date        Date      `json:"date"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// UPIPayment is a payment made over a UPI app. Only payments with
	// UPISuccess status count toward any total.
	UPIPayment struct {
		ID            string          `json:"id"`
		OwnerID       string          `json:"ownerId,omitempty"`
		TransactionID string          `json:"transactionId"`
		Amount        Money           `json:"amount"`
		App           UPIApp          `json:"upiApp"`
		RecipientName string          `json:"recipientName"`
		RecipientUPI  string          `json:"recipientUpi"`
		Category      ExpenseCategory `json:"category"`
		Description   string          `json:"description"`
		Date          Date            `json:"date"`
		Status        UPIStatus       `json:"status"`
		CreatedAt     time.Time       `json:"createdAt"`
	}

	// EMIPlan is an installment loan. Its monthly obligation is never a
	// ledger row: payments are calendar-month membership flags in
	// PaidMonthDates, and the summary and transaction feed materialize
	// them on demand.
	EMIPlan struct {
		ID                 string      `json:"id"`
		OwnerID            string      `json:"ownerId,omitempty"`
		Name               string      `json:"name"`
		DownPayment        Money       `json:"downPayment"`
		PrincipalAmount    Money       `json:"principalAmount"`
		MonthlyInstallment Money       `json:"monthlyInstallment"`
		InterestRate       float64     `json:"interestRate"`
		TenureMonths       int         `json:"tenureMonths"`
		StartDate          Date        `json:"startDate"`
		EndDate            Date        `json:"endDate"`
		PaidMonths         int         `json:"paidMonths"`
		PaidMonthDates     []Date      `json:"paidMonthDates"`
		RemainingMonths    int         `json:"remainingMonths"`
		NextDueDate        Date        `json:"nextDueDate"`
		IsActive           bool        `json:"isActive"`
		Category           EMICategory `json:"category"`

		// IncludeDownPayment controls whether the down payment counts
		// toward the available balance and breakdowns.
		IncludeDownPayment bool `json:"includeDownPaymentInBalance"`

		// Version guards concurrent pay/unpay updates (compare-and-swap).
		Version   int64     `json:"-"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Budget caps spending for a category over a date window. Spent and
	// remaining amounts are always derived, never stored.
	Budget struct {
		ID        string          `json:"id"`
		OwnerID   string          `json:"ownerId,omitempty"`
		Category  ExpenseCategory `json:"category"`
		Amount    Money           `json:"amount"`
		Period    BudgetPeriod    `json:"period"`
		StartDate Date            `json:"startDate"`
		EndDate   Date            `json:"endDate"`
		IsActive  bool            `json:"isActive"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	// User exists only for the session layer; the engine never sees it.
	User struct {
		ID           string    `json:"id"`
		Username     string    `json:"username"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	// OwnerFilter is the resolved data-visibility policy threaded through
	// every store call: either a single owner or all data (shared mode).
	// It is resolved once by the HTTP layer, never inside the engine.
	OwnerFilter struct {
		All     bool
		OwnerID string
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptySource        = errors.New("empty source")
	ErrEmptyTransactionID = errors.New("empty transaction id")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidType        = errors.New("invalid income type")
	ErrInvalidApp         = errors.New("invalid upi app")
	ErrInvalidStatus      = errors.New("invalid upi status")
	ErrInvalidPeriod      = errors.New("invalid budget period")
	ErrInvalidTenure      = errors.New("tenure must be at least one month")
	ErrDateOrder          = errors.New("end date must not be before start date")
)

// OwnerOnly returns a filter restricted to a single owner.
func OwnerOnly(ownerID string) OwnerFilter { return OwnerFilter{OwnerID: ownerID} }

// AllOwners returns a filter that matches every owner (shared-data mode).
func AllOwners() OwnerFilter { return OwnerFilter{All: true} }

// Matches reports whether a record with the given owner id is visible.
func (f OwnerFilter) Matches(ownerID string) bool {
	return f.All || f.OwnerID == ownerID
}

func (c ExpenseCategory) Valid() bool {
	switch c {
	case CategoryFood, CategoryTransport, CategoryShopping, CategoryBills,
		CategoryEntertainment, CategoryHealthcare, CategoryEducation, CategoryOther:
		return true
	}
	return false
}

// ValidForBudget additionally allows the Overall pseudo-category.
func (c ExpenseCategory) ValidForBudget() bool {
	return c.Valid() || c == BudgetCategoryOverall
}

func (t IncomeType) Valid() bool {
	switch t {
	case IncomeSalary, IncomeFreelance, IncomeInvestment, IncomeBusiness, IncomeOther:
		return true
	}
	return false
}

func (a UPIApp) Valid() bool {
	switch a {
	case UPIAppGooglePay, UPIAppPhonePe, UPIAppPaytm, UPIAppBHIM, UPIAppAmazonPay, UPIAppOther:
		return true
	}
	return false
}

func (s UPIStatus) Valid() bool {
	switch s {
	case UPISuccess, UPIPending, UPIFailed:
		return true
	}
	return false
}

func (c EMICategory) Valid() bool {
	switch c {
	case EMIHomeLoan, EMICarLoan, EMIPersonalLoan, EMICreditCard, EMIEducationLoan, EMIOther:
		return true
	}
	return false
}

func (p BudgetPeriod) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (i Income) Validate() error {
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if !i.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (s Saving) Validate() error {
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	return s.Date.Validate()
}

func (u UPIPayment) Validate() error {
	if strings.TrimSpace(u.TransactionID) == "" {
		return ErrEmptyTransactionID
	}
	if err := u.Amount.Validate(); err != nil {
		return err
	}
	if err := u.Date.Validate(); err != nil {
		return err
	}
	if !u.App.Valid() {
		return ErrInvalidApp
	}
	if !u.Category.Valid() {
		return ErrInvalidCategory
	}
	if !u.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (p EMIPlan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.DownPayment.Cents < 0 || p.PrincipalAmount.Cents < 0 || p.MonthlyInstallment.Cents < 0 {
		return ErrInvalidAmount
	}
	if p.InterestRate < 0 {
		return errors.New("interest rate cannot be negative")
	}
	if p.TenureMonths < 1 {
		return ErrInvalidTenure
	}
	if err := p.StartDate.Validate(); err != nil {
		return err
	}
	if !p.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !b.Category.ValidForBudget() {
		return ErrInvalidCategory
	}
	if !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	if err := b.StartDate.Validate(); err != nil {
		return err
	}
	if err := b.EndDate.Validate(); err != nil {
		return err
	}
	if b.EndDate.Before(b.StartDate.Time) {
		return ErrDateOrder
	}
	return nil
}

// PaidMonthSet returns the set of calendar months with a recorded payment.
func (p EMIPlan) PaidMonthSet() map[MonthKey]struct{} {
	set := make(map[MonthKey]struct{}, len(p.PaidMonthDates))
	for _, d := range p.PaidMonthDates {
		set[MonthKeyOf(d.Time)] = struct{}{}
	}
	return set
}

// HasPaymentIn reports whether a payment is recorded for the given month.
func (p EMIPlan) HasPaymentIn(k MonthKey) bool {
	_, ok := p.PaidMonthSet()[k]
	return ok
}

// CheckInvariants returns human-readable descriptions of any violated EMI
// bookkeeping invariants. Violations are reported, never repaired.
func (p EMIPlan) CheckInvariants() []string {
	var problems []string
	if p.PaidMonths != len(p.PaidMonthDates) {
		problems = append(problems, "paidMonths does not match recorded payment dates")
	}
	if len(p.PaidMonthDates) > p.TenureMonths {
		problems = append(problems, "more recorded payments than tenure months")
	}
	if p.PaidMonths+p.RemainingMonths != p.TenureMonths {
		problems = append(problems, "paidMonths and remainingMonths do not add up to tenure")
	}
	if p.RemainingMonths == 0 && p.IsActive {
		problems = append(problems, "plan fully paid but still marked active")
	}
	if len(p.PaidMonthDates) != len(p.PaidMonthSet()) {
		problems = append(problems, "more than one payment recorded in the same calendar month")
	}
	return problems
}
