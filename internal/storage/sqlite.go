package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"spentee/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// newID assigns a fresh UUID when the caller did not provide one.
func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func fmtDate(d core.Date) string { return d.Format(dateLayout) }

func parseStoredDate(s string) (core.Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return core.DateOf(t), nil
}

func parseStoredTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// ownerClause narrows a query to the filter's owner. Shared mode adds
// nothing, so every row is visible.
func ownerClause(owner core.OwnerFilter, args *[]any) string {
	if owner.All {
		return ""
	}
	*args = append(*args, owner.OwnerID)
	return " AND owner_id = ?"
}

func windowClause(window *core.DateRange, args *[]any) string {
	if window == nil {
		return ""
	}
	*args = append(*args, fmtDate(window.Start), fmtDate(window.End))
	return " AND date >= ? AND date <= ?"
}

func encodePaidDates(dates []core.Date) (string, error) {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = fmtDate(d)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode paid month dates: %w", err)
	}
	return string(b), nil
}

func decodePaidDates(raw string) ([]core.Date, error) {
	if raw == "" {
		return nil, nil
	}
	var parts []string
	if err := json.Unmarshal([]byte(raw), &parts); err != nil {
		return nil, fmt.Errorf("decode paid month dates: %w", err)
	}
	if len(parts) == 0 {
		return nil, nil
	}
	dates := make([]core.Date, len(parts))
	for i, p := range parts {
		d, err := parseStoredDate(p)
		if err != nil {
			return nil, err
		}
		dates[i] = d
	}
	return dates, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// --- expenses ---

const expenseColumns = "id, owner_id, amount_cents, category, description, date, created_at"

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e                core.Expense
		category         string
		date, createdAt  string
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &e.Amount.Cents, &category, &e.Description, &date, &createdAt); err != nil {
		return core.Expense{}, err
	}
	e.Category = core.ExpenseCategory(category)
	var err error
	if e.Date, err = parseStoredDate(date); err != nil {
		return core.Expense{}, err
	}
	if e.CreatedAt, err = parseStoredTime(createdAt); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = newID(e.ID)
	e.CreatedAt = stamp(e.CreatedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, owner_id, amount_cents, category, description, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Amount.Cents, string(e.Category), e.Description, fmtDate(e.Date), e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"category", e.Category,
		"amount_cents", e.Amount.Cents)
	return e, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, owner core.OwnerFilter, id string) (core.Expense, error) {
	args := []any{id}
	q := "SELECT " + expenseColumns + " FROM expenses WHERE id = ?" + ownerClause(owner, &args)
	e, err := scanExpense(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) ([]core.Expense, error) {
	args := []any{}
	q := "SELECT " + expenseColumns + " FROM expenses WHERE 1=1" +
		ownerClause(owner, &args) + windowClause(window, &args) +
		" ORDER BY date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, owner core.OwnerFilter, e core.Expense) (core.Expense, error) {
	args := []any{e.Amount.Cents, string(e.Category), e.Description, fmtDate(e.Date), e.ID}
	q := `UPDATE expenses SET amount_cents = ?, category = ?, description = ?, date = ?,
	      sync_status = 'pending', synced_at = NULL WHERE id = ?` + ownerClause(owner, &args)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Expense{}, ErrNotFound
	}
	return r.GetExpense(ctx, owner, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, owner core.OwnerFilter, id string) error {
	args := []any{id}
	res, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?"+ownerClause(owner, &args), args...)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) SumExpensesByCategory(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) (map[core.ExpenseCategory]core.Money, error) {
	args := []any{}
	q := "SELECT category, SUM(amount_cents) FROM expenses WHERE 1=1" +
		ownerClause(owner, &args) + windowClause(window, &args) +
		" GROUP BY category"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}
	defer rows.Close()

	sums := make(map[core.ExpenseCategory]core.Money)
	for rows.Next() {
		var (
			category string
			cents    int64
		)
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		sums[core.ExpenseCategory(category)] = core.Money{Cents: cents}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}
	return sums, nil
}

// --- incomes ---

const incomeColumns = "id, owner_id, amount_cents, source, description, type, date, created_at"

func scanIncome(row rowScanner) (core.Income, error) {
	var (
		in              core.Income
		typ             string
		date, createdAt string
	)
	if err := row.Scan(&in.ID, &in.OwnerID, &in.Amount.Cents, &in.Source, &in.Description, &typ, &date, &createdAt); err != nil {
		return core.Income{}, err
	}
	in.Type = core.IncomeType(typ)
	var err error
	if in.Date, err = parseStoredDate(date); err != nil {
		return core.Income{}, err
	}
	if in.CreatedAt, err = parseStoredTime(createdAt); err != nil {
		return core.Income{}, err
	}
	return in, nil
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	in.ID = newID(in.ID)
	in.CreatedAt = stamp(in.CreatedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (id, owner_id, amount_cents, source, description, type, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.OwnerID, in.Amount.Cents, in.Source, in.Description, string(in.Type), fmtDate(in.Date), in.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", in.ID,
		"type", in.Type,
		"amount_cents", in.Amount.Cents)
	return in, nil
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, owner core.OwnerFilter, id string) (core.Income, error) {
	args := []any{id}
	q := "SELECT " + incomeColumns + " FROM incomes WHERE id = ?" + ownerClause(owner, &args)
	in, err := scanIncome(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, ErrNotFound
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("get income: %w", err)
	}
	return in, nil
}

func (r *SQLiteRepository) ListIncomes(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) ([]core.Income, error) {
	args := []any{}
	q := "SELECT " + incomeColumns + " FROM incomes WHERE 1=1" +
		ownerClause(owner, &args) + windowClause(window, &args) +
		" ORDER BY date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, owner core.OwnerFilter, in core.Income) (core.Income, error) {
	args := []any{in.Amount.Cents, in.Source, in.Description, string(in.Type), fmtDate(in.Date), in.ID}
	q := `UPDATE incomes SET amount_cents = ?, source = ?, description = ?, type = ?, date = ?,
	      sync_status = 'pending', synced_at = NULL WHERE id = ?` + ownerClause(owner, &args)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Income{}, ErrNotFound
	}
	return r.GetIncome(ctx, owner, in.ID)
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, owner core.OwnerFilter, id string) error {
	args := []any{id}
	res, err := r.db.ExecContext(ctx, "DELETE FROM incomes WHERE id = ?"+ownerClause(owner, &args), args...)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- savings ---

const savingColumns = "id, owner_id, amount_cents, description, date, created_at"

func scanSaving(row rowScanner) (core.Saving, error) {
	var (
		s               core.Saving
		date, createdAt string
	)
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Amount.Cents, &s.Description, &date, &createdAt); err != nil {
		return core.Saving{}, err
	}
	var err error
	if s.Date, err = parseStoredDate(date); err != nil {
		return core.Saving{}, err
	}
	if s.CreatedAt, err = parseStoredTime(createdAt); err != nil {
		return core.Saving{}, err
	}
	return s, nil
}

func (r *SQLiteRepository) CreateSaving(ctx context.Context, s core.Saving) (core.Saving, error) {
	s.ID = newID(s.ID)
	s.CreatedAt = stamp(s.CreatedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO savings (id, owner_id, amount_cents, description, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.OwnerID, s.Amount.Cents, s.Description, fmtDate(s.Date), s.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return core.Saving{}, fmt.Errorf("create saving: %w", err)
	}

	slog.InfoContext(ctx, "Saving saved", "id", s.ID, "amount_cents", s.Amount.Cents)
	return s, nil
}

func (r *SQLiteRepository) GetSaving(ctx context.Context, owner core.OwnerFilter, id string) (core.Saving, error) {
	args := []any{id}
	q := "SELECT " + savingColumns + " FROM savings WHERE id = ?" + ownerClause(owner, &args)
	s, err := scanSaving(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Saving{}, ErrNotFound
	}
	if err != nil {
		return core.Saving{}, fmt.Errorf("get saving: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListSavings(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) ([]core.Saving, error) {
	args := []any{}
	q := "SELECT " + savingColumns + " FROM savings WHERE 1=1" +
		ownerClause(owner, &args) + windowClause(window, &args) +
		" ORDER BY date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list savings: %w", err)
	}
	defer rows.Close()

	var out []core.Saving
	for rows.Next() {
		s, err := scanSaving(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saving: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list savings: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateSaving(ctx context.Context, owner core.OwnerFilter, s core.Saving) (core.Saving, error) {
	args := []any{s.Amount.Cents, s.Description, fmtDate(s.Date), s.ID}
	q := `UPDATE savings SET amount_cents = ?, description = ?, date = ?,
	      sync_status = 'pending', synced_at = NULL WHERE id = ?` + ownerClause(owner, &args)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return core.Saving{}, fmt.Errorf("update saving: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Saving{}, ErrNotFound
	}
	return r.GetSaving(ctx, owner, s.ID)
}

func (r *SQLiteRepository) DeleteSaving(ctx context.Context, owner core.OwnerFilter, id string) error {
	args := []any{id}
	res, err := r.db.ExecContext(ctx, "DELETE FROM savings WHERE id = ?"+ownerClause(owner, &args), args...)
	if err != nil {
		return fmt.Errorf("delete saving: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- upi payments ---

const upiColumns = "id, owner_id, transaction_id, amount_cents, app, recipient_name, recipient_upi, category, description, date, status, created_at"

func scanUPIPayment(row rowScanner) (core.UPIPayment, error) {
	var (
		u                      core.UPIPayment
		app, category, status  string
		date, createdAt        string
	)
	if err := row.Scan(&u.ID, &u.OwnerID, &u.TransactionID, &u.Amount.Cents, &app, &u.RecipientName,
		&u.RecipientUPI, &category, &u.Description, &date, &status, &createdAt); err != nil {
		return core.UPIPayment{}, err
	}
	u.App = core.UPIApp(app)
	u.Category = core.ExpenseCategory(category)
	u.Status = core.UPIStatus(status)
	var err error
	if u.Date, err = parseStoredDate(date); err != nil {
		return core.UPIPayment{}, err
	}
	if u.CreatedAt, err = parseStoredTime(createdAt); err != nil {
		return core.UPIPayment{}, err
	}
	return u, nil
}

func (r *SQLiteRepository) CreateUPIPayment(ctx context.Context, u core.UPIPayment) (core.UPIPayment, error) {
	u.ID = newID(u.ID)
	u.CreatedAt = stamp(u.CreatedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO upi_payments (id, owner_id, transaction_id, amount_cents, app, recipient_name, recipient_upi, category, description, date, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.OwnerID, u.TransactionID, u.Amount.Cents, string(u.App), u.RecipientName, u.RecipientUPI,
		string(u.Category), u.Description, fmtDate(u.Date), string(u.Status), u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return core.UPIPayment{}, fmt.Errorf("create upi payment: %w", err)
	}

	slog.InfoContext(ctx, "UPI payment saved",
		"id", u.ID,
		"app", u.App,
		"status", u.Status,
		"amount_cents", u.Amount.Cents)
	return u, nil
}

func (r *SQLiteRepository) GetUPIPayment(ctx context.Context, owner core.OwnerFilter, id string) (core.UPIPayment, error) {
	args := []any{id}
	q := "SELECT " + upiColumns + " FROM upi_payments WHERE id = ?" + ownerClause(owner, &args)
	u, err := scanUPIPayment(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.UPIPayment{}, ErrNotFound
	}
	if err != nil {
		return core.UPIPayment{}, fmt.Errorf("get upi payment: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) ListUPIPayments(ctx context.Context, owner core.OwnerFilter, window *core.DateRange) ([]core.UPIPayment, error) {
	args := []any{}
	q := "SELECT " + upiColumns + " FROM upi_payments WHERE 1=1" +
		ownerClause(owner, &args) + windowClause(window, &args) +
		" ORDER BY date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list upi payments: %w", err)
	}
	defer rows.Close()

	var out []core.UPIPayment
	for rows.Next() {
		u, err := scanUPIPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upi payment: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list upi payments: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateUPIPayment(ctx context.Context, owner core.OwnerFilter, u core.UPIPayment) (core.UPIPayment, error) {
	args := []any{u.TransactionID, u.Amount.Cents, string(u.App), u.RecipientName, u.RecipientUPI,
		string(u.Category), u.Description, fmtDate(u.Date), string(u.Status), u.ID}
	q := `UPDATE upi_payments SET transaction_id = ?, amount_cents = ?, app = ?, recipient_name = ?,
	      recipient_upi = ?, category = ?, description = ?, date = ?, status = ?,
	      sync_status = 'pending', synced_at = NULL WHERE id = ?` + ownerClause(owner, &args)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return core.UPIPayment{}, fmt.Errorf("update upi payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.UPIPayment{}, ErrNotFound
	}
	return r.GetUPIPayment(ctx, owner, u.ID)
}

func (r *SQLiteRepository) DeleteUPIPayment(ctx context.Context, owner core.OwnerFilter, id string) error {
	args := []any{id}
	res, err := r.db.ExecContext(ctx, "DELETE FROM upi_payments WHERE id = ?"+ownerClause(owner, &args), args...)
	if err != nil {
		return fmt.Errorf("delete upi payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- emi plans ---

const emiColumns = `id, owner_id, name, down_payment_cents, principal_cents, installment_cents,
	interest_rate, tenure_months, start_date, end_date, paid_months, paid_month_dates,
	remaining_months, next_due_date, is_active, category, include_down_payment, version, created_at`

func scanEMIPlan(row rowScanner) (core.EMIPlan, error) {
	var (
		p                                         core.EMIPlan
		category                                  string
		startDate, endDate, nextDueDate, created  string
		paidDates                                 string
		isActive, includeDownPayment              int
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.DownPayment.Cents, &p.PrincipalAmount.Cents,
		&p.MonthlyInstallment.Cents, &p.InterestRate, &p.TenureMonths, &startDate, &endDate,
		&p.PaidMonths, &paidDates, &p.RemainingMonths, &nextDueDate, &isActive, &category,
		&includeDownPayment, &p.Version, &created); err != nil {
		return core.EMIPlan{}, err
	}
	p.Category = core.EMICategory(category)
	p.IsActive = isActive != 0
	p.IncludeDownPayment = includeDownPayment != 0
	var err error
	if p.StartDate, err = parseStoredDate(startDate); err != nil {
		return core.EMIPlan{}, err
	}
	if p.EndDate, err = parseStoredDate(endDate); err != nil {
		return core.EMIPlan{}, err
	}
	if p.NextDueDate, err = parseStoredDate(nextDueDate); err != nil {
		return core.EMIPlan{}, err
	}
	if p.PaidMonthDates, err = decodePaidDates(paidDates); err != nil {
		return core.EMIPlan{}, err
	}
	if p.CreatedAt, err = parseStoredTime(created); err != nil {
		return core.EMIPlan{}, err
	}
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *SQLiteRepository) CreateEMIPlan(ctx context.Context, p core.EMIPlan) (core.EMIPlan, error) {
	p.ID = newID(p.ID)
	p.CreatedAt = stamp(p.CreatedAt)
	p.Version = 1

	paidDates, err := encodePaidDates(p.PaidMonthDates)
	if err != nil {
		return core.EMIPlan{}, err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO emi_plans (id, owner_id, name, down_payment_cents, principal_cents, installment_cents,
		 interest_rate, tenure_months, start_date, end_date, paid_months, paid_month_dates,
		 remaining_months, next_due_date, is_active, category, include_down_payment, version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, p.DownPayment.Cents, p.PrincipalAmount.Cents, p.MonthlyInstallment.Cents,
		p.InterestRate, p.TenureMonths, fmtDate(p.StartDate), fmtDate(p.EndDate), p.PaidMonths, paidDates,
		p.RemainingMonths, fmtDate(p.NextDueDate), boolToInt(p.IsActive), string(p.Category),
		boolToInt(p.IncludeDownPayment), p.Version, p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return core.EMIPlan{}, fmt.Errorf("create emi plan: %w", err)
	}

	slog.InfoContext(ctx, "EMI plan saved",
		"id", p.ID,
		"name", p.Name,
		"tenure_months", p.TenureMonths)
	return p, nil
}

func (r *SQLiteRepository) GetEMIPlan(ctx context.Context, owner core.OwnerFilter, id string) (core.EMIPlan, error) {
	args := []any{id}
	q := "SELECT " + emiColumns + " FROM emi_plans WHERE id = ?" + ownerClause(owner, &args)
	p, err := scanEMIPlan(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.EMIPlan{}, ErrNotFound
	}
	if err != nil {
		return core.EMIPlan{}, fmt.Errorf("get emi plan: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListEMIPlans(ctx context.Context, owner core.OwnerFilter) ([]core.EMIPlan, error) {
	args := []any{}
	q := "SELECT " + emiColumns + " FROM emi_plans WHERE 1=1" + ownerClause(owner, &args) +
		" ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list emi plans: %w", err)
	}
	defer rows.Close()

	var out []core.EMIPlan
	for rows.Next() {
		p, err := scanEMIPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emi plan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list emi plans: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateEMIPlan(ctx context.Context, owner core.OwnerFilter, id string, mutate func(core.EMIPlan) (core.EMIPlan, error)) (core.EMIPlan, error) {
	current, err := r.GetEMIPlan(ctx, owner, id)
	if err != nil {
		return core.EMIPlan{}, err
	}

	next, err := mutate(current)
	if err != nil {
		return core.EMIPlan{}, err
	}

	paidDates, err := encodePaidDates(next.PaidMonthDates)
	if err != nil {
		return core.EMIPlan{}, err
	}

	// The version check makes concurrent pay/unpay safe: whichever write
	// lands second sees zero rows affected and reports a conflict.
	res, err := r.db.ExecContext(ctx,
		`UPDATE emi_plans SET name = ?, down_payment_cents = ?, principal_cents = ?, installment_cents = ?,
		 interest_rate = ?, tenure_months = ?, start_date = ?, end_date = ?, paid_months = ?,
		 paid_month_dates = ?, remaining_months = ?, next_due_date = ?, is_active = ?, category = ?,
		 include_down_payment = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		next.Name, next.DownPayment.Cents, next.PrincipalAmount.Cents, next.MonthlyInstallment.Cents,
		next.InterestRate, next.TenureMonths, fmtDate(next.StartDate), fmtDate(next.EndDate),
		next.PaidMonths, paidDates, next.RemainingMonths, fmtDate(next.NextDueDate),
		boolToInt(next.IsActive), string(next.Category), boolToInt(next.IncludeDownPayment),
		id, current.Version)
	if err != nil {
		return core.EMIPlan{}, fmt.Errorf("update emi plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.EMIPlan{}, ErrConcurrentModification
	}

	next.Version = current.Version + 1
	slog.InfoContext(ctx, "EMI plan updated",
		"id", id,
		"version", next.Version,
		"paid_months", next.PaidMonths)
	return next, nil
}

func (r *SQLiteRepository) DeleteEMIPlan(ctx context.Context, owner core.OwnerFilter, id string) error {
	args := []any{id}
	res, err := r.db.ExecContext(ctx, "DELETE FROM emi_plans WHERE id = ?"+ownerClause(owner, &args), args...)
	if err != nil {
		return fmt.Errorf("delete emi plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- budgets ---

const budgetColumns = "id, owner_id, category, amount_cents, period, start_date, end_date, is_active, created_at"

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b                           core.Budget
		category, period            string
		startDate, endDate, created string
		isActive                    int
	)
	if err := row.Scan(&b.ID, &b.OwnerID, &category, &b.Amount.Cents, &period, &startDate, &endDate, &isActive, &created); err != nil {
		return core.Budget{}, err
	}
	b.Category = core.ExpenseCategory(category)
	b.Period = core.BudgetPeriod(period)
	b.IsActive = isActive != 0
	var err error
	if b.StartDate, err = parseStoredDate(startDate); err != nil {
		return core.Budget{}, err
	}
	if b.EndDate, err = parseStoredDate(endDate); err != nil {
		return core.Budget{}, err
	}
	if b.CreatedAt, err = parseStoredTime(created); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.ID = newID(b.ID)
	b.CreatedAt = stamp(b.CreatedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, owner_id, category, amount_cents, period, start_date, end_date, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, string(b.Category), b.Amount.Cents, string(b.Period),
		fmtDate(b.StartDate), fmtDate(b.EndDate), boolToInt(b.IsActive), b.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved",
		"id", b.ID,
		"category", b.Category,
		"period", b.Period)
	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, owner core.OwnerFilter, id string) (core.Budget, error) {
	args := []any{id}
	q := "SELECT " + budgetColumns + " FROM budgets WHERE id = ?" + ownerClause(owner, &args)
	b, err := scanBudget(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, owner core.OwnerFilter) ([]core.Budget, error) {
	args := []any{}
	q := "SELECT " + budgetColumns + " FROM budgets WHERE 1=1" + ownerClause(owner, &args) +
		" ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, owner core.OwnerFilter, b core.Budget) (core.Budget, error) {
	args := []any{string(b.Category), b.Amount.Cents, string(b.Period), fmtDate(b.StartDate),
		fmtDate(b.EndDate), boolToInt(b.IsActive), b.ID}
	q := `UPDATE budgets SET category = ?, amount_cents = ?, period = ?, start_date = ?, end_date = ?,
	      is_active = ? WHERE id = ?` + ownerClause(owner, &args)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Budget{}, ErrNotFound
	}
	return r.GetBudget(ctx, owner, b.ID)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, owner core.OwnerFilter, id string) error {
	args := []any{id}
	res, err := r.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?"+ownerClause(owner, &args), args...)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.ID = newID(u.ID)
	u.CreatedAt = stamp(u.CreatedAt)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return core.User{}, ErrUserExists
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "id", u.ID, "username", u.Username)
	return u, nil
}

func scanUser(row rowScanner) (core.User, error) {
	var (
		u       core.User
		created string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created); err != nil {
		return core.User{}, err
	}
	var err error
	if u.CreatedAt, err = parseStoredTime(created); err != nil {
		return core.User{}, err
	}
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE email = ?", email))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// --- sync queue ---

var syncTables = map[string]string{
	SyncKindExpense: "expenses",
	SyncKindIncome:  "incomes",
	SyncKindSaving:  "savings",
	SyncKindUPI:     "upi_payments",
}

func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]SyncItem, error) {
	q := `SELECT 'expense' AS kind, id, created_at FROM expenses WHERE sync_status = 'pending'
	      UNION ALL SELECT 'income', id, created_at FROM incomes WHERE sync_status = 'pending'
	      UNION ALL SELECT 'saving', id, created_at FROM savings WHERE sync_status = 'pending'
	      UNION ALL SELECT 'upi', id, created_at FROM upi_payments WHERE sync_status = 'pending'
	      ORDER BY created_at ASC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync items: %w", err)
	}
	defer rows.Close()

	var items []SyncItem
	for rows.Next() {
		var (
			item    SyncItem
			created string
		)
		if err := rows.Scan(&item.Kind, &item.ID, &created); err != nil {
			return nil, fmt.Errorf("scan sync item: %w", err)
		}
		if item.CreatedAt, err = parseStoredTime(created); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get pending sync items: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, kind, id string) error {
	table, ok := syncTables[kind]
	if !ok {
		return fmt.Errorf("unsupported sync kind: %s", kind)
	}

	_, err := r.db.ExecContext(ctx,
		"UPDATE "+table+" SET sync_status = 'synced', synced_at = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("mark %s synced: %w", kind, err)
	}

	slog.InfoContext(ctx, "Record marked as synced", "kind", kind, "id", id)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, kind, id string) error {
	table, ok := syncTables[kind]
	if !ok {
		return fmt.Errorf("unsupported sync kind: %s", kind)
	}

	_, err := r.db.ExecContext(ctx,
		"UPDATE "+table+" SET sync_status = 'error' WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark %s sync error: %w", kind, err)
	}

	slog.WarnContext(ctx, "Record marked with sync error", "kind", kind, "id", id)
	return nil
}
