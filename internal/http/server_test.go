package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"spentee/internal/core"
	"spentee/internal/storage"
)

const testSecret = "test-secret-with-enough-length"

func newTestServer(t *testing.T, shared bool) (*httptest.Server, *Server) {
	t.Helper()
	srv := NewServer(Options{
		Store:      storage.NewMemoryStore(),
		JWTSecret:  testSecret,
		SharedData: shared,
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
	})
	return ts, srv
}

func doRequest(t *testing.T, ts *httptest.Server, token, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, out.Bytes()
}

func decodeBody[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode response %q: %v", raw, err)
	}
	return v
}

func register(t *testing.T, ts *httptest.Server, username, email string) string {
	t.Helper()
	resp, raw := doRequest(t, ts, "", http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": "correct horse battery",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body %s", email, resp.StatusCode, raw)
	}
	auth := decodeBody[authResponse](t, raw)
	if auth.Token == "" {
		t.Fatal("register returned empty token")
	}
	return auth.Token
}

func TestRegisterLoginAndMe(t *testing.T) {
	ts, _ := newTestServer(t, false)

	register(t, ts, "asha", "asha@example.com")

	resp, _ := doRequest(t, ts, "", http.MethodPost, "/api/auth/register", map[string]string{
		"username": "asha2",
		"email":    "asha@example.com",
		"password": "another password",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate email: status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	resp, _ = doRequest(t, ts, "", http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "asha@example.com",
		"password": "wrong password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	resp, raw := doRequest(t, ts, "", http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "Asha@Example.com",
		"password": "correct horse battery",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status = %d, body %s", resp.StatusCode, raw)
	}
	auth := decodeBody[authResponse](t, raw)

	resp, raw = doRequest(t, ts, auth.Token, http.MethodGet, "/api/auth/me", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: status = %d", resp.StatusCode)
	}
	user := decodeBody[core.User](t, raw)
	if user.Email != "asha@example.com" || user.Username != "asha" {
		t.Errorf("me = %q/%q, want asha/asha@example.com", user.Username, user.Email)
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked in response")
	}
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestServer(t, false)

	for _, token := range []string{"", "not-a-jwt"} {
		resp, _ := doRequest(t, ts, token, http.MethodGet, "/api/expenses", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want %d", token, resp.StatusCode, http.StatusUnauthorized)
		}
	}
}

func TestExpenseCRUD(t *testing.T) {
	ts, _ := newTestServer(t, false)
	token := register(t, ts, "asha", "asha@example.com")

	resp, raw := doRequest(t, ts, token, http.MethodPost, "/api/expenses", map[string]any{
		"amount":      "450.50",
		"category":    "Food",
		"description": "groceries",
		"date":        "2024-06-10",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", resp.StatusCode, raw)
	}
	created := decodeBody[core.Expense](t, raw)
	if created.ID == "" {
		t.Fatal("create returned empty id")
	}
	if created.Amount.Cents != 450_50 {
		t.Errorf("amount = %d cents, want 45050", created.Amount.Cents)
	}

	resp, raw = doRequest(t, ts, token, http.MethodGet, "/api/expenses/"+created.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: status = %d", resp.StatusCode)
	}

	resp, raw = doRequest(t, ts, token, http.MethodPut, "/api/expenses/"+created.ID, map[string]any{
		"amount":      "500",
		"category":    "Food",
		"description": "groceries and fruit",
		"date":        "2024-06-10",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status = %d, body %s", resp.StatusCode, raw)
	}
	updated := decodeBody[core.Expense](t, raw)
	if updated.Amount.Cents != 500_00 || updated.Description != "groceries and fruit" {
		t.Errorf("update not applied: %+v", updated)
	}

	resp, raw = doRequest(t, ts, token, http.MethodGet, "/api/expenses?month=2024-06", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d", resp.StatusCode)
	}
	if list := decodeBody[[]core.Expense](t, raw); len(list) != 1 {
		t.Errorf("list in June = %d entries, want 1", len(list))
	}

	resp, raw = doRequest(t, ts, token, http.MethodGet, "/api/expenses?month=2024-07", nil)
	if list := decodeBody[[]core.Expense](t, raw); len(list) != 0 {
		t.Errorf("list in July = %d entries, want 0", len(list))
	}

	resp, _ = doRequest(t, ts, token, http.MethodDelete, "/api/expenses/"+created.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status = %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, ts, token, http.MethodGet, "/api/expenses/"+created.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestExpenseValidation(t *testing.T) {
	ts, _ := newTestServer(t, false)
	token := register(t, ts, "asha", "asha@example.com")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"negative amount", map[string]any{"amount": "-5", "category": "Food", "date": "2024-06-10"}},
		{"unknown category", map[string]any{"amount": "5", "category": "Gadgets", "date": "2024-06-10"}},
		{"bad date", map[string]any{"amount": "5", "category": "Food", "date": "10/06/2024"}},
		{"unknown field", map[string]any{"amount": "5", "category": "Food", "date": "2024-06-10", "extra": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doRequest(t, ts, token, http.MethodPost, "/api/expenses", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
		})
	}
}

func TestOwnerIsolation(t *testing.T) {
	ts, _ := newTestServer(t, false)
	ashaToken := register(t, ts, "asha", "asha@example.com")
	ravisToken := register(t, ts, "ravi", "ravi@example.com")

	_, raw := doRequest(t, ts, ashaToken, http.MethodPost, "/api/expenses", map[string]any{
		"amount": "100", "category": "Food", "date": "2024-06-10",
	})
	expense := decodeBody[core.Expense](t, raw)

	resp, _ := doRequest(t, ts, ravisToken, http.MethodGet, "/api/expenses/"+expense.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-owner get: status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp, _ = doRequest(t, ts, ravisToken, http.MethodDelete, "/api/expenses/"+expense.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-owner delete: status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestSharedDataMode(t *testing.T) {
	ts, _ := newTestServer(t, true)
	ashaToken := register(t, ts, "asha", "asha@example.com")
	ravisToken := register(t, ts, "ravi", "ravi@example.com")

	_, raw := doRequest(t, ts, ashaToken, http.MethodPost, "/api/expenses", map[string]any{
		"amount": "100", "category": "Food", "date": "2024-06-10",
	})
	expense := decodeBody[core.Expense](t, raw)

	resp, _ := doRequest(t, ts, ravisToken, http.MethodGet, "/api/expenses/"+expense.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("shared-mode get: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestEMIPayAndUnpay(t *testing.T) {
	ts, _ := newTestServer(t, false)
	token := register(t, ts, "asha", "asha@example.com")

	resp, raw := doRequest(t, ts, token, http.MethodPost, "/api/emis", map[string]any{
		"name":               "Bike Loan",
		"downPayment":        "10000",
		"principalAmount":    "60000",
		"monthlyInstallment": "2000",
		"interestRate":       9.5,
		"tenureMonths":       12,
		"startDate":          "2024-01-10",
		"category":           "Personal Loan",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create plan: status = %d, body %s", resp.StatusCode, raw)
	}
	plan := decodeBody[core.EMIPlan](t, raw)
	if plan.RemainingMonths != 12 || !plan.IsActive {
		t.Fatalf("plan not initialized: %+v", plan)
	}

	payURL := fmt.Sprintf("/api/emis/%s/pay", plan.ID)
	resp, raw = doRequest(t, ts, token, http.MethodPost, payURL, map[string]string{"date": "2024-02-05"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pay: status = %d, body %s", resp.StatusCode, raw)
	}
	paid := decodeBody[core.EMIPlan](t, raw)
	if paid.PaidMonths != 1 || paid.RemainingMonths != 11 {
		t.Errorf("after pay: paid = %d, remaining = %d", paid.PaidMonths, paid.RemainingMonths)
	}

	resp, _ = doRequest(t, ts, token, http.MethodPost, payURL, map[string]string{"date": "2024-02-20"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second pay in month: status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	unpayURL := fmt.Sprintf("/api/emis/%s/unpay", plan.ID)
	resp, raw = doRequest(t, ts, token, http.MethodPost, unpayURL, map[string]string{"date": "2024-02-05"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unpay: status = %d, body %s", resp.StatusCode, raw)
	}
	unpaid := decodeBody[core.EMIPlan](t, raw)
	if unpaid.PaidMonths != 0 || unpaid.RemainingMonths != 12 {
		t.Errorf("after unpay: paid = %d, remaining = %d", unpaid.PaidMonths, unpaid.RemainingMonths)
	}

	resp, _ = doRequest(t, ts, token, http.MethodPost, unpayURL, map[string]string{"date": "2024-02-05"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("unpay without payment: status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestEMIUpdateScheduleLock(t *testing.T) {
	ts, _ := newTestServer(t, false)
	token := register(t, ts, "asha", "asha@example.com")

	_, raw := doRequest(t, ts, token, http.MethodPost, "/api/emis", map[string]any{
		"name":               "Bike Loan",
		"downPayment":        "0",
		"principalAmount":    "60000",
		"monthlyInstallment": "2000",
		"tenureMonths":       12,
		"startDate":          "2024-01-10",
		"category":           "Personal Loan",
	})
	plan := decodeBody[core.EMIPlan](t, raw)

	doRequest(t, ts, token, http.MethodPost, "/api/emis/"+plan.ID+"/pay", map[string]string{"date": "2024-02-05"})

	resp, _ := doRequest(t, ts, token, http.MethodPut, "/api/emis/"+plan.ID, map[string]any{
		"name":               "Bike Loan",
		"downPayment":        "0",
		"principalAmount":    "60000",
		"monthlyInstallment": "2000",
		"tenureMonths":       24,
		"startDate":          "2024-01-10",
		"category":           "Personal Loan",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("tenure change with payments: status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	resp, raw = doRequest(t, ts, token, http.MethodPut, "/api/emis/"+plan.ID, map[string]any{
		"name":               "Bike Loan (refinanced)",
		"downPayment":        "0",
		"principalAmount":    "60000",
		"monthlyInstallment": "1800",
		"tenureMonths":       12,
		"startDate":          "2024-01-10",
		"category":           "Personal Loan",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("field update: status = %d, body %s", resp.StatusCode, raw)
	}
	updated := decodeBody[core.EMIPlan](t, raw)
	if updated.MonthlyInstallment.Cents != 1800_00 || updated.PaidMonths != 1 {
		t.Errorf("update lost state: %+v", updated)
	}
}

func TestFinancialSummaryEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, false)
	token := register(t, ts, "asha", "asha@example.com")

	doRequest(t, ts, token, http.MethodPost, "/api/incomes", map[string]any{
		"amount": "50000", "source": "Acme", "type": "Salary", "date": "2024-06-01",
	})
	doRequest(t, ts, token, http.MethodPost, "/api/expenses", map[string]any{
		"amount": "1200", "category": "Food", "date": "2024-06-10",
	})

	resp, raw := doRequest(t, ts, token, http.MethodGet, "/api/financial/summary?all=true", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary: status = %d, body %s", resp.StatusCode, raw)
	}
	summary := decodeBody[core.FinancialSummary](t, raw)
	if got := summary.Balance.Available.Cents; got != 48_800_00 {
		t.Errorf("available = %d cents, want 4880000", got)
	}
	if summary.Expenses.TotalAll.Cents != 1200_00 {
		t.Errorf("totalAll = %d cents, want 120000", summary.Expenses.TotalAll.Cents)
	}
}

func TestBudgetStatusEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, false)
	token := register(t, ts, "asha", "asha@example.com")

	doRequest(t, ts, token, http.MethodPost, "/api/expenses", map[string]any{
		"amount": "600", "category": "Food", "date": "2024-06-10",
	})
	resp, raw := doRequest(t, ts, token, http.MethodPost, "/api/budgets", map[string]any{
		"category":  "Food",
		"amount":    "1000",
		"period":    "Monthly",
		"startDate": "2024-06-01",
		"endDate":   "2024-06-30",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create budget: status = %d, body %s", resp.StatusCode, raw)
	}

	resp, raw = doRequest(t, ts, token, http.MethodGet, "/api/budgets/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: status = %d, body %s", resp.StatusCode, raw)
	}
	statuses := decodeBody[[]core.BudgetStatus](t, raw)
	if len(statuses) != 1 {
		t.Fatalf("statuses = %d entries, want 1", len(statuses))
	}
	if statuses[0].Spent.Cents != 600_00 || statuses[0].PercentageUsed != 60 {
		t.Errorf("spent = %d, pct = %v, want 60000 and 60", statuses[0].Spent.Cents, statuses[0].PercentageUsed)
	}
	if statuses[0].OverBudget() {
		t.Error("budget under cap reported as over")
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, false)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := doRequest(t, ts, "", http.MethodGet, path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d, want %d", path, resp.StatusCode, http.StatusOK)
		}
	}
}
