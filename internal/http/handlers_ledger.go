package http

import (
	"context"
	"encoding/json"
	"net/http"

	"spentee/internal/core"
	"spentee/internal/log"
	"spentee/internal/storage"
)

// notifySaved hands a row to the export pipeline. Publish failures are
// logged, never surfaced: the row is already durably stored and the worker
// catches up from the pending queue.
func (s *Server) notifySaved(ctx context.Context, kind, id string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.TransactionSaved(ctx, kind, id); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed publishing sync message", "kind", kind, "id", id, "error", err)
	}
}

func (s *Server) notifyDeleted(ctx context.Context, kind, id string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.TransactionDeleted(ctx, kind, id); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed publishing delete message", "kind", kind, "id", id, "error", err)
	}
}

// --- expenses ---

type expenseRequest struct {
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
}

func (req expenseRequest) toExpense(ownerID string) (core.Expense, error) {
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		return core.Expense{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Expense{}, core.ErrInvalidDate
	}
	return core.Expense{
		OwnerID:     ownerID,
		Amount:      amount,
		Category:    core.ExpenseCategory(req.Category),
		Description: sanitizeInput(req.Description),
		Date:        date,
	}, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.store.ListExpenses(r.Context(), s.ownerFilter(r), window)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, err := req.toExpense(userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := expense.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.CreateExpense(r.Context(), expense)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.notifySaved(r.Context(), storage.SyncKindExpense, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.store.GetExpense(r.Context(), s.ownerFilter(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expense, err := req.toExpense(userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expense.ID = r.PathValue("id")
	if err := expense.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.store.UpdateExpense(r.Context(), s.ownerFilter(r), expense)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.notifySaved(r.Context(), storage.SyncKindExpense, updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteExpense(r.Context(), s.ownerFilter(r), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.notifyDeleted(r.Context(), storage.SyncKindExpense, id)
	w.WriteHeader(http.StatusNoContent)
}

// --- incomes ---

type incomeRequest struct {
	Amount      json.Number `json:"amount"`
	Source      string      `json:"source"`
	Description string      `json:"description"`
	Type        string      `json:"type"`
	Date        string      `json:"date"`
}

func (req incomeRequest) toIncome(ownerID string) (core.Income, error) {
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		return core.Income{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Income{}, core.ErrInvalidDate
	}
	return core.Income{
		OwnerID:     ownerID,
		Amount:      amount,
		Source:      sanitizeInput(req.Source),
		Description: sanitizeInput(req.Description),
		Type:        core.IncomeType(req.Type),
		Date:        date,
	}, nil
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.store.ListIncomes(r.Context(), s.ownerFilter(r), window)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []core.Income{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	income, err := req.toIncome(userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := income.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.CreateIncome(r.Context(), income)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.notifySaved(r.Context(), storage.SyncKindIncome, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	income, err := s.store.GetIncome(r.Context(), s.ownerFilter(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, income)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	income, err := req.toIncome(userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	income.ID = r.PathValue("id")
	if err := income.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.store.UpdateIncome(r.Context(), s.ownerFilter(r), income)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.notifySaved(r.Context(), storage.SyncKindIncome, updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteIncome(r.Context(), s.ownerFilter(r), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.notifyDeleted(r.Context(), storage.SyncKindIncome, id)
	w.WriteHeader(http.StatusNoContent)
}

// --- savings ---

type savingRequest struct {
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
}

func (req savingRequest) toSaving(ownerID string) (core.Saving, error) {
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		return core.Saving{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Saving{}, core.ErrInvalidDate
	}
	return core.Saving{
		OwnerID:     ownerID,
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		Date:        date,
	}, nil
}

func (s *Server) handleListSavings(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.store.ListSavings(r.Context(), s.ownerFilter(r), window)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []core.Saving{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateSaving(w http.ResponseWriter, r *http.Request) {
	var req savingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saving, err := req.toSaving(userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := saving.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.CreateSaving(r.Context(), saving)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.notifySaved(r.Context(), storage.SyncKindSaving, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetSaving(w http.ResponseWriter, r *http.Request) {
	saving, err := s.store.GetSaving(r.Context(), s.ownerFilter(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saving)
}

func (s *Server) handleUpdateSaving(w http.ResponseWriter, r *http.Request) {
	var req savingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saving, err := req.toSaving(userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	saving.ID = r.PathValue("id")
	if err := saving.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.store.UpdateSaving(r.Context(), s.ownerFilter(r), saving)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.notifySaved(r.Context(), storage.SyncKindSaving, updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSaving(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteSaving(r.Context(), s.ownerFilter(r), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.notifyDeleted(r.Context(), storage.SyncKindSaving, id)
	w.WriteHeader(http.StatusNoContent)
}

// --- upi payments ---

type upiPaymentRequest struct {
	TransactionID string      `json:"transactionId"`
	Amount        json.Number `json:"amount"`
	App           string      `json:"upiApp"`
	RecipientName string      `json:"recipientName"`
	RecipientUPI  string      `json:"recipientUpi"`
	Category      string      `json:"category"`
	Description   string      `json:"description"`
	Date          string      `json:"date"`
	Status        string      `json:"status"`
}

func (req upiPaymentRequest) toUPIPayment(ownerID string) (core.UPIPayment, error) {
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		return core.UPIPayment{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.UPIPayment{}, core.ErrInvalidDate
	}
	status := core.UPIStatus(req.Status)
	if req.Status == "" {
		status = core.UPISuccess
	}
	return core.UPIPayment{
		OwnerID:       ownerID,
		TransactionID: sanitizeInput(req.TransactionID),
		Amount:        amount,
		App:           core.UPIApp(req.App),
		RecipientName: sanitizeInput(req.RecipientName),
		RecipientUPI:  sanitizeInput(req.RecipientUPI),
		Category:      core.ExpenseCategory(req.Category),
		Description:   sanitizeInput(req.Description),
		Date:          date,
		Status:        status,
	}, nil
}

func (s *Server) handleListUPIPayments(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.store.ListUPIPayments(r.Context(), s.ownerFilter(r), window)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []core.UPIPayment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateUPIPayment(w http.ResponseWriter, r *http.Request) {
	var req upiPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := req.toUPIPayment(userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := payment.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.CreateUPIPayment(r.Context(), payment)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.notifySaved(r.Context(), storage.SyncKindUPI, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetUPIPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := s.store.GetUPIPayment(r.Context(), s.ownerFilter(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) handleUpdateUPIPayment(w http.ResponseWriter, r *http.Request) {
	var req upiPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := req.toUPIPayment(userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	payment.ID = r.PathValue("id")
	if err := payment.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.store.UpdateUPIPayment(r.Context(), s.ownerFilter(r), payment)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.notifySaved(r.Context(), storage.SyncKindUPI, updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteUPIPayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteUPIPayment(r.Context(), s.ownerFilter(r), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.notifyDeleted(r.Context(), storage.SyncKindUPI, id)
	w.WriteHeader(http.StatusNoContent)
}
