package http

import (
	"encoding/json"
	"net/http"

	"spentee/internal/core"
)

type budgetRequest struct {
	Category  string      `json:"category"`
	Amount    json.Number `json:"amount"`
	Period    string      `json:"period"`
	StartDate string      `json:"startDate"`
	EndDate   string      `json:"endDate"`
	IsActive  *bool       `json:"isActive"`
}

func (req budgetRequest) toBudget(ownerID string) (core.Budget, error) {
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		return core.Budget{}, err
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return core.Budget{}, core.ErrInvalidDate
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return core.Budget{}, core.ErrInvalidDate
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return core.Budget{
		OwnerID:   ownerID,
		Category:  core.ExpenseCategory(req.Category),
		Amount:    amount,
		Period:    core.BudgetPeriod(req.Period),
		StartDate: start,
		EndDate:   end,
		IsActive:  active,
	}, nil
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.ListBudgets(r.Context(), s.ownerFilter(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget, err := req.toBudget(userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := budget.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.CreateBudget(r.Context(), budget)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.store.GetBudget(r.Context(), s.ownerFilter(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	budget, err := req.toBudget(userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	budget.ID = r.PathValue("id")
	if err := budget.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.store.UpdateBudget(r.Context(), s.ownerFilter(r), budget)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBudget(r.Context(), s.ownerFilter(r), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.engine.EvaluateAllBudgets(r.Context(), s.ownerFilter(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if statuses == nil {
		statuses = []core.BudgetStatus{}
	}
	writeJSON(w, http.StatusOK, statuses)
}
