package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"spentee/internal/core"
	"spentee/internal/emi"
	"spentee/internal/storage"
)

type emiPlanRequest struct {
	Name               string      `json:"name"`
	DownPayment        json.Number `json:"downPayment"`
	PrincipalAmount    json.Number `json:"principalAmount"`
	MonthlyInstallment json.Number `json:"monthlyInstallment"`
	InterestRate       float64     `json:"interestRate"`
	TenureMonths       int         `json:"tenureMonths"`
	StartDate          string      `json:"startDate"`
	Category           string      `json:"category"`
	IncludeDownPayment bool        `json:"includeDownPaymentInBalance"`
}

func (req emiPlanRequest) toPlan(ownerID string) (core.EMIPlan, error) {
	down, err := core.ParseAmount(req.DownPayment.String())
	if err != nil {
		return core.EMIPlan{}, err
	}
	principal, err := core.ParseAmount(req.PrincipalAmount.String())
	if err != nil {
		return core.EMIPlan{}, err
	}
	installment, err := core.ParseAmount(req.MonthlyInstallment.String())
	if err != nil {
		return core.EMIPlan{}, err
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return core.EMIPlan{}, core.ErrInvalidDate
	}
	return core.EMIPlan{
		OwnerID:            ownerID,
		Name:               sanitizeInput(req.Name),
		DownPayment:        down,
		PrincipalAmount:    principal,
		MonthlyInstallment: installment,
		InterestRate:       req.InterestRate,
		TenureMonths:       req.TenureMonths,
		StartDate:          start,
		Category:           core.EMICategory(req.Category),
		IncludeDownPayment: req.IncludeDownPayment,
	}, nil
}

func (s *Server) handleListEMIPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.ListEMIPlans(r.Context(), s.ownerFilter(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if plans == nil {
		plans = []core.EMIPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handleCreateEMIPlan(w http.ResponseWriter, r *http.Request) {
	var req emiPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := req.toPlan(userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := plan.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.CreateEMIPlan(r.Context(), emi.Initialize(plan))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetEMIPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.store.GetEMIPlan(r.Context(), s.ownerFilter(r), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handleUpdateEMIPlan edits a plan's descriptive fields. Tenure and start
// date are only editable while no payments are recorded, since changing the
// schedule under existing payments would corrupt the bookkeeping.
func (s *Server) handleUpdateEMIPlan(w http.ResponseWriter, r *http.Request) {
	var req emiPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	incoming, err := req.toPlan(userID(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := incoming.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scheduleLocked := errors.New("cannot change tenure or start date after payments are recorded")
	updated, err := s.updatePlan(r, r.PathValue("id"), func(p core.EMIPlan) (core.EMIPlan, error) {
		rescheduled := p.TenureMonths != incoming.TenureMonths || !p.StartDate.Equal(incoming.StartDate.Time)
		if rescheduled && len(p.PaidMonthDates) > 0 {
			return core.EMIPlan{}, scheduleLocked
		}
		p.Name = incoming.Name
		p.DownPayment = incoming.DownPayment
		p.PrincipalAmount = incoming.PrincipalAmount
		p.MonthlyInstallment = incoming.MonthlyInstallment
		p.InterestRate = incoming.InterestRate
		p.Category = incoming.Category
		p.IncludeDownPayment = incoming.IncludeDownPayment
		if rescheduled {
			p.TenureMonths = incoming.TenureMonths
			p.StartDate = incoming.StartDate
			p = emi.Initialize(p)
		}
		return p, nil
	})
	if err != nil {
		if errors.Is(err, scheduleLocked) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEMIPlan(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteEMIPlan(r.Context(), s.ownerFilter(r), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// payRequest optionally carries the payment date; today when absent or when
// the request has no body at all.
type payRequest struct {
	Date string `json:"date"`
}

func paymentDate(r *http.Request) (time.Time, error) {
	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, io.EOF) {
			return time.Now().UTC(), nil
		}
		return time.Time{}, err
	}
	if req.Date == "" {
		return time.Now().UTC(), nil
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return time.Time{}, err
	}
	return date.Time, nil
}

func (s *Server) handlePayEMI(w http.ResponseWriter, r *http.Request) {
	asOf, err := paymentDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment date")
		return
	}

	updated, err := s.updatePlan(r, r.PathValue("id"), func(p core.EMIPlan) (core.EMIPlan, error) {
		return emi.MarkPaid(p, asOf)
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleUnpayEMI(w http.ResponseWriter, r *http.Request) {
	asOf, err := paymentDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment date")
		return
	}

	updated, err := s.updatePlan(r, r.PathValue("id"), func(p core.EMIPlan) (core.EMIPlan, error) {
		return emi.UnmarkPaid(p, asOf)
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// updatePlan runs a version-checked plan mutation, retrying once when a
// concurrent writer won the race. A second loss is reported as a conflict.
func (s *Server) updatePlan(r *http.Request, id string, mutate func(core.EMIPlan) (core.EMIPlan, error)) (core.EMIPlan, error) {
	owner := s.ownerFilter(r)
	updated, err := s.store.UpdateEMIPlan(r.Context(), owner, id, mutate)
	if errors.Is(err, storage.ErrConcurrentModification) {
		updated, err = s.store.UpdateEMIPlan(r.Context(), owner, id, mutate)
	}
	return updated, err
}
