package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"spentee/internal/core"
	"spentee/internal/emi"
	"spentee/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps domain and storage errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrUserExists):
		writeError(w, http.StatusConflict, "user already exists")
	case errors.Is(err, emi.ErrAlreadyPaidThisMonth),
		errors.Is(err, emi.ErrNoPaymentThisMonth),
		errors.Is(err, emi.ErrPlanClosed),
		errors.Is(err, storage.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (core.Date, error) {
	parsedTime, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return core.Date{}, err
	}
	return core.DateOf(parsedTime), nil
}

// parseWindow reads the reporting window from query parameters. Supported
// forms: none (current calendar month), all=true (all time), month=YYYY-MM,
// or explicit start/end dates.
func parseWindow(r *http.Request) (*core.DateRange, error) {
	q := r.URL.Query()

	if q.Get("all") == "true" {
		return nil, nil
	}

	if month := q.Get("month"); month != "" {
		t, err := time.ParseInLocation("2006-01", month, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid month %q: want YYYY-MM", month)
		}
		window := core.CurrentMonth(t)
		return &window, nil
	}

	start, end := q.Get("start"), q.Get("end")
	if start != "" || end != "" {
		if start == "" || end == "" {
			return nil, errors.New("start and end must be provided together")
		}
		from, err := parseDate(start)
		if err != nil {
			return nil, fmt.Errorf("invalid start date %q", start)
		}
		to, err := parseDate(end)
		if err != nil {
			return nil, fmt.Errorf("invalid end date %q", end)
		}
		if to.Before(from.Time) {
			return nil, errors.New("end date before start date")
		}
		return &core.DateRange{Start: from, End: to}, nil
	}

	window := core.CurrentMonth(time.Now())
	return &window, nil
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
