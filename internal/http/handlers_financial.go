package http

import (
	"net/http"

	"spentee/internal/core"
)

func (s *Server) handleFinancialSummary(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := s.engine.Summarize(r.Context(), s.ownerFilter(r), window)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	feed, err := s.engine.ListTransactions(r.Context(), s.ownerFilter(r), window)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if feed == nil {
		feed = []core.UnifiedTransaction{}
	}
	writeJSON(w, http.StatusOK, feed)
}
