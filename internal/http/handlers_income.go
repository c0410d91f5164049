package http

import (
	"net/http"

	"finboard/internal/session"
)

func (s *Server) handleListIncome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Income())
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	var form session.IncomeForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := s.sess.AddIncome(r.Context(), form)
	if err != nil {
		writeSessionError(w, r, "add_income", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
