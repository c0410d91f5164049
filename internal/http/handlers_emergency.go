package http

import (
	"encoding/json"
	"net/http"

	"finboard/internal/core"
	"finboard/internal/emergency"
)

type contributionResponse struct {
	Contributed core.Money        `json:"contributed"`
	Applied     bool              `json:"applied"`
	Emergency   emergency.Summary `json:"emergency"`
}

type withdrawalResponse struct {
	Record    core.EmergencyUsageRecord `json:"record"`
	Emergency emergency.Summary         `json:"emergency"`
}

func (s *Server) handleEmergency(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Emergency())
}

func (s *Server) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	var body amountBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.sess.SetMonthlyTarget(r.Context(), body.Amount); err != nil {
		writeSessionError(w, r, "set_monthly_target", err)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Emergency())
}

// handleContribute adds the given amount, or the monthly target when the
// body is empty.
func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	b, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		resp  contributionResponse
		added core.Money
	)
	if len(b) == 0 {
		added, err = s.sess.ContributeMonthly(r.Context())
		if err != nil {
			writeSessionError(w, r, "contribute_monthly", err)
			return
		}
	} else {
		var body amountBody
		if err := json.Unmarshal(b, &body); err != nil {
			writeError(w, http.StatusBadRequest, errBadJSON.Error())
			return
		}
		added, err = s.sess.Contribute(r.Context(), body.Amount)
		if err != nil {
			writeSessionError(w, r, "contribute", err)
			return
		}
	}
	resp.Contributed = added
	resp.Applied = added.IsPositive()
	resp.Emergency = s.sess.Emergency()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var body withdrawalBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := s.sess.Withdraw(r.Context(), body.Reason, body.Amount)
	if err != nil {
		writeSessionError(w, r, "withdraw", err)
		return
	}
	writeJSON(w, http.StatusCreated, withdrawalResponse{Record: rec, Emergency: s.sess.Emergency()})
}
