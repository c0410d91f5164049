package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finboard/internal/apiclient"
	"finboard/internal/core"
	applog "finboard/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps session errors: validation 422, expense API 502, else 500.
func statusFor(err error) int {
	var ve *core.ValidationError
	var ne *apiclient.NetworkError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ne):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeSessionError answers with the user-facing message of err. Internal
// failures are logged and hidden.
func writeSessionError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	logger := applog.FromContext(r.Context())
	switch status {
	case http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "Dashboard operation failed",
			applog.FieldOperation, op, applog.FieldError, err)
		msg = "Internal server error"
	case http.StatusBadGateway:
		var ne *apiclient.NetworkError
		errors.As(err, &ne)
		logger.WarnContext(r.Context(), "Expense API unavailable",
			applog.FieldOperation, op, applog.FieldError, ne.Detail())
	}
	writeError(w, status, msg)
}
