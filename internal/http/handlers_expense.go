package http

import (
	"mime"
	"net/http"

	"finboard/internal/session"

	"github.com/go-chi/chi/v5"
)

const maxReceiptBytes = 10 << 20

func (s *Server) handleListExpenses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Expenses())
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var form session.ExpenseForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := s.sess.AddExpense(r.Context(), form)
	if err != nil {
		writeSessionError(w, r, "add_expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var form session.ExpenseForm
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := s.sess.UpdateExpense(r.Context(), chi.URLParam(r, "id"), form)
	if err != nil {
		writeSessionError(w, r, "update_expense", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleReceipt checks the uploaded "receipt" part. The file itself is
// discarded.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBytes)

	var filename, contentType string
	if err := r.ParseMultipartForm(maxReceiptBytes); err == nil {
		if f, hdr, err := r.FormFile("receipt"); err == nil {
			f.Close()
			filename = hdr.Filename
			contentType, _, _ = mime.ParseMediaType(hdr.Header.Get("Content-Type"))
		}
	}
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}

	if err := s.sess.AttachReceipt(r.Context(), filename, contentType); err != nil {
		writeSessionError(w, r, "attach_receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"filename": filename, "status": "attached"})
}
