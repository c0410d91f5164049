package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"finboard/internal/amqp"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/storage"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.repo.List(r.Context())
	if err != nil {
		s.internalError(w, r, "list expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	e, err := s.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Expense not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "get expense", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeInput(w, r)
	if !ok {
		return
	}
	e, err := s.repo.Create(r.Context(), in)
	if err != nil {
		s.internalError(w, r, "create expense", err)
		return
	}
	s.publish(r.Context(), amqp.EventCreated, e.ID)

	id, _ := strconv.ParseInt(e.ID, 10, 64)
	writeJSON(w, http.StatusOK, createResponse{Message: "Expense Added", ID: id})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeInput(w, r)
	if !ok {
		return
	}
	e, err := s.repo.Update(r.Context(), chi.URLParam(r, "id"), in)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Expense not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "update expense", err)
		return
	}
	s.publish(r.Context(), amqp.EventUpdated, e.ID)
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.repo.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Expense not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "delete expense", err)
		return
	}
	s.publish(r.Context(), amqp.EventDeleted, id)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Deleted Successfully"})
}

// decodeInput reads and validates an expense body, writing a 422 on failure.
func (s *Server) decodeInput(w http.ResponseWriter, r *http.Request) (core.ExpenseInput, bool) {
	var in core.ExpenseInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return in, false
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return in, false
	}
	if c, ok := core.ParseCategory(string(in.Category)); ok {
		in.Category = c
	}
	return in, true
}

// publish emits a change event. Failures never fail the request.
func (s *Server) publish(ctx context.Context, t amqp.EventType, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(t, id)); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Failed to publish expense event",
			applog.FieldEventType, t,
			applog.FieldExpenseID, id,
			applog.FieldError, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Expense API failure",
		applog.FieldOperation, op,
		applog.FieldError, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
