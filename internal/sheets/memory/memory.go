// Package memory is an in-process sheets.RowWriter used for dry runs and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"finboard/internal/core"
	"finboard/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows [][]any
	pos  map[string]int
}

// Ensure interface conformance
var _ sheets.RowWriter = (*Store)(nil)

func New() *Store {
	return &Store{pos: map[string]int{}}
}

// Upsert keeps one row per id and returns a synthetic row reference.
func (s *Store) Upsert(_ context.Context, e core.Expense) (string, error) {
	if e.ID == "" {
		return "", errors.New("expense has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.pos[e.ID]
	if !ok {
		s.rows = append(s.rows, nil)
		i = len(s.rows) - 1
		s.pos[e.ID] = i
	}
	s.rows[i] = sheets.Row(e)
	return fmt.Sprintf("mem:%d", i+1), nil
}

// Clear blanks the row of id.
func (s *Store) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.pos[id]; ok {
		s.rows[i] = nil
		delete(s.pos, id)
	}
	return nil
}

// Row returns a copy of the row for id.
func (s *Store) Row(id string) ([]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.pos[id]
	if !ok {
		return nil, false
	}
	return append([]any(nil), s.rows[i]...), true
}

// Len counts non-cleared rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pos)
}
