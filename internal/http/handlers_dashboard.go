package http

import (
	"fmt"
	"net/http"

	"finboard/internal/core"
)

// handleDashboard serves the derived snapshot. Entries are keyed by the
// criteria, the session revision and the day, so any mutation or date change
// misses the cache.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	c := ParseCriteria(r.URL.Query())
	key := fmt.Sprintf("%s|%d|%s", c.Key(), s.sess.Revision(), core.Today(s.now()).String())

	if d, ok := s.dashboards.Get(key); ok {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, d)
		return
	}
	d := s.sess.Dashboard(c)
	s.dashboards.Set(key, d)
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleGamification(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Gamification())
}

// handleError reports the error slot; an empty string means no error.
func (s *Server) handleError(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, errorResponse{Error: s.sess.LastError()})
}
