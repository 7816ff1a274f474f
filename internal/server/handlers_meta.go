package server

import (
	"fmt"
	"net/http"
	"strings"

	"epictree/internal/api"
	"epictree/internal/service"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	resp := api.InfoResponse{
		DefaultEpic: s.defaultEpic,
		JiraSite:    s.jiraSite,
		Operations:  service.Operations(),
		Sessions:    []string{},
		Journal:     s.journal != nil,
	}
	if s.sessions != nil {
		resp.Sessions = s.sessions.IDs()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleCloseSession drops a viewer session with its filters and pending edits.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" || s.sessions == nil {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("session not found"), ErrCodeNotFound))
		return
	}
	if _, ok := s.sessions.Lookup(id); !ok {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("session %q not found", id), ErrCodeNotFound))
		return
	}
	s.sessions.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}
