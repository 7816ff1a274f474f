package server

import (
	"fmt"
	"net/http"
	"strings"

	"epictree/internal/api"
	"epictree/internal/events"
)

func (s *Server) handleIssueChanged(w http.ResponseWriter, r *http.Request) {
	var req api.IssueChangedRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	req.IssueKey = strings.ToUpper(strings.TrimSpace(req.IssueKey))
	req.EpicKey = strings.ToUpper(strings.TrimSpace(req.EpicKey))
	if req.IssueKey != "" && !validateIssueKey(req.IssueKey) {
		s.writeServiceError(w, r, badRequestCode(fmt.Errorf("invalid issue key %q", req.IssueKey), ErrCodeInvalidKey))
		return
	}
	if req.EpicKey != "" && !validateEpicID(req.EpicKey) {
		s.writeServiceError(w, r, badRequestCode(fmt.Errorf("invalid epic id %q", req.EpicKey), ErrCodeInvalidKey))
		return
	}
	if s.bus == nil {
		s.writeJSON(w, http.StatusOK, api.IssueChangedResponse{})
		return
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "api"
	}
	delivered := s.bus.Subscribers()
	s.bus.Publish(events.Event{
		Name:     events.IssueChanged,
		IssueKey: req.IssueKey,
		EpicKey:  req.EpicKey,
		Fields:   req.Fields,
		Source:   source,
	})
	s.log().Debug("issue change published", "issue", req.IssueKey, "epic", req.EpicKey, "subscribers", delivered)
	s.writeJSON(w, http.StatusOK, api.IssueChangedResponse{Delivered: delivered})
}
