package server

import (
	"fmt"
	"net/http"
	"strings"

	"epictree/internal/api"
	"epictree/internal/service"
	"epictree/internal/session"
	"epictree/internal/store"
)

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	issueKey, ok := s.pathIssueKey(w, r)
	if !ok {
		return
	}
	field, err := normalizeField(r.PathValue("field"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var req api.EditRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	edit := session.Edit{
		IssueKey:    issueKey,
		Field:       field,
		Value:       req.Value,
		DisplayName: strings.TrimSpace(req.DisplayName),
		IconURL:     strings.TrimSpace(req.IconURL),
	}

	if sess, ok := s.editSession(r, req.EpicKey); ok {
		res, err := sess.SubmitEdit(r.Context(), edit)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, res)
		return
	}

	// No live session shows this issue: write straight through.
	update := s.service.UpdateIssueField(r.Context(), service.UpdateIssueFieldRequest{
		IssueKey:   issueKey,
		FieldName:  field,
		FieldValue: req.Value,
	})
	res := api.EditResponse{Success: update.Success, Status: update.Status, Error: update.Error}
	if s.journal != nil {
		_, err := s.journal.RecordEdit(r.Context(), store.EditInput{
			IssueKey:  issueKey,
			EpicKey:   strings.ToUpper(strings.TrimSpace(req.EpicKey)),
			Field:     field,
			Value:     req.Value,
			Success:   res.Success,
			Status:    res.Status,
			Error:     res.Error,
			SessionID: strings.TrimSpace(r.Header.Get(api.SessionHeader)),
		})
		if err != nil {
			s.log().Error("record edit", "issue", issueKey, "field", field, "error", err)
		}
	}
	s.writeJSON(w, http.StatusOK, res)
}

// editSession returns the caller's live session when it shows epicKey, or
// any epic when epicKey is empty.
func (s *Server) editSession(r *http.Request, epicKey string) (*session.Session, bool) {
	if s.sessions == nil {
		return nil, false
	}
	sess, ok := s.sessions.Lookup(r.Header.Get(api.SessionHeader))
	if !ok || sess.Closed() {
		return nil, false
	}
	epicKey = strings.ToUpper(strings.TrimSpace(epicKey))
	if epicKey != "" && sess.EpicKey() != epicKey {
		return nil, false
	}
	return sess, true
}

func (s *Server) handleListEdits(w http.ResponseWriter, r *http.Request) {
	issueKey, ok := s.pathIssueKey(w, r)
	if !ok {
		return
	}
	if s.journal == nil {
		err := makeAPIError(http.StatusNotImplemented, "unimplemented", ErrCodeJournalDisabled, fmt.Errorf("edit journal is not configured"))
		s.writeServiceError(w, r, err)
		return
	}
	limit, err := queryIntDefault(r, "limit", 0)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	edits, err := s.journal.ListEdits(r.Context(), issueKey, limit)
	if err != nil {
		s.writeServiceError(w, r, storeFailure(err))
		return
	}
	if edits == nil {
		edits = []store.Edit{}
	}
	s.writeJSON(w, http.StatusOK, api.EditsResponse{IssueKey: issueKey, Edits: edits})
}
