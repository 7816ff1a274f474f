package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleCloseSession)

	// Host operations.
	mux.HandleFunc("POST /v1/invoke/{operation}", s.handleInvoke)

	// Epic views.
	mux.HandleFunc("GET /v1/epics/{id}/tree", s.handleTree)
	mux.HandleFunc("POST /v1/epics/{id}/refresh", s.handleRefresh)
	mux.HandleFunc("GET /v1/epics/{id}/summary", s.handleSummary)
	mux.HandleFunc("GET /v1/epics/{id}/layout", s.handleLayout)
	mux.HandleFunc("GET /v1/epics/{id}/render.svg", s.handleRender)
	mux.HandleFunc("GET /v1/epics/{id}/render.png", s.handleRender)

	// Saved renders.
	mux.HandleFunc("GET /v1/snapshots/{key...}", s.handleGetSnapshot)
	mux.HandleFunc("DELETE /v1/snapshots/{key...}", s.handleDeleteSnapshot)

	// Field edits.
	mux.HandleFunc("PUT /v1/issues/{key}/fields/{field}", s.handleUpdateField)
	mux.HandleFunc("GET /v1/issues/{key}/edits", s.handleListEdits)

	// Change notifications.
	mux.HandleFunc("POST /v1/events/issue-changed", s.handleIssueChanged)

	return mux
}
