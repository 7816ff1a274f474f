package api

import (
	"encoding/json"

	"epictree/internal/layout"
	"epictree/internal/session"
	"epictree/internal/store"
	"epictree/internal/tree"
)

const (
	// SessionHeader carries the viewer session id.
	SessionHeader = "X-Session-ID"
	// SnapshotHeader carries the key of a saved render.
	SnapshotHeader = "X-Snapshot-Key"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// InfoResponse describes the running server.
type InfoResponse struct {
	DefaultEpic string   `json:"default_epic,omitempty"`
	JiraSite    string   `json:"jira_site,omitempty"`
	Operations  []string `json:"operations"`
	Sessions    []string `json:"sessions"`
	Journal     bool     `json:"journal"`
}

// TreeResponse is the session view of an epic.
type TreeResponse = session.View

// RefreshResponse reports a refresh outcome.
type RefreshResponse struct {
	Committed  bool   `json:"committed"`
	Generation uint64 `json:"generation"`
}

// LayoutResponse is a computed layout plus its minimap.
type LayoutResponse struct {
	Layout  layout.Layout   `json:"layout"`
	Minimap *layout.Minimap `json:"minimap,omitempty"`
	Scroll  *ScrollOffset   `json:"scroll,omitempty"`
}

// ScrollOffset is where the main view should scroll after a minimap click.
type ScrollOffset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SummaryResponse is the breakdown of an epic.
type SummaryResponse = tree.Breakdown

// EditRequest is the body of PUT /v1/issues/{key}/fields/{field}.
type EditRequest struct {
	Value       any    `json:"value"`
	DisplayName string `json:"displayName,omitempty"`
	IconURL     string `json:"iconUrl,omitempty"`
	EpicKey     string `json:"epicKey,omitempty"`
}

// EditResponse is the outcome of an edit.
type EditResponse = session.EditResult

// EditsResponse lists journaled edits, newest first.
type EditsResponse struct {
	IssueKey string       `json:"issue_key"`
	Edits    []store.Edit `json:"edits"`
}

// IssueChangedRequest publishes a change event.
type IssueChangedRequest struct {
	IssueKey string   `json:"issueKey,omitempty"`
	EpicKey  string   `json:"epicKey,omitempty"`
	Fields   []string `json:"fields,omitempty"`
	Source   string   `json:"source,omitempty"`
}

// IssueChangedResponse reports how many sessions were notified.
type IssueChangedResponse struct {
	Delivered int `json:"delivered"`
}

// InvokeResponse wraps a host operation result.
type InvokeResponse struct {
	Operation string          `json:"operation"`
	Result    json.RawMessage `json:"result"`
}
