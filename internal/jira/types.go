// Package jira is the remote data gateway to the Jira REST API. Every
// operation degrades to a typed fallback value instead of returning an error.
package jira

import (
	"encoding/json"
	"strconv"
)

// StatusCategory is Jira's coarse status grouping.
type StatusCategory struct {
	ID        int    `json:"id,omitempty"`
	Key       string `json:"key,omitempty"`
	Name      string `json:"name,omitempty"`
	ColorName string `json:"colorName,omitempty"`
}

// Status is an issue workflow status.
type Status struct {
	ID             string          `json:"id,omitempty"`
	Name           string          `json:"name"`
	StatusCategory *StatusCategory `json:"statusCategory,omitempty"`
}

// Priority is an issue priority.
type Priority struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"iconUrl,omitempty"`
}

// User is a Jira account.
type User struct {
	AccountID    string            `json:"accountId"`
	DisplayName  string            `json:"displayName"`
	EmailAddress string            `json:"emailAddress,omitempty"`
	AvatarURLs   map[string]string `json:"avatarUrls,omitempty"`
	Active       bool              `json:"active"`
}

// Avatar returns the largest available avatar URL.
func (u *User) Avatar() string {
	if u == nil {
		return ""
	}
	for _, size := range []string{"48x48", "32x32", "24x24", "16x16"} {
		if url := u.AvatarURLs[size]; url != "" {
			return url
		}
	}
	return ""
}

// IssueType is the issue's type.
type IssueType struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Subtask bool   `json:"subtask"`
	IconURL string `json:"iconUrl,omitempty"`
}

// NamedRef is a component or version reference.
type NamedRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Resolution is an issue resolution.
type Resolution struct {
	Name string `json:"name"`
}

// LinkType describes an issue link relation.
type LinkType struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Inward  string `json:"inward,omitempty"`
	Outward string `json:"outward,omitempty"`
}

// LinkedIssueFields is the small field set embedded in issue links.
type LinkedIssueFields struct {
	Summary string  `json:"summary"`
	Status  *Status `json:"status,omitempty"`
}

// LinkedIssue is the far side of an issue link.
type LinkedIssue struct {
	ID     string            `json:"id,omitempty"`
	Key    string            `json:"key"`
	Fields LinkedIssueFields `json:"fields"`
}

// IssueLink is one entry of the issuelinks field.
type IssueLink struct {
	ID           string       `json:"id,omitempty"`
	Type         LinkType     `json:"type"`
	InwardIssue  *LinkedIssue `json:"inwardIssue,omitempty"`
	OutwardIssue *LinkedIssue `json:"outwardIssue,omitempty"`
}

// Fields holds the issue fields this system reads. Custom fields are kept in
// Custom keyed by their field id.
type Fields struct {
	Summary        string      `json:"summary"`
	Status         *Status     `json:"status,omitempty"`
	Priority       *Priority   `json:"priority,omitempty"`
	Assignee       *User       `json:"assignee,omitempty"`
	Reporter       *User       `json:"reporter,omitempty"`
	Labels         []string    `json:"labels"`
	IssueLinks     []IssueLink `json:"issuelinks"`
	IssueType      *IssueType  `json:"issuetype,omitempty"`
	Created        string      `json:"created,omitempty"`
	Updated        string      `json:"updated,omitempty"`
	DueDate        string      `json:"duedate,omitempty"`
	Resolution     *Resolution `json:"resolution,omitempty"`
	ResolutionDate string      `json:"resolutiondate,omitempty"`
	Components     []NamedRef  `json:"components"`
	FixVersions    []NamedRef  `json:"fixVersions"`
	Subtasks       []Issue     `json:"subtasks,omitempty"`
	Parent         *Issue      `json:"parent,omitempty"`
	StoryPoints    *float64    `json:"storyPoints,omitempty"`

	Custom map[string]json.RawMessage `json:"-"`
}

type fieldsAlias Fields

var knownFieldKeys = map[string]struct{}{
	"summary": {}, "status": {}, "priority": {}, "assignee": {}, "reporter": {},
	"labels": {}, "issuelinks": {}, "issuetype": {}, "created": {}, "updated": {},
	"duedate": {}, "resolution": {}, "resolutiondate": {}, "components": {},
	"fixVersions": {}, "subtasks": {}, "parent": {}, "storyPoints": {},
}

// UnmarshalJSON decodes known fields and keeps every other field raw.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var alias fieldsAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = Fields(alias)
	for key, value := range raw {
		if _, ok := knownFieldKeys[key]; ok {
			continue
		}
		if f.Custom == nil {
			f.Custom = make(map[string]json.RawMessage)
		}
		f.Custom[key] = value
	}
	return nil
}

// MarshalJSON encodes known fields and merges custom fields back in.
func (f Fields) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(fieldsAlias(f))
	if err != nil {
		return nil, err
	}
	if len(f.Custom) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range f.Custom {
		if _, ok := merged[key]; ok {
			continue
		}
		merged[key] = value
	}
	return json.Marshal(merged)
}

// Number reads a numeric custom field. Numeric strings are accepted.
func (f Fields) Number(fieldID string) (float64, bool) {
	raw, ok := f.Custom[fieldID]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

// SetCustom stores a custom field value.
func (f *Fields) SetCustom(fieldID string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if f.Custom == nil {
		f.Custom = make(map[string]json.RawMessage)
	}
	f.Custom[fieldID] = raw
	return nil
}

// Issue is an issue as returned by the issue and search endpoints.
type Issue struct {
	ID     string `json:"id,omitempty"`
	Key    string `json:"key"`
	Fields Fields `json:"fields"`
}

// SearchResult is the search endpoint's response page.
type SearchResult struct {
	Issues     []Issue `json:"issues"`
	Total      int     `json:"total"`
	MaxResults int     `json:"maxResults"`
	StartAt    int     `json:"startAt"`
}

// EmptySearchResult is the fallback for failed or skipped searches.
func EmptySearchResult() SearchResult {
	return SearchResult{Issues: []Issue{}, Total: 0, MaxResults: 0, StartAt: 0}
}

// UpdateResult is the outcome of a field write.
type UpdateResult struct {
	Success bool   `json:"success"`
	Status  int    `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Label list page from GET /label.
type labelPage struct {
	Values     []string `json:"values"`
	IsLast     bool     `json:"isLast"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Total      int      `json:"total"`
}

type editMeta struct {
	Fields map[string]json.RawMessage `json:"fields"`
}

// errorBody is Jira's standard error payload.
type errorBody struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}
