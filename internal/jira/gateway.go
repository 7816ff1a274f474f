package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"epictree/internal/fields"
)

const (
	labelPageSize = 1000
	maxLabelPages = 20
)

// IssueOption adds optional fields to an issue fetch.
type IssueOption func(*issueOptions)

type issueOptions struct {
	subtasks bool
	parent   bool
}

// WithSubtasks requests the subtask stubs of the issue.
func WithSubtasks() IssueOption {
	return func(o *issueOptions) { o.subtasks = true }
}

// WithParent requests the parent link of the issue.
func WithParent() IssueOption {
	return func(o *issueOptions) { o.parent = true }
}

// FallbackIssue is the placeholder returned when an issue cannot be fetched.
func FallbackIssue(id string) Issue {
	return Issue{
		ID:  id,
		Key: id,
		Fields: Fields{
			Summary:     fmt.Sprintf("Issue %s (Network Error)", id),
			Status:      &Status{Name: "Unknown"},
			Priority:    &Priority{Name: "Unknown"},
			Labels:      []string{},
			IssueLinks:  []IssueLink{},
			Components:  []NamedRef{},
			FixVersions: []NamedRef{},
			Subtasks:    []Issue{},
		},
	}
}

// FetchIssueByID fetches one issue with the full field set.
func (g *Gateway) FetchIssueByID(ctx context.Context, id string, opts ...IssueOption) Issue {
	id = strings.TrimSpace(id)
	if id == "" || !issueKeyPattern.MatchString(id) {
		g.log().Warn("invalid issue id", "id", id)
		return FallbackIssue(id)
	}

	var o issueOptions
	for _, opt := range opts {
		opt(&o)
	}
	var extra []string
	if o.subtasks {
		extra = append(extra, "subtasks")
	}
	if o.parent {
		extra = append(extra, "parent")
	}

	query := url.Values{}
	query.Set("fields", g.mapping.RequestFields(extra...))

	var issue Issue
	if err := g.do(ctx, http.MethodGet, "/issue/"+url.PathEscape(id), query, nil, &issue); err != nil {
		g.logFailure("fetchIssueById", err, "id", id)
		return FallbackIssue(id)
	}
	return issue
}

// FetchIssuesByEpicID returns the issues whose parent is the epic, including
// their subtask stubs.
func (g *Gateway) FetchIssuesByEpicID(ctx context.Context, epicID string) SearchResult {
	epicID = strings.TrimSpace(epicID)
	if epicID == "" || !issueKeyPattern.MatchString(epicID) {
		g.log().Warn("invalid epic id", "epic", epicID)
		return EmptySearchResult()
	}
	return g.search(ctx, "fetchIssuesByEpicId", EpicJQL(epicID), g.mapping.RequestFields("subtasks"), g.limits.EpicIssuesMaxResults)
}

// FetchSubtasksByParentKeys returns the full detail of every subtask under
// the given parents. No request is made for an empty key list.
func (g *Gateway) FetchSubtasksByParentKeys(ctx context.Context, parentKeys []string) SearchResult {
	jql := ParentKeysJQL(parentKeys)
	if jql == "" {
		return EmptySearchResult()
	}
	return g.search(ctx, "fetchSubtasksByParentKeys", jql, g.mapping.RequestFields("parent"), g.limits.SubtasksMaxResults)
}

// FetchSubtasksByKeys returns the full detail of the given subtasks. No
// request is made for an empty key list.
func (g *Gateway) FetchSubtasksByKeys(ctx context.Context, subtaskKeys []string) SearchResult {
	jql := KeysJQL(subtaskKeys)
	if jql == "" {
		return EmptySearchResult()
	}
	return g.search(ctx, "fetchSubtasksByKeys", jql, g.mapping.RequestFields("parent"), g.limits.SubtasksMaxResults)
}

func (g *Gateway) search(ctx context.Context, op, jql, fieldList string, maxResults int) SearchResult {
	query := url.Values{}
	query.Set("jql", jql)
	query.Set("fields", fieldList)
	query.Set("maxResults", strconv.Itoa(maxResults))

	var result SearchResult
	if err := g.do(ctx, http.MethodGet, "/search", query, nil, &result); err != nil {
		g.logFailure(op, err, "jql", jql)
		return EmptySearchResult()
	}
	if result.Issues == nil {
		result.Issues = []Issue{}
	}
	return result
}

// FetchPriorities lists the site's priorities.
func (g *Gateway) FetchPriorities(ctx context.Context) []Priority {
	var priorities []Priority
	if err := g.do(ctx, http.MethodGet, "/priority", nil, nil, &priorities); err != nil {
		g.logFailure("fetchPriorities", err)
		return []Priority{}
	}
	if priorities == nil {
		return []Priority{}
	}
	return priorities
}

// FetchAssignableUsers lists users assignable to the issue, falling back to
// the users assignable in the issue's project.
func (g *Gateway) FetchAssignableUsers(ctx context.Context, issueKey string) []User {
	issueKey = strings.TrimSpace(issueKey)
	if issueKey == "" {
		return []User{}
	}
	maxResults := strconv.Itoa(g.limits.AssignableUsersMaxResults)

	query := url.Values{}
	query.Set("issueKey", issueKey)
	query.Set("maxResults", maxResults)
	var users []User
	err := g.do(ctx, http.MethodGet, "/user/assignable/search", query, nil, &users)
	if err == nil {
		return nonNilUsers(users)
	}
	g.logFailure("fetchAssignableUsers", err, "issue", issueKey)

	project := ProjectKey(issueKey)
	query = url.Values{}
	query.Set("project", project)
	query.Set("maxResults", maxResults)
	users = nil
	if err := g.do(ctx, http.MethodGet, "/user/assignable/search", query, nil, &users); err != nil {
		g.logFailure("fetchAssignableUsers", err, "project", project)
		return []User{}
	}
	return nonNilUsers(users)
}

func nonNilUsers(users []User) []User {
	if users == nil {
		return []User{}
	}
	return users
}

// FetchEditableFields returns the canonical names of the editable fields
// present on the issue's edit screen. Summary is always included.
func (g *Gateway) FetchEditableFields(ctx context.Context, issueKey string) []string {
	issueKey = strings.TrimSpace(issueKey)
	if issueKey == "" || !issueKeyPattern.MatchString(issueKey) {
		return []string{fields.Summary}
	}

	var meta editMeta
	if err := g.do(ctx, http.MethodGet, "/issue/"+url.PathEscape(issueKey)+"/editmeta", nil, nil, &meta); err != nil {
		g.logFailure("fetchEditableFields", err, "issue", issueKey)
		return []string{fields.Summary}
	}

	out := []string{fields.Summary}
	for _, name := range fields.Editable {
		if name == fields.Summary {
			continue
		}
		if _, ok := meta.Fields[g.mapping.TrackerID(name)]; ok {
			out = append(out, name)
		}
	}
	return out
}

// FetchLabels lists every label on the site, following pagination.
func (g *Gateway) FetchLabels(ctx context.Context) []string {
	labels := []string{}
	startAt := 0
	for page := 0; page < maxLabelPages; page++ {
		query := url.Values{}
		query.Set("startAt", strconv.Itoa(startAt))
		query.Set("maxResults", strconv.Itoa(labelPageSize))

		var result labelPage
		if err := g.do(ctx, http.MethodGet, "/label", query, nil, &result); err != nil {
			g.logFailure("fetchLabels", err, "startAt", startAt)
			return labels
		}
		labels = append(labels, result.Values...)
		if result.IsLast || len(result.Values) == 0 {
			return labels
		}
		startAt += len(result.Values)
	}
	g.log().Warn("label listing truncated", "pages", maxLabelPages, "labels", len(labels))
	return labels
}

// UpdateIssueField writes one canonical field. The write is a single PUT and
// is never retried.
func (g *Gateway) UpdateIssueField(ctx context.Context, issueKey, fieldName string, value any) UpdateResult {
	issueKey = strings.TrimSpace(issueKey)
	if issueKey == "" || !issueKeyPattern.MatchString(issueKey) {
		return UpdateResult{Success: false, Error: "Invalid issue key"}
	}

	trackerID := g.mapping.TrackerID(fieldName)
	body := map[string]any{
		"fields": map[string]any{
			trackerID: fields.Payload(fieldName, value),
		},
	}

	if err := g.do(ctx, http.MethodPut, "/issue/"+url.PathEscape(issueKey), nil, body, nil); err != nil {
		g.logFailure("updateIssueField", err, "issue", issueKey, "field", trackerID)
		status, message := updateErrorMessage(fieldName, trackerID, err)
		return UpdateResult{Success: false, Status: status, Error: message}
	}
	return UpdateResult{Success: true, Status: http.StatusNoContent}
}
