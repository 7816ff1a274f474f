// Package service exposes the named host operations as plain methods and
// loads assembled epic trees.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"

	"epictree/internal/fields"
	"epictree/internal/jira"
	"epictree/internal/tree"
)

const (
	parentKeyBatch   = 25
	maxParallelFetch = 4
)

// Gateway is the remote data gateway used by the service.
type Gateway interface {
	FetchIssueByID(ctx context.Context, id string, opts ...jira.IssueOption) jira.Issue
	FetchIssuesByEpicID(ctx context.Context, epicID string) jira.SearchResult
	FetchSubtasksByParentKeys(ctx context.Context, parentKeys []string) jira.SearchResult
	FetchSubtasksByKeys(ctx context.Context, subtaskKeys []string) jira.SearchResult
	FetchPriorities(ctx context.Context) []jira.Priority
	FetchAssignableUsers(ctx context.Context, issueKey string) []jira.User
	FetchEditableFields(ctx context.Context, issueKey string) []string
	FetchLabels(ctx context.Context) []string
	UpdateIssueField(ctx context.Context, issueKey, fieldName string, value any) jira.UpdateResult
}

// Context describes where the plugin is running.
type Context struct {
	IssueKey      string            `json:"issueKey,omitempty"`
	SiteURL       string            `json:"siteUrl,omitempty"`
	Fields        map[string]string `json:"fields"`
	EpicLinkField string            `json:"epicLinkField,omitempty"`
	SprintField   string            `json:"sprintField,omitempty"`
}

// Config configures a Service.
type Config struct {
	Gateway   Gateway
	Mapping   fields.Mapping
	Context   Context
	Logger    *slog.Logger
	Assembler *tree.Assembler
}

// Service implements one method per named operation.
type Service struct {
	gw        Gateway
	mapping   fields.Mapping
	context   Context
	assembler *tree.Assembler
	logger    *slog.Logger
}

// New creates a Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	assembler := cfg.Assembler
	if assembler == nil {
		assembler = tree.NewAssembler(cfg.Mapping, logger)
	}
	svcContext := cfg.Context
	if svcContext.Fields == nil {
		svcContext.Fields = cfg.Mapping.Entries()
	}
	return &Service{
		gw:        cfg.Gateway,
		mapping:   cfg.Mapping,
		context:   svcContext,
		assembler: assembler,
		logger:    logger,
	}
}

// FetchIssueByIDRequest is the fetchIssueById payload.
type FetchIssueByIDRequest struct {
	IssueID         string `json:"issueId"`
	IncludeSubtasks bool   `json:"includeSubtasks,omitempty"`
	IncludeParent   bool   `json:"includeParent,omitempty"`
}

// FetchIssueByID fetches one issue.
func (s *Service) FetchIssueByID(ctx context.Context, req FetchIssueByIDRequest) jira.Issue {
	var opts []jira.IssueOption
	if req.IncludeSubtasks {
		opts = append(opts, jira.WithSubtasks())
	}
	if req.IncludeParent {
		opts = append(opts, jira.WithParent())
	}
	return s.gw.FetchIssueByID(ctx, req.IssueID, opts...)
}

// FetchIssuesByEpicIDRequest is the fetchIssuesByEpicId payload.
type FetchIssuesByEpicIDRequest struct {
	EpicID string `json:"epicId"`
}

// FetchIssuesByEpicID lists the issues of an epic.
func (s *Service) FetchIssuesByEpicID(ctx context.Context, req FetchIssuesByEpicIDRequest) jira.SearchResult {
	return s.gw.FetchIssuesByEpicID(ctx, req.EpicID)
}

// FetchSubtasksByParentKeysRequest is the fetchSubtasksByParentKeys payload.
type FetchSubtasksByParentKeysRequest struct {
	ParentKeys []string `json:"parentKeys"`
}

// FetchSubtasksByParentKeys returns subtask detail for the given parents.
func (s *Service) FetchSubtasksByParentKeys(ctx context.Context, req FetchSubtasksByParentKeysRequest) jira.SearchResult {
	return s.gw.FetchSubtasksByParentKeys(ctx, req.ParentKeys)
}

// FetchSubtasksByKeysRequest is the fetchSubtasksByKeys payload.
type FetchSubtasksByKeysRequest struct {
	SubtaskKeys []string `json:"subtaskKeys"`
}

// FetchSubtasksByKeys returns subtask detail for the given keys.
func (s *Service) FetchSubtasksByKeys(ctx context.Context, req FetchSubtasksByKeysRequest) jira.SearchResult {
	return s.gw.FetchSubtasksByKeys(ctx, req.SubtaskKeys)
}

// FetchPriorities lists priorities.
func (s *Service) FetchPriorities(ctx context.Context) []jira.Priority {
	return s.gw.FetchPriorities(ctx)
}

// FetchLabels lists labels.
func (s *Service) FetchLabels(ctx context.Context) []string {
	return s.gw.FetchLabels(ctx)
}

// FetchAssignableUsersRequest is the fetchAssignableUsers payload. A
// non-empty Query keeps only fuzzy matches, best first.
type FetchAssignableUsersRequest struct {
	IssueKey string `json:"issueKey"`
	Query    string `json:"query,omitempty"`
}

// FetchAssignableUsers lists users that can be assigned to the issue.
func (s *Service) FetchAssignableUsers(ctx context.Context, req FetchAssignableUsersRequest) []jira.User {
	users := s.gw.FetchAssignableUsers(ctx, req.IssueKey)
	return RankUsers(users, req.Query)
}

// RankUsers filters users by a fuzzy match on display name and email.
func RankUsers(users []jira.User, query string) []jira.User {
	query = strings.TrimSpace(query)
	if query == "" {
		return users
	}
	searchStrings := make([]string, len(users))
	for i, u := range users {
		searchStrings[i] = u.DisplayName + " " + u.EmailAddress
	}
	matches := fuzzy.Find(query, searchStrings)
	out := make([]jira.User, 0, len(matches))
	for _, match := range matches {
		out = append(out, users[match.Index])
	}
	return out
}

// FetchEditableFieldsRequest is the fetchEditableFields payload.
type FetchEditableFieldsRequest struct {
	IssueKey string `json:"issueKey"`
}

// FetchEditableFields lists the canonical editable fields of the issue.
func (s *Service) FetchEditableFields(ctx context.Context, req FetchEditableFieldsRequest) []string {
	return s.gw.FetchEditableFields(ctx, req.IssueKey)
}

// UpdateIssueFieldRequest is the updateIssueField payload.
type UpdateIssueFieldRequest struct {
	IssueKey   string `json:"issueKey"`
	FieldName  string `json:"fieldName"`
	FieldValue any    `json:"fieldValue"`
}

// UpdateIssueField validates and writes one field. Invalid values are
// rejected without a network call.
func (s *Service) UpdateIssueField(ctx context.Context, req UpdateIssueFieldRequest) jira.UpdateResult {
	value, err := fields.Validate(req.FieldName, req.FieldValue)
	if err != nil {
		return jira.UpdateResult{Success: false, Error: err.Error()}
	}
	return s.gw.UpdateIssueField(ctx, req.IssueKey, req.FieldName, value)
}

// GetCurrentContext returns the configured context.
func (s *Service) GetCurrentContext(context.Context) Context {
	out := s.context
	out.Fields = make(map[string]string, len(s.context.Fields))
	for k, v := range s.context.Fields {
		out.Fields[k] = v
	}
	return out
}

// LoadTree fetches the epic and its issues concurrently, then the subtask
// detail of every issue that has subtasks, and assembles the tree. Failed
// fetches contribute their fallback values.
func (s *Service) LoadTree(ctx context.Context, epicID string) tree.Result {
	var (
		epic   jira.Issue
		issues jira.SearchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		epic = s.gw.FetchIssueByID(gctx, epicID, jira.WithSubtasks())
		return nil
	})
	g.Go(func() error {
		issues = s.gw.FetchIssuesByEpicID(gctx, epicID)
		return nil
	})
	_ = g.Wait()

	subtasks := s.fetchSubtaskDetail(ctx, issues.Issues)
	s.logger.Debug("tree data loaded", "epic", epicID, "issues", len(issues.Issues), "subtasks", len(subtasks))
	return s.assembler.Assemble(&epic, issues.Issues, subtasks)
}

func (s *Service) fetchSubtaskDetail(ctx context.Context, issues []jira.Issue) []jira.Issue {
	var parents []string
	for _, issue := range issues {
		if len(issue.Fields.Subtasks) > 0 && issue.Key != "" {
			parents = append(parents, issue.Key)
		}
	}
	if len(parents) == 0 {
		return nil
	}

	batches := chunk(parents, parentKeyBatch)
	results := make([][]jira.Issue, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetch)
	for i, batch := range batches {
		g.Go(func() error {
			results[i] = s.gw.FetchSubtasksByParentKeys(gctx, batch).Issues
			return nil
		})
	}
	_ = g.Wait()

	var out []jira.Issue
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func chunk(keys []string, size int) [][]string {
	var out [][]string
	for len(keys) > size {
		out = append(out, keys[:size])
		keys = keys[size:]
	}
	if len(keys) > 0 {
		out = append(out, keys)
	}
	return out
}
