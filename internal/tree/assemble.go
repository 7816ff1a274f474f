// Package tree assembles epic, issue and subtask records into one rooted
// hierarchy and provides read-only helpers over the result.
package tree

import (
	"fmt"
	"log/slog"
	"strings"

	"epictree/internal/fields"
	"epictree/internal/jira"
	"epictree/internal/models"
)

const (
	blocksLinkType = "blocks"
	rootFallback   = "Epic Tree"
	errorTreeName  = "Error loading data"
	errorTreeKey   = "error"
)

// Result is an assembled tree plus any warnings raised while building it.
type Result struct {
	Root     models.TreeNode `json:"root"`
	Warnings []string        `json:"warnings"`
}

// Assembler builds trees from gateway records.
type Assembler struct {
	mapping fields.Mapping
	logger  *slog.Logger
}

// NewAssembler creates an Assembler. The mapping decides which custom field
// holds story points.
func NewAssembler(mapping fields.Mapping, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{mapping: mapping, logger: logger}
}

// ErrorTree is the single-node tree returned when assembly fails.
func ErrorTree() models.TreeNode {
	return models.TreeNode{
		Key:      errorTreeKey,
		Name:     errorTreeName,
		IsEpic:   true,
		Children: []models.TreeNode{},
	}
}

// IsErrorTree reports whether root is the assembly failure tree.
func IsErrorTree(root models.TreeNode) bool {
	return root.Key == errorTreeKey && root.Name == errorTreeName && len(root.Children) == 0
}

// Assemble combines the epic (nil when unavailable), its issues and the
// detailed subtask records. Each subtask key is placed under the first
// issue that lists it; later occurrences are dropped with a warning.
// Assemble never panics.
func (a *Assembler) Assemble(epic *jira.Issue, issues, subtasks []jira.Issue) Result {
	return a.guard(func() Result {
		return a.assemble(epic, issues, subtasks)
	})
}

func (a *Assembler) guard(build func() Result) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("tree assembly failed", "panic", r)
			result = Result{Root: ErrorTree(), Warnings: []string{fmt.Sprintf("assembly failed: %v", r)}}
		}
	}()
	return build()
}

func (a *Assembler) assemble(epic *jira.Issue, issues, subtasks []jira.Issue) Result {
	details := make(map[string]jira.Issue, len(subtasks))
	for _, detail := range subtasks {
		if detail.Key == "" {
			continue
		}
		if _, ok := details[detail.Key]; !ok {
			details[detail.Key] = detail
		}
	}

	var root models.TreeNode
	if epic != nil {
		root = a.node(*epic)
	} else {
		root = models.TreeNode{Name: rootFallback, Children: []models.TreeNode{}}
	}
	root.IsEpic = true

	var warnings []string
	seen := make(map[string]string)
	root.Children = make([]models.TreeNode, 0, len(issues))
	for _, issue := range issues {
		child := a.node(issue)
		child.IsEpic = false
		for _, stub := range issue.Fields.Subtasks {
			key := strings.TrimSpace(stub.Key)
			if key == "" {
				warnings = append(warnings, fmt.Sprintf("subtask without key under %s skipped", issue.Key))
				continue
			}
			if first, ok := seen[key]; ok {
				msg := fmt.Sprintf("duplicate subtask %s under %s ignored; already placed under %s", key, issue.Key, first)
				a.logger.Warn("duplicate subtask", "subtask", key, "parent", issue.Key, "first_parent", first)
				warnings = append(warnings, msg)
				continue
			}
			seen[key] = issue.Key

			var leaf models.TreeNode
			if detail, ok := details[key]; ok {
				leaf = a.node(detail)
			} else {
				leaf = placeholder(stub)
			}
			leaf.IsEpic = false
			leaf.Children = []models.TreeNode{}
			child.Children = append(child.Children, leaf)
		}
		root.Children = append(root.Children, child)
	}

	return Result{Root: root, Warnings: warnings}
}

func (a *Assembler) node(issue jira.Issue) models.TreeNode {
	f := issue.Fields
	n := models.TreeNode{
		Key:            issue.Key,
		Name:           displayName(issue),
		Summary:        f.Summary,
		Status:         convertStatus(f.Status),
		Priority:       convertPriority(f.Priority),
		Assignee:       convertUser(f.Assignee),
		Reporter:       convertUser(f.Reporter),
		Labels:         copyStrings(f.Labels),
		StoryPoints:    a.storyPoints(f),
		Created:        f.Created,
		Updated:        f.Updated,
		DueDate:        f.DueDate,
		ResolutionDate: f.ResolutionDate,
		Components:     refNames(f.Components),
		FixVersions:    refNames(f.FixVersions),
		Children:       []models.TreeNode{},
	}
	if f.IssueType != nil {
		n.IssueType = f.IssueType.Name
	}
	n.BlockingIssues, n.BlockedIssues = blockLinks(f.IssueLinks)
	return n
}

// storyPoints reads the mapped custom field, then the literal storyPoints
// field, then defaults to zero.
func (a *Assembler) storyPoints(f jira.Fields) float64 {
	if v, ok := f.Number(a.mapping.StoryPointsField()); ok {
		return v
	}
	if f.StoryPoints != nil {
		return *f.StoryPoints
	}
	return 0
}

// placeholder builds a subtask leaf for a stub with no detail record.
func placeholder(stub jira.Issue) models.TreeNode {
	n := models.TreeNode{
		Key:            stub.Key,
		Name:           displayName(stub),
		Summary:        stub.Fields.Summary,
		Status:         &models.Status{Name: models.UnknownName},
		Priority:       &models.Priority{Name: models.UnknownName},
		Assignee:       &models.Person{DisplayName: models.UnassignedName},
		Reporter:       &models.Person{DisplayName: models.UnknownName},
		Labels:         []string{},
		Components:     []string{},
		FixVersions:    []string{},
		BlockingIssues: []models.LinkedIssue{},
		BlockedIssues:  []models.LinkedIssue{},
		Children:       []models.TreeNode{},
	}
	if stub.Fields.IssueType != nil {
		n.IssueType = stub.Fields.IssueType.Name
	}
	return n
}

func displayName(issue jira.Issue) string {
	if s := strings.TrimSpace(issue.Fields.Summary); s != "" {
		return s
	}
	return issue.Key
}

// blockLinks splits "Blocks" links by direction. An inward issue blocks this
// one; an outward issue is blocked by this one.
func blockLinks(links []jira.IssueLink) (blocking, blocked []models.LinkedIssue) {
	blocking = []models.LinkedIssue{}
	blocked = []models.LinkedIssue{}
	for _, link := range links {
		if !strings.EqualFold(strings.TrimSpace(link.Type.Name), blocksLinkType) {
			continue
		}
		if link.InwardIssue != nil {
			blocking = append(blocking, linked(*link.InwardIssue))
		}
		if link.OutwardIssue != nil {
			blocked = append(blocked, linked(*link.OutwardIssue))
		}
	}
	return blocking, blocked
}

func linked(issue jira.LinkedIssue) models.LinkedIssue {
	return models.LinkedIssue{
		Key:     issue.Key,
		Summary: issue.Fields.Summary,
		Status:  convertStatus(issue.Fields.Status),
	}
}

func convertStatus(s *jira.Status) *models.Status {
	if s == nil {
		return &models.Status{Name: models.UnknownName}
	}
	out := &models.Status{Name: s.Name}
	if out.Name == "" {
		out.Name = models.UnknownName
	}
	if s.StatusCategory != nil {
		out.CategoryKey = s.StatusCategory.Key
		out.CategoryColor = s.StatusCategory.ColorName
	}
	return out
}

func convertPriority(p *jira.Priority) *models.Priority {
	if p == nil {
		return &models.Priority{Name: models.UnknownName}
	}
	out := &models.Priority{ID: p.ID, Name: p.Name, IconURL: p.IconURL}
	if out.Name == "" {
		out.Name = models.UnknownName
	}
	return out
}

func convertUser(u *jira.User) *models.Person {
	if u == nil {
		return nil
	}
	return &models.Person{AccountID: u.AccountID, DisplayName: u.DisplayName, AvatarURL: u.Avatar()}
}

func refNames(refs []jira.NamedRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.Name)
	}
	return out
}

func copyStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}
