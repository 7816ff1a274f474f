package models

// Placeholder values used when a record lacks detail.
const (
	UnknownName    = "Unknown"
	UnassignedName = "Unassigned"
)

// Status is a workflow status with its category color.
type Status struct {
	Name          string `json:"name" yaml:"name"`
	CategoryKey   string `json:"categoryKey,omitempty" yaml:"categoryKey,omitempty"`
	CategoryColor string `json:"categoryColor,omitempty" yaml:"categoryColor,omitempty"`
}

// Priority is a tracker priority with its icon reference.
type Priority struct {
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Name    string `json:"name" yaml:"name"`
	IconURL string `json:"iconUrl,omitempty" yaml:"iconUrl,omitempty"`
}

// Person is an assignee or reporter.
type Person struct {
	AccountID   string `json:"accountId,omitempty" yaml:"accountId,omitempty"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty" yaml:"avatarUrl,omitempty"`
}

// LinkedIssue is one side of a "Blocks" issue link.
type LinkedIssue struct {
	Key     string  `json:"key" yaml:"key"`
	Summary string  `json:"summary" yaml:"summary"`
	Status  *Status `json:"status,omitempty" yaml:"status,omitempty"`
}

// TreeNode is one epic, issue or subtask placed in the hierarchy.
//
// Trees are values: assembly, filtering and overlay application each
// return a new tree and never modify their input.
type TreeNode struct {
	Key            string        `json:"key,omitempty" yaml:"key,omitempty"`
	Name           string        `json:"name" yaml:"name"`
	Summary        string        `json:"summary,omitempty" yaml:"summary,omitempty"`
	Status         *Status       `json:"status,omitempty" yaml:"status,omitempty"`
	Priority       *Priority     `json:"priority,omitempty" yaml:"priority,omitempty"`
	Assignee       *Person       `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	Reporter       *Person       `json:"reporter,omitempty" yaml:"reporter,omitempty"`
	Labels         []string      `json:"labels" yaml:"labels"`
	StoryPoints    float64       `json:"storyPoints" yaml:"storyPoints"`
	IssueType      string        `json:"issueType,omitempty" yaml:"issueType,omitempty"`
	Created        string        `json:"created,omitempty" yaml:"created,omitempty"`
	Updated        string        `json:"updated,omitempty" yaml:"updated,omitempty"`
	DueDate        string        `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	ResolutionDate string        `json:"resolutionDate,omitempty" yaml:"resolutionDate,omitempty"`
	Components     []string      `json:"components" yaml:"components"`
	FixVersions    []string      `json:"fixVersions" yaml:"fixVersions"`
	BlockingIssues []LinkedIssue `json:"blockingIssues" yaml:"blockingIssues"`
	BlockedIssues  []LinkedIssue `json:"blockedIssues" yaml:"blockedIssues"`
	IsEpic         bool          `json:"isEpic" yaml:"isEpic"`
	Children       []TreeNode    `json:"children" yaml:"children"`
	IsContextOnly  bool          `json:"isContextOnly,omitempty" yaml:"isContextOnly,omitempty"`
}

// HasAssignee reports whether the node is assigned to a real account.
func (n TreeNode) HasAssignee() bool {
	return n.Assignee != nil && n.Assignee.AccountID != ""
}

// AssigneeName returns the display name, or "Unassigned".
func (n TreeNode) AssigneeName() string {
	if n.Assignee == nil || n.Assignee.DisplayName == "" {
		return UnassignedName
	}
	return n.Assignee.DisplayName
}

// StatusName returns the status name, or "Unknown".
func (n TreeNode) StatusName() string {
	if n.Status == nil || n.Status.Name == "" {
		return UnknownName
	}
	return n.Status.Name
}

// PriorityName returns the priority name, or "Unknown".
func (n TreeNode) PriorityName() string {
	if n.Priority == nil || n.Priority.Name == "" {
		return UnknownName
	}
	return n.Priority.Name
}

// IsBlocked reports whether other issues block this one.
func (n TreeNode) IsBlocked() bool {
	return len(n.BlockingIssues) > 0
}

// IsBlocking reports whether this issue blocks others.
func (n TreeNode) IsBlocking() bool {
	return len(n.BlockedIssues) > 0
}

// Clone returns a deep copy of the node and its subtree.
func (n TreeNode) Clone() TreeNode {
	out := n
	out.Status = cloneStatus(n.Status)
	if n.Priority != nil {
		p := *n.Priority
		out.Priority = &p
	}
	out.Assignee = clonePerson(n.Assignee)
	out.Reporter = clonePerson(n.Reporter)
	out.Labels = cloneStrings(n.Labels)
	out.Components = cloneStrings(n.Components)
	out.FixVersions = cloneStrings(n.FixVersions)
	out.BlockingIssues = cloneLinks(n.BlockingIssues)
	out.BlockedIssues = cloneLinks(n.BlockedIssues)
	out.Children = make([]TreeNode, 0, len(n.Children))
	for _, child := range n.Children {
		out.Children = append(out.Children, child.Clone())
	}
	return out
}

// WithoutChildren returns a copy of the node's own fields with no children.
func (n TreeNode) WithoutChildren() TreeNode {
	out := n
	out.Children = []TreeNode{}
	return out
}

func cloneStatus(s *Status) *Status {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func clonePerson(p *Person) *Person {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func cloneLinks(values []LinkedIssue) []LinkedIssue {
	if values == nil {
		return nil
	}
	out := make([]LinkedIssue, len(values))
	for i, v := range values {
		out[i] = v
		out[i].Status = cloneStatus(v.Status)
	}
	return out
}
