package tree

import (
	"math"
	"sort"

	"epictree/internal/models"
)

// Breakdown is the data contract of the epic breakdown view.
type Breakdown struct {
	EpicKey           string         `json:"epicKey,omitempty" yaml:"epicKey,omitempty"`
	EpicName          string         `json:"epicName" yaml:"epicName"`
	Issues            int            `json:"issues" yaml:"issues"`
	Subtasks          int            `json:"subtasks" yaml:"subtasks"`
	ByStatus          map[string]int `json:"byStatus" yaml:"byStatus"`
	ByCategory        map[string]int `json:"byCategory" yaml:"byCategory"`
	ByIssueType       map[string]int `json:"byIssueType" yaml:"byIssueType"`
	StoryPoints       PointTotals    `json:"storyPoints" yaml:"storyPoints"`
	Assignees         []AssigneeLoad `json:"assignees" yaml:"assignees"`
	Blocked           int            `json:"blocked" yaml:"blocked"`
	Blocking          int            `json:"blocking" yaml:"blocking"`
	Unestimated       []string       `json:"unestimated" yaml:"unestimated"`
	CompletionPercent float64        `json:"completionPercent" yaml:"completionPercent"`
}

// PointTotals sums story points by completion.
type PointTotals struct {
	Total     float64 `json:"total" yaml:"total"`
	Done      float64 `json:"done" yaml:"done"`
	Remaining float64 `json:"remaining" yaml:"remaining"`
}

// AssigneeLoad is the work assigned to one person.
type AssigneeLoad struct {
	AccountID   string  `json:"accountId,omitempty" yaml:"accountId,omitempty"`
	DisplayName string  `json:"displayName" yaml:"displayName"`
	Items       int     `json:"items" yaml:"items"`
	StoryPoints float64 `json:"storyPoints" yaml:"storyPoints"`
	Done        int     `json:"done" yaml:"done"`
}

// Summarize computes the breakdown of every node below the root.
func Summarize(root models.TreeNode) Breakdown {
	b := Breakdown{
		EpicKey:     root.Key,
		EpicName:    root.Name,
		ByStatus:    map[string]int{},
		ByCategory:  map[string]int{},
		ByIssueType: map[string]int{},
		Assignees:   []AssigneeLoad{},
		Unestimated: []string{},
	}

	loads := make(map[string]*AssigneeLoad)
	doneCount := 0
	Walk(root, func(node models.TreeNode, depth int) bool {
		if depth == 0 {
			return true
		}
		if depth == 1 {
			b.Issues++
		} else {
			b.Subtasks++
		}
		done := node.IsDone()
		if done {
			doneCount++
		}

		b.ByStatus[node.StatusName()]++
		b.ByCategory[string(node.Category())]++
		if node.IssueType != "" {
			b.ByIssueType[node.IssueType]++
		}

		b.StoryPoints.Total += node.StoryPoints
		if done {
			b.StoryPoints.Done += node.StoryPoints
		}
		if node.StoryPoints == 0 && node.Key != "" {
			b.Unestimated = append(b.Unestimated, node.Key)
		}
		if node.IsBlocked() {
			b.Blocked++
		}
		if node.IsBlocking() {
			b.Blocking++
		}

		id := ""
		if node.HasAssignee() {
			id = node.Assignee.AccountID
		}
		load, ok := loads[id]
		if !ok {
			load = &AssigneeLoad{AccountID: id, DisplayName: node.AssigneeName()}
			if id == "" {
				load.DisplayName = models.UnassignedName
			}
			loads[id] = load
		}
		load.Items++
		load.StoryPoints += node.StoryPoints
		if done {
			load.Done++
		}
		return true
	})

	b.StoryPoints.Remaining = b.StoryPoints.Total - b.StoryPoints.Done
	total := b.Issues + b.Subtasks
	switch {
	case b.StoryPoints.Total > 0:
		b.CompletionPercent = percent(b.StoryPoints.Done, b.StoryPoints.Total)
	case total > 0:
		b.CompletionPercent = percent(float64(doneCount), float64(total))
	}

	for _, load := range loads {
		b.Assignees = append(b.Assignees, *load)
	}
	sort.Slice(b.Assignees, func(i, j int) bool {
		a, c := b.Assignees[i], b.Assignees[j]
		if a.StoryPoints != c.StoryPoints {
			return a.StoryPoints > c.StoryPoints
		}
		if a.Items != c.Items {
			return a.Items > c.Items
		}
		return a.DisplayName < c.DisplayName
	})
	return b
}

func percent(part, whole float64) float64 {
	return math.Round(part/whole*1000) / 10
}
