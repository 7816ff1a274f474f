// Package filter prunes an assembled tree to the nodes selected by a
// FilterState while keeping the ancestors needed to reach them.
package filter

import (
	"strings"

	"epictree/internal/models"
)

// Apply returns the filtered tree. The root is always kept. A non-root node
// survives when it matches or when any descendant survives; nodes kept only
// for a descendant are marked context-only. An empty FilterState returns
// root unchanged.
func Apply(root models.TreeNode, filters models.FilterState) models.TreeNode {
	filters = filters.Normalized()
	if filters.IsEmpty() {
		return root
	}
	m := newMatcher(filters)

	out := root.WithoutChildren()
	out.IsContextOnly = false
	out.Children = prune(root.Children, m)
	return out
}

// Matches reports whether node satisfies every non-empty dimension.
func Matches(node models.TreeNode, filters models.FilterState) bool {
	return newMatcher(filters.Normalized()).matches(node)
}

func prune(children []models.TreeNode, m matcher) []models.TreeNode {
	kept := make([]models.TreeNode, 0, len(children))
	for _, child := range children {
		if node, ok := pruneNode(child, m); ok {
			kept = append(kept, node)
		}
	}
	return kept
}

func pruneNode(node models.TreeNode, m matcher) (models.TreeNode, bool) {
	children := prune(node.Children, m)
	self := m.matches(node)
	if !self && len(children) == 0 {
		return models.TreeNode{}, false
	}
	out := node.WithoutChildren()
	out.Children = children
	out.IsContextOnly = !self
	return out, true
}

type matcher struct {
	assignees       map[string]struct{}
	allowUnassigned bool
	statuses        map[string]struct{}
	priorities      map[string]struct{}
	labels          map[string]struct{}
	blocking        bool
	blocked         bool
	blockingSet     bool
}

func newMatcher(f models.FilterState) matcher {
	m := matcher{
		assignees:  make(map[string]struct{}, len(f.Assignees)),
		statuses:   toSet(f.Statuses),
		priorities: toSet(f.Priorities),
		labels:     toSet(f.Labels),
	}
	for _, a := range f.Assignees {
		if strings.EqualFold(a, models.UnassignedFilterValue) {
			m.allowUnassigned = true
			continue
		}
		m.assignees[a] = struct{}{}
	}
	for _, b := range f.BlockingStatus {
		m.blockingSet = true
		switch b {
		case models.BlockingFilterBlocking:
			m.blocking = true
		case models.BlockingFilterBlocked:
			m.blocked = true
		}
	}
	return m
}

func (m matcher) matches(node models.TreeNode) bool {
	if (len(m.assignees) > 0 || m.allowUnassigned) && !m.matchAssignee(node) {
		return false
	}
	if len(m.statuses) > 0 && !contains(m.statuses, node.StatusName()) {
		return false
	}
	if len(m.priorities) > 0 && !m.matchPriority(node) {
		return false
	}
	if len(m.labels) > 0 && !m.matchLabels(node) {
		return false
	}
	if m.blockingSet && !m.matchBlocking(node) {
		return false
	}
	return true
}

func (m matcher) matchAssignee(node models.TreeNode) bool {
	if !node.HasAssignee() {
		return m.allowUnassigned
	}
	return contains(m.assignees, node.Assignee.AccountID)
}

func (m matcher) matchPriority(node models.TreeNode) bool {
	if node.Priority == nil {
		return contains(m.priorities, models.UnknownName)
	}
	return contains(m.priorities, node.Priority.Name) ||
		(node.Priority.ID != "" && contains(m.priorities, node.Priority.ID))
}

func (m matcher) matchLabels(node models.TreeNode) bool {
	for _, label := range node.Labels {
		if contains(m.labels, label) {
			return true
		}
	}
	return false
}

func (m matcher) matchBlocking(node models.TreeNode) bool {
	return (m.blocking && node.IsBlocking()) || (m.blocked && node.IsBlocked())
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func contains(set map[string]struct{}, v string) bool {
	_, ok := set[v]
	return ok
}
