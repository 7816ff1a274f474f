package filter

import (
	"epictree/internal/models"
	"epictree/internal/tree"
)

// Option is one selectable filter value.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Options lists the values available per filter dimension in a tree.
type Options struct {
	Assignees      []Option `json:"assignees" yaml:"assignees"`
	Statuses       []Option `json:"statuses" yaml:"statuses"`
	Priorities     []Option `json:"priorities" yaml:"priorities"`
	Labels         []Option `json:"labels" yaml:"labels"`
	BlockingStatus []Option `json:"blockingStatus" yaml:"blockingStatus"`
}

// OptionsFor collects the distinct filter values present below the root.
func OptionsFor(root models.TreeNode) Options {
	opts := Options{
		Assignees:      []Option{},
		Statuses:       []Option{},
		Priorities:     []Option{},
		Labels:         []Option{},
		BlockingStatus: []Option{},
	}

	unassigned, blocking, blocked := false, false, false
	tree.Walk(root, func(node models.TreeNode, depth int) bool {
		if depth == 0 {
			return true
		}
		if !node.HasAssignee() {
			unassigned = true
		}
		blocking = blocking || node.IsBlocking()
		blocked = blocked || node.IsBlocked()
		return true
	})

	if unassigned {
		opts.Assignees = append(opts.Assignees, Option{Value: models.UnassignedFilterValue, Label: models.UnassignedName})
	}
	for _, p := range tree.CollectAssignees(root) {
		opts.Assignees = append(opts.Assignees, Option{Value: p.AccountID, Label: p.DisplayName})
	}
	for _, s := range tree.CollectStatuses(root) {
		opts.Statuses = append(opts.Statuses, Option{Value: s, Label: s})
	}
	for _, p := range tree.CollectPriorities(root) {
		value := p.ID
		if value == "" {
			value = p.Name
		}
		opts.Priorities = append(opts.Priorities, Option{Value: value, Label: p.Name})
	}
	for _, l := range tree.CollectLabels(root) {
		opts.Labels = append(opts.Labels, Option{Value: l, Label: l})
	}
	if blocking {
		opts.BlockingStatus = append(opts.BlockingStatus, Option{Value: models.BlockingFilterBlocking, Label: "Blocking"})
	}
	if blocked {
		opts.BlockingStatus = append(opts.BlockingStatus, Option{Value: models.BlockingFilterBlocked, Label: "Blocked"})
	}
	return opts
}
