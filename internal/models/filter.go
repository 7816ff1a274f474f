package models

import "strings"

// UnassignedFilterValue selects nodes with no assignee in FilterState.Assignees.
const UnassignedFilterValue = "unassigned"

// Blocking filter values.
const (
	BlockingFilterBlocking = "blocking"
	BlockingFilterBlocked  = "blocked"
)

// FilterState selects which nodes remain visible. An empty slice places no
// constraint on its dimension.
type FilterState struct {
	Assignees      []string `json:"assignees" yaml:"assignees"`
	Statuses       []string `json:"statuses" yaml:"statuses"`
	Priorities     []string `json:"priorities" yaml:"priorities"`
	Labels         []string `json:"labels" yaml:"labels"`
	BlockingStatus []string `json:"blockingStatus" yaml:"blockingStatus"`
}

// IsEmpty reports whether no dimension is constrained.
func (f FilterState) IsEmpty() bool {
	return len(f.Assignees) == 0 &&
		len(f.Statuses) == 0 &&
		len(f.Priorities) == 0 &&
		len(f.Labels) == 0 &&
		len(f.BlockingStatus) == 0
}

// Normalized trims values and drops blanks in every dimension.
func (f FilterState) Normalized() FilterState {
	return FilterState{
		Assignees:      trimAll(f.Assignees),
		Statuses:       trimAll(f.Statuses),
		Priorities:     trimAll(f.Priorities),
		Labels:         trimAll(f.Labels),
		BlockingStatus: lowerAll(trimAll(f.BlockingStatus)),
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func lowerAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToLower(v)
	}
	return values
}
