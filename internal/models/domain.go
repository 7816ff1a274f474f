package models

import (
	"fmt"
	"strings"
)

// StatusCategory is the tracker's coarse status grouping.
type StatusCategory string

const (
	CategoryToDo       StatusCategory = "new"
	CategoryInProgress StatusCategory = "indeterminate"
	CategoryDone       StatusCategory = "done"
	CategoryUnknown    StatusCategory = "undefined"
)

var validCategories = map[StatusCategory]struct{}{
	CategoryToDo:       {},
	CategoryInProgress: {},
	CategoryDone:       {},
	CategoryUnknown:    {},
}

// ParseStatusCategory normalizes a category key.
func ParseStatusCategory(raw string) (StatusCategory, error) {
	value := StatusCategory(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return CategoryUnknown, nil
	}
	if _, ok := validCategories[value]; !ok {
		return "", fmt.Errorf("invalid status category: %s", value)
	}
	return value, nil
}

// Category returns the node's status category, CategoryUnknown if unset or invalid.
func (n TreeNode) Category() StatusCategory {
	if n.Status == nil {
		return CategoryUnknown
	}
	c, err := ParseStatusCategory(n.Status.CategoryKey)
	if err != nil {
		return CategoryUnknown
	}
	return c
}

// IsDone reports whether the node's status is in the done category.
func (n TreeNode) IsDone() bool {
	return n.Category() == CategoryDone
}

// ParseBlockingFilter validates one blockingStatus filter value.
func ParseBlockingFilter(raw string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case BlockingFilterBlocking, BlockingFilterBlocked:
		return value, nil
	case "":
		return "", fmt.Errorf("blocking status is required")
	default:
		return "", fmt.Errorf("invalid blocking status: %s", value)
	}
}
