package jira

import (
	"regexp"
	"strings"
)

var issueKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// validKeys trims keys and drops anything that is not a plain issue key or
// id, so keys can be embedded in JQL without quoting issues.
func validKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" || !issueKeyPattern.MatchString(key) {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// EpicJQL selects the issues whose parent is the epic.
func EpicJQL(epicID string) string {
	return "parent=" + strings.TrimSpace(epicID)
}

// ParentKeysJQL selects the children of any of the given parents.
func ParentKeysJQL(parentKeys []string) string {
	keys := validKeys(parentKeys)
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, "parent="+key)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// KeysJQL selects the given issues by key.
func KeysJQL(issueKeys []string) string {
	keys := validKeys(issueKeys)
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, `key="`+key+`"`)
	}
	return strings.Join(parts, " OR ")
}

// ProjectKey returns the project prefix of an issue key ("ABC" for "ABC-12").
func ProjectKey(issueKey string) string {
	issueKey = strings.TrimSpace(issueKey)
	if idx := strings.LastIndex(issueKey, "-"); idx > 0 {
		return issueKey[:idx]
	}
	return issueKey
}
