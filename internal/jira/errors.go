package jira

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"epictree/internal/fields"
)

var proxyMarkers = []string{
	"proxy",
	"tunnel",
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"tls handshake",
	"i/o timeout",
}

// IsProxyError reports whether err looks like a transport, proxy or tunnel
// failure rather than a Jira response.
func IsProxyError(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return false
	}
	message := strings.ToLower(err.Error())
	for _, marker := range proxyMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

var fieldLabels = map[string]string{
	fields.StoryPoints: "Story Points",
	fields.Summary:     "Summary",
	fields.Assignee:    "Assignee",
	fields.Priority:    "Priority",
	fields.Labels:      "Labels",
}

// FieldLabel returns the user-facing label of a canonical field name.
func FieldLabel(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return field
}

// updateErrorMessage turns a failed write into the message shown next to the
// edited field.
func updateErrorMessage(field, trackerID string, err error) (int, string) {
	label := FieldLabel(field)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return 0, fmt.Sprintf("Failed to update %s: network error", label)
	}

	messages := jiraMessages(httpErr.Body, trackerID)
	for _, msg := range messages {
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "appropriate screen") {
			return httpErr.Status, fmt.Sprintf("%s cannot be edited: the field is not on this issue's edit screen. Ask a Jira administrator to add it.", label)
		}
	}
	for _, msg := range messages {
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "unknown") || strings.Contains(lower, "does not exist") || strings.Contains(lower, "not valid for") {
			return httpErr.Status, fmt.Sprintf("%s cannot be edited: the field is not available for this issue type.", label)
		}
	}
	if len(messages) > 0 {
		return httpErr.Status, fmt.Sprintf("Jira rejected the update: %s", messages[0])
	}
	return httpErr.Status, fmt.Sprintf("Failed to update %s (HTTP %d %s)", label, httpErr.Status, http.StatusText(httpErr.Status))
}

// jiraMessages extracts messages from an error body, the edited field's
// message first.
func jiraMessages(body []byte, trackerID string) []string {
	var parsed errorBody
	if len(body) == 0 || json.Unmarshal(body, &parsed) != nil {
		return nil
	}

	var out []string
	if msg := strings.TrimSpace(parsed.Errors[trackerID]); msg != "" {
		out = append(out, msg)
	}
	keys := make([]string, 0, len(parsed.Errors))
	for key := range parsed.Errors {
		if key != trackerID {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		if msg := strings.TrimSpace(parsed.Errors[key]); msg != "" {
			out = append(out, msg)
		}
	}
	for _, msg := range parsed.ErrorMessages {
		if msg = strings.TrimSpace(msg); msg != "" {
			out = append(out, msg)
		}
	}
	return out
}
