// Package fields maps canonical editable field names to tracker field ids
// and shapes edit values into the tracker's wire format.
package fields

import (
	"strings"
)

// Canonical field names.
const (
	StoryPoints = "storyPoints"
	Summary     = "summary"
	Assignee    = "assignee"
	Priority    = "priority"
	Labels      = "labels"
)

// DefaultStoryPointsField is the usual Jira Cloud story points custom field.
const DefaultStoryPointsField = "customfield_10016"

// Editable lists the canonical names that can be edited.
var Editable = []string{StoryPoints, Summary, Assignee, Priority, Labels}

// StandardFields is the field set requested for every issue.
var StandardFields = []string{
	"summary",
	"status",
	"priority",
	"assignee",
	"reporter",
	"labels",
	"issuelinks",
	"issuetype",
	"created",
	"updated",
	"duedate",
	"resolution",
	"resolutiondate",
	"components",
	"fixVersions",
}

// Mapping is a bidirectional canonical name <-> tracker field id table.
type Mapping struct {
	toTracker   map[string]string
	toCanonical map[string]string
}

// NewMapping builds a mapping with the given story points field id. The
// remaining editable fields map to themselves.
func NewMapping(storyPointsField string) Mapping {
	storyPointsField = strings.TrimSpace(storyPointsField)
	if storyPointsField == "" {
		storyPointsField = DefaultStoryPointsField
	}
	return NewMappingFrom(map[string]string{
		StoryPoints: storyPointsField,
		Summary:     Summary,
		Assignee:    Assignee,
		Priority:    Priority,
		Labels:      Labels,
	})
}

// NewMappingFrom builds a mapping from an explicit canonical -> tracker table.
func NewMappingFrom(table map[string]string) Mapping {
	m := Mapping{
		toTracker:   make(map[string]string, len(table)),
		toCanonical: make(map[string]string, len(table)),
	}
	for canonical, tracker := range table {
		m.toTracker[canonical] = tracker
		m.toCanonical[tracker] = canonical
	}
	return m
}

// TrackerID returns the tracker field id for a canonical name. Unmapped
// names are returned unchanged.
func (m Mapping) TrackerID(canonical string) string {
	if id, ok := m.toTracker[canonical]; ok {
		return id
	}
	return canonical
}

// Canonical returns the canonical name for a tracker field id. Unmapped
// ids are returned unchanged.
func (m Mapping) Canonical(trackerID string) string {
	if name, ok := m.toCanonical[trackerID]; ok {
		return name
	}
	return trackerID
}

// StoryPointsField is shorthand for TrackerID(StoryPoints).
func (m Mapping) StoryPointsField() string {
	return m.TrackerID(StoryPoints)
}

// Entries returns a copy of the canonical -> tracker table.
func (m Mapping) Entries() map[string]string {
	out := make(map[string]string, len(m.toTracker))
	for k, v := range m.toTracker {
		out[k] = v
	}
	return out
}

// RequestFields returns the comma-separated field list for issue requests:
// the standard set, the mapped story points id, then extra fields.
func (m Mapping) RequestFields(extra ...string) string {
	out := make([]string, 0, len(StandardFields)+1+len(extra))
	out = append(out, StandardFields...)
	out = append(out, m.StoryPointsField())
	out = append(out, extra...)
	return strings.Join(out, ",")
}

// IsEditable reports whether name is a canonical editable field.
func IsEditable(name string) bool {
	for _, f := range Editable {
		if f == name {
			return true
		}
	}
	return false
}
