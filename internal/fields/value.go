package fields

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValidationError reports an edit value rejected before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate normalizes an edit value for a canonical field.
//
// Story points become float64 (nil clears them), summary a trimmed non-empty
// string, assignee and priority an id string or nil, labels a []string.
// Assignee and priority also accept a picker option such as
// {"id": "2", "name": "High"}.
func Validate(field string, value any) (any, error) {
	switch field {
	case StoryPoints:
		return validateNumber(field, value)
	case Summary:
		s, ok := asString(value)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, invalid(field, "Summary cannot be empty")
		}
		return strings.TrimSpace(s), nil
	case Assignee, Priority:
		if value == nil {
			return nil, nil
		}
		if option, isOption := asOption(value); isOption {
			value = optionID(field, option)
		}
		s, ok := asString(value)
		if !ok {
			return nil, invalid(field, "%s must be an id string", field)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		return s, nil
	case Labels:
		return validateLabels(field, value)
	default:
		return value, nil
	}
}

// Payload shapes a validated value into the tracker's field representation.
func Payload(field string, value any) any {
	switch field {
	case Assignee:
		if id, ok := value.(string); ok && id != "" {
			return map[string]string{"accountId": id}
		}
		return nil
	case Priority:
		if id, ok := value.(string); ok && id != "" {
			return map[string]string{"id": id}
		}
		return nil
	case Labels:
		switch v := value.(type) {
		case []string:
			return v
		case nil:
			return []string{}
		default:
			labels, err := validateLabels(field, value)
			if err != nil {
				return []string{}
			}
			return labels
		}
	default:
		return value
	}
}

// OptionLabel returns the display name and icon of a picker option value.
// Both are empty for plain id values.
func OptionLabel(value any) (name, icon string) {
	option, ok := asOption(value)
	if !ok {
		return "", ""
	}
	return firstString(option, "displayName", "name"), firstString(option, "iconUrl", "avatarUrl")
}

func asOption(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// optionID picks the id of an option. A missing id yields a non-string so
// Validate rejects the value.
func optionID(field string, option map[string]any) any {
	keys := []string{"id", "accountId"}
	if field == Assignee {
		keys = []string{"accountId", "id"}
	}
	for _, key := range keys {
		if id, ok := asString(option[key]); ok {
			return id
		}
	}
	return option
}

func firstString(option map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := option[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func validateNumber(field string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, invalid(field, "Story points must be a number")
		}
		return f, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, invalid(field, "Story points must be a number")
		}
		return f, nil
	default:
		return nil, invalid(field, "Story points must be a number")
	}
}

func validateLabels(field string, value any) ([]string, error) {
	var raw []string
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, invalid(field, "Labels must be strings")
			}
			raw = append(raw, s)
		}
	case string:
		raw = strings.Split(v, ",")
	default:
		return nil, invalid(field, "Labels must be a list of strings")
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, label := range raw {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if strings.ContainsAny(label, " \t\n") {
			return nil, invalid(field, "Labels cannot contain spaces: %q", label)
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out, nil
}

func asString(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
