package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Operation names accepted by Invoke.
const (
	OpFetchLabels               = "fetchLabels"
	OpFetchIssueByID            = "fetchIssueById"
	OpFetchIssuesByEpicID       = "fetchIssuesByEpicId"
	OpFetchSubtasksByParentKeys = "fetchSubtasksByParentKeys"
	OpFetchSubtasksByKeys       = "fetchSubtasksByKeys"
	OpFetchPriorities           = "fetchPriorities"
	OpFetchAssignableUsers      = "fetchAssignableUsers"
	OpFetchEditableFields       = "fetchEditableFields"
	OpUpdateIssueField          = "updateIssueField"
	OpGetCurrentContext         = "getCurrentContext"
)

var (
	// ErrUnknownOperation is returned for names outside the operation table.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrInvalidPayload is returned when a payload cannot be decoded.
	ErrInvalidPayload = errors.New("invalid payload")
)

type handler func(ctx context.Context, s *Service, payload json.RawMessage) (any, error)

var operations = map[string]handler{
	OpFetchLabels: func(ctx context.Context, s *Service, _ json.RawMessage) (any, error) {
		return s.FetchLabels(ctx), nil
	},
	OpFetchIssueByID: func(ctx context.Context, s *Service, payload json.RawMessage) (any, error) {
		var req FetchIssueByIDRequest
		if err := decodePayload(payload, &req); err != nil {
			return nil, err
		}
		if req.IssueID == "" {
			return nil, fmt.Errorf("%w: issueId is required", ErrInvalidPayload)
		}
		return s.FetchIssueByID(ctx, req), nil
	},
	OpFetchIssuesByEpicID: func(ctx context.Context, s *Service, payload json.RawMessage) (any, error) {
		var req FetchIssuesByEpicIDRequest
		if err := decodePayload(payload, &req); err != nil {
			return nil, err
		}
		if req.EpicID == "" {
			return nil, fmt.Errorf("%w: epicId is required", ErrInvalidPayload)
		}
		return s.FetchIssuesByEpicID(ctx, req), nil
	},
	OpFetchSubtasksByParentKeys: func(ctx context.Context, s *Service, payload json.RawMessage) (any, error) {
		var req FetchSubtasksByParentKeysRequest
		if err := decodePayload(payload, &req); err != nil {
			return nil, err
		}
		return s.FetchSubtasksByParentKeys(ctx, req), nil
	},
	OpFetchSubtasksByKeys: func(ctx context.Context, s *Service, payload json.RawMessage) (any, error) {
		var req FetchSubtasksByKeysRequest
		if err := decodePayload(payload, &req); err != nil {
			return nil, err
		}
		return s.FetchSubtasksByKeys(ctx, req), nil
	},
	OpFetchPriorities: func(ctx context.Context, s *Service, _ json.RawMessage) (any, error) {
		return s.FetchPriorities(ctx), nil
	},
	OpFetchAssignableUsers: func(ctx context.Context, s *Service, payload json.RawMessage) (any, error) {
		var req FetchAssignableUsersRequest
		if err := decodePayload(payload, &req); err != nil {
			return nil, err
		}
		return s.FetchAssignableUsers(ctx, req), nil
	},
	OpFetchEditableFields: func(ctx context.Context, s *Service, payload json.RawMessage) (any, error) {
		var req FetchEditableFieldsRequest
		if err := decodePayload(payload, &req); err != nil {
			return nil, err
		}
		return s.FetchEditableFields(ctx, req), nil
	},
	OpUpdateIssueField: func(ctx context.Context, s *Service, payload json.RawMessage) (any, error) {
		var req UpdateIssueFieldRequest
		if err := decodePayload(payload, &req); err != nil {
			return nil, err
		}
		if req.IssueKey == "" || req.FieldName == "" {
			return nil, fmt.Errorf("%w: issueKey and fieldName are required", ErrInvalidPayload)
		}
		return s.UpdateIssueField(ctx, req), nil
	},
	OpGetCurrentContext: func(ctx context.Context, s *Service, _ json.RawMessage) (any, error) {
		return s.GetCurrentContext(ctx), nil
	},
}

// Operations lists the names Invoke accepts.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs a named operation with a JSON payload.
func (s *Service) Invoke(ctx context.Context, operation string, payload json.RawMessage) (any, error) {
	h, ok := operations[operation]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}
	return h(ctx, s, payload)
}

func decodePayload(payload json.RawMessage, out any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
