package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	defaultEditLimit = 50
	maxEditLimit     = 500
)

// Edit is one submitted field edit and its outcome.
type Edit struct {
	ID        int64           `json:"id"`
	IssueKey  string          `json:"issue_key"`
	EpicKey   string          `json:"epic_key,omitempty"`
	Field     string          `json:"field"`
	Value     json.RawMessage `json:"value,omitempty"`
	Success   bool            `json:"success"`
	Status    int             `json:"status,omitempty"`
	Error     string          `json:"error,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// EditInput describes an edit to record.
type EditInput struct {
	IssueKey  string
	EpicKey   string
	Field     string
	Value     any
	Success   bool
	Status    int
	Error     string
	SessionID string
	At        time.Time
}

// Journal records and lists edits.
type Journal interface {
	RecordEdit(ctx context.Context, input EditInput) (*Edit, error)
	ListEdits(ctx context.Context, issueKey string, limit int) ([]Edit, error)
}

var _ Journal = (*Store)(nil)

// RecordEdit appends an edit to the journal.
func (s *Store) RecordEdit(ctx context.Context, input EditInput) (*Edit, error) {
	issueKey := strings.TrimSpace(input.IssueKey)
	if issueKey == "" {
		return nil, fmt.Errorf("issue key is required")
	}
	field := strings.TrimSpace(input.Field)
	if field == "" {
		return nil, fmt.Errorf("field is required")
	}
	at := input.At
	if at.IsZero() {
		at = time.Now()
	}

	var value []byte
	if input.Value != nil {
		encoded, err := json.Marshal(input.Value)
		if err != nil {
			return nil, fmt.Errorf("encode edit value: %w", err)
		}
		value = encoded
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO edits (issue_key, epic_key, field, value, success, status, error, session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, issueKey, nullString(input.EpicKey), field, nullBytes(value), boolInt(input.Success),
		input.Status, nullString(input.Error), nullString(input.SessionID), formatTime(at))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &Edit{
		ID:        id,
		IssueKey:  issueKey,
		EpicKey:   input.EpicKey,
		Field:     field,
		Value:     value,
		Success:   input.Success,
		Status:    input.Status,
		Error:     input.Error,
		SessionID: input.SessionID,
		CreatedAt: at.UTC(),
	}, nil
}

// ListEdits returns the newest edits of an issue first.
func (s *Store) ListEdits(ctx context.Context, issueKey string, limit int) ([]Edit, error) {
	issueKey = strings.TrimSpace(issueKey)
	if issueKey == "" {
		return nil, fmt.Errorf("issue key is required")
	}
	if limit <= 0 {
		limit = defaultEditLimit
	}
	if limit > maxEditLimit {
		limit = maxEditLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_key, epic_key, field, value, success, status, error, session_id, created_at
		FROM edits
		WHERE issue_key = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, issueKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Edit
	for rows.Next() {
		edit, err := scanEdit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, edit)
	}
	return out, rows.Err()
}

func scanEdit(rows *sql.Rows) (Edit, error) {
	var (
		edit      Edit
		epicKey   sql.NullString
		value     sql.NullString
		success   int
		errText   sql.NullString
		sessionID sql.NullString
		createdAt string
	)
	if err := rows.Scan(&edit.ID, &edit.IssueKey, &epicKey, &edit.Field, &value, &success,
		&edit.Status, &errText, &sessionID, &createdAt); err != nil {
		return Edit{}, err
	}
	ts, err := parseTime(createdAt)
	if err != nil {
		return Edit{}, err
	}
	edit.EpicKey = epicKey.String
	if value.Valid {
		edit.Value = json.RawMessage(value.String)
	}
	edit.Success = success != 0
	edit.Error = errText.String
	edit.SessionID = sessionID.String
	edit.CreatedAt = ts
	return edit, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullBytes(value []byte) any {
	if value == nil {
		return nil
	}
	return string(value)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
