package session

import (
	"context"

	"epictree/internal/fields"
	"epictree/internal/overlay"
	"epictree/internal/service"
	"epictree/internal/store"
)

// Edit is a submitted field change. DisplayName and IconURL describe the
// chosen option for assignee and priority edits.
type Edit struct {
	IssueKey    string `json:"issueKey"`
	Field       string `json:"field"`
	Value       any    `json:"value"`
	DisplayName string `json:"displayName,omitempty"`
	IconURL     string `json:"iconUrl,omitempty"`
}

// EditResult is the outcome of SubmitEdit.
type EditResult struct {
	Success bool   `json:"success"`
	Status  int    `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SubmitEdit writes one field optimistically. The overlay shows the new
// value before the write resolves; a successful write leaves it in place and
// a failed write removes it. Invalid values never reach the network.
func (s *Session) SubmitEdit(ctx context.Context, edit Edit) (EditResult, error) {
	if s.Closed() {
		return EditResult{}, ErrClosed
	}

	value, err := fields.Validate(edit.Field, edit.Value)
	if err != nil {
		res := EditResult{Success: false, Error: err.Error()}
		s.setEditError(edit.IssueKey, edit.Field, res.Error)
		s.record(ctx, edit, edit.Value, res)
		return res, nil
	}

	name, icon := fields.OptionLabel(edit.Value)
	if edit.DisplayName != "" {
		name = edit.DisplayName
	}
	if edit.IconURL != "" {
		icon = edit.IconURL
	}
	var opts []overlay.SetOption
	if name != "" {
		opts = append(opts, overlay.WithDisplayName(name))
	}
	if icon != "" {
		opts = append(opts, overlay.WithIcon(icon))
	}
	entry := s.overlay.Set(edit.IssueKey, edit.Field, value, opts...)

	update := s.backend.UpdateIssueField(ctx, service.UpdateIssueFieldRequest{
		IssueKey:   edit.IssueKey,
		FieldName:  edit.Field,
		FieldValue: value,
	})
	res := EditResult{Success: update.Success, Status: update.Status, Error: update.Error}
	if !update.Success && res.Error == "" {
		res.Error = "Failed to update " + edit.Field
	}

	// A newer edit of the same field owns the overlay entry and the inline
	// error from here on.
	switch {
	case update.Success && s.overlay.Current(entry):
		s.setEditError(edit.IssueKey, edit.Field, "")
	case !update.Success && s.overlay.ClearIf(entry):
		s.setEditError(edit.IssueKey, edit.Field, res.Error)
		s.logger.Warn("edit failed", "issue", edit.IssueKey, "field", edit.Field, "status", update.Status, "error", res.Error)
	case !update.Success:
		s.logger.Debug("superseded edit failed", "issue", edit.IssueKey, "field", edit.Field, "error", res.Error)
	}
	s.record(ctx, edit, value, res)
	return res, nil
}

func (s *Session) record(ctx context.Context, edit Edit, value any, res EditResult) {
	if s.journal == nil {
		return
	}
	_, err := s.journal.RecordEdit(ctx, store.EditInput{
		IssueKey:  edit.IssueKey,
		EpicKey:   s.epicKey,
		Field:     edit.Field,
		Value:     value,
		Success:   res.Success,
		Status:    res.Status,
		Error:     res.Error,
		SessionID: s.id,
		At:        s.now(),
	})
	if err != nil {
		s.logger.Error("record edit", "issue", edit.IssueKey, "field", edit.Field, "error", err)
	}
}
