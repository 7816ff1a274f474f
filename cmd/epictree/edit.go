package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"epictree/internal/api"
	"epictree/internal/config"
	"epictree/internal/fields"
)

// editValue turns the command-line value into the shape the field expects.
func editValue(field, raw string) any {
	raw = strings.TrimSpace(raw)
	switch field {
	case fields.Labels:
		labels := splitCommaList(raw)
		if labels == nil {
			return []string{}
		}
		return labels
	case fields.Assignee, fields.Priority:
		if raw == "" || strings.EqualFold(raw, "none") {
			return nil
		}
		return raw
	default:
		return raw
	}
}

func newEditCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var epic string
	var displayName string
	var sessionID string

	cmd := &cobra.Command{
		Use:   "edit <issue-key> <field> [value]",
		Short: "Edit a field of an issue (" + strings.Join(fields.Editable, ", ") + ")",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			issueKey, field := args[0], args[1]
			raw := ""
			if len(args) == 3 {
				raw = args[2]
			}

			return withClient(cfg, func(client *api.Client) error {
				if sessionID != "" {
					client.SetSessionID(sessionID)
				}
				res, err := client.UpdateField(cmd.Context(), issueKey, field, api.EditRequest{
					Value:       editValue(field, raw),
					DisplayName: displayName,
					EpicKey:     epic,
				})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(res)
				}
				if !res.Success {
					return errors.New(res.Error)
				}
				return writePlain("updated %s %s\n", issueKey, field)
			})
		},
	}

	cmd.Flags().StringVar(&epic, "epic", "", "epic the edit belongs to")
	cmd.Flags().StringVar(&displayName, "display-name", "", "label shown for the new value while the edit is pending")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (defaults to EPICTREE_SESSION_ID)")
	return cmd
}

func newEditsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "edits <issue-key>",
		Short: "List journaled edits of an issue, newest first",
		Args:  requireExactlyArgs(1, "issue key is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ListEdits(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writeEdits(resp.Edits)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of edits (default 50)")
	return cmd
}
