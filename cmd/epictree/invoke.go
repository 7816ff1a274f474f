package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"epictree/internal/api"
	"epictree/internal/config"
	"epictree/internal/service"
)

func newInvokeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "invoke <operation> [json|-]",
		Short: "Call a host operation (" + strings.Join(service.Operations(), ", ") + ")",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := invokePayload(args[1:], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Invoke(cmd.Context(), args[0], payload)
				if err != nil {
					return err
				}
				var result any
				if err := json.Unmarshal(resp.Result, &result); err != nil {
					return fmt.Errorf("decode %s result: %w", resp.Operation, err)
				}
				return writeJSON(result)
			})
		},
	}
}

// invokePayload reads the optional payload argument; "-" reads stdin.
func invokePayload(args []string, stdin io.Reader) (json.RawMessage, error) {
	if len(args) == 0 {
		return nil, nil
	}
	raw := []byte(args[0])
	if args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		raw = data
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func newNotifyCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var epic string
	var changed []string
	var source string

	cmd := &cobra.Command{
		Use:   "notify [issue-key]",
		Short: "Publish an issue-changed event so open trees refresh",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.IssueChangedRequest{EpicKey: epic, Fields: changed, Source: source}
			if len(args) == 1 {
				req.IssueKey = args[0]
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.PublishIssueChanged(cmd.Context(), req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("notified %d session(s)\n", resp.Delivered)
			})
		},
	}

	cmd.Flags().StringVar(&epic, "epic", "", "only refresh sessions showing this epic")
	cmd.Flags().StringSliceVar(&changed, "fields", nil, "changed field names")
	cmd.Flags().StringVar(&source, "source", "cli", "event source")
	return cmd
}
