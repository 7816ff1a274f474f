package main

import (
	"strings"

	"github.com/spf13/cobra"

	"epictree/internal/api"
	"epictree/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show server, Jira site and session info",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(resp)
				}

				_ = writePlain("api_url: %s\n", cfg.APIURL)
				_ = writePlain("jira_site: %s\n", resp.JiraSite)
				_ = writePlain("default_epic: %s\n", resp.DefaultEpic)
				_ = writePlain("journal: %t\n", resp.Journal)
				_ = writePlain("sessions: %s\n", strings.Join(resp.Sessions, ", "))
				_ = writePlain("operations: %s\n", strings.Join(resp.Operations, ", "))
				return nil
			})
		},
	}
	return cmd
}
