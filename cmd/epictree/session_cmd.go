package main

import (
	"github.com/spf13/cobra"

	"epictree/internal/api"
	"epictree/internal/config"
)

func newSessionCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage viewer sessions",
	}
	cmd.AddCommand(newSessionCloseCmd(cfg))
	return cmd
}

func newSessionCloseCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Close a viewer session, dropping its filters and pending edits",
		Args:  requireExactlyArgs(1, "usage: epictree session close <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				if err := client.CloseSession(cmd.Context(), args[0]); err != nil {
					return err
				}
				return writePlain("closed session %s\n", args[0])
			})
		},
	}
}
