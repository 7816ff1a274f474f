package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"epictree/internal/api"
	"epictree/internal/config"
)

func newSnapshotCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch or delete renders saved with render --save",
	}
	cmd.AddCommand(newSnapshotGetCmd(cfg), newSnapshotRmCmd(cfg))
	return cmd
}

func newSnapshotGetCmd(cfg *config.Config) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Download a saved render",
		Args:  requireExactlyArgs(1, "usage: epictree snapshot get <key> --out <file>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return fmt.Errorf("--out is required")
			}
			return withClient(cfg, func(client *api.Client) error {
				file, err := os.Create(outPath)
				if err != nil {
					return err
				}
				if err := client.Snapshot(cmd.Context(), args[0], file); err != nil {
					_ = file.Close()
					_ = os.Remove(outPath)
					return err
				}
				if err := file.Close(); err != nil {
					return err
				}
				return writePlain("wrote %s\n", outPath)
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file")
	return cmd
}

func newSnapshotRmCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <key>",
		Short: "Delete a saved render",
		Args:  requireExactlyArgs(1, "usage: epictree snapshot rm <key>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				if err := client.DeleteSnapshot(cmd.Context(), args[0]); err != nil {
					return err
				}
				return writePlain("deleted %s\n", args[0])
			})
		},
	}
}
