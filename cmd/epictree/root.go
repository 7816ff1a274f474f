package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"epictree/internal/config"
	"epictree/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool
	var outputName string
	var logLevel string

	cmd := &cobra.Command{
		Use:           "epictree",
		Short:         "Epictree shows a Jira epic as an interactive tree of issues and subtasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel, cfg.Log)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			if outputName != "" {
				formatter, err := format.ForName(outputName)
				if err != nil {
					return err
				}
				outputFormatter = formatter
				jsonOutput = true
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&outputName, "output", "", "structured output format: json, json-pretty or yaml")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newInfoCmd(cfg, &jsonOutput),
		newTreeCmd(cfg, &jsonOutput),
		newSummaryCmd(cfg, &jsonOutput),
		newRenderCmd(cfg),
		newLayoutCmd(cfg),
		newSnapshotCmd(cfg),
		newSessionCmd(cfg),
		newEditCmd(cfg, &jsonOutput),
		newEditsCmd(cfg, &jsonOutput),
		newInvokeCmd(cfg),
		newNotifyCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
		newHashTokenCmd(&jsonOutput),
		newMigrateCmd(cfg, &jsonOutput),
	)

	return cmd
}
