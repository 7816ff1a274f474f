package main

import (
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"epictree/internal/api"
	"epictree/internal/config"
)

type treeFilterFlags struct {
	assignees  []string
	statuses   []string
	priorities []string
	labels     []string
	blocking   []string
	clear      bool
}

func (f *treeFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.assignees, "assignee", nil, "filter by assignee account id (\"unassigned\" for none)")
	cmd.Flags().StringSliceVar(&f.statuses, "status", nil, "filter by status name")
	cmd.Flags().StringSliceVar(&f.priorities, "priority", nil, "filter by priority name or id")
	cmd.Flags().StringSliceVar(&f.labels, "label", nil, "filter by label")
	cmd.Flags().StringSliceVar(&f.blocking, "blocking", nil, "filter by blocking status: blocking, blocked")
	cmd.Flags().BoolVar(&f.clear, "clear-filters", false, "clear the session filters")
}

// query returns the filter params. Nothing is sent when no filter flag is
// set so the session keeps its filters.
func (f *treeFilterFlags) query() url.Values {
	values := url.Values{}
	dims := []struct {
		key    string
		values []string
	}{
		{"assignee", f.assignees},
		{"status", f.statuses},
		{"priority", f.priorities},
		{"label", f.labels},
		{"blocking", f.blocking},
	}
	set := f.clear
	for _, d := range dims {
		if len(d.values) > 0 {
			set = true
		}
	}
	if !set {
		return values
	}
	for _, d := range dims {
		values.Set(d.key, strings.Join(d.values, ","))
	}
	return values
}

// epicArg picks the epic from args, falling back to "-" which the server
// resolves to its default epic.
func epicArg(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return "-"
}

func newTreeCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var filters treeFilterFlags
	var refresh bool

	cmd := &cobra.Command{
		Use:   "tree [epic]",
		Short: "Show the issue tree of an epic",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			epic := epicArg(args)
			return withClient(cfg, func(client *api.Client) error {
				if refresh {
					if _, err := client.Refresh(cmd.Context(), epic); err != nil {
						return err
					}
				}
				view, err := client.Tree(cmd.Context(), epic, filters.query())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(view)
				}
				return writeTreeView(view)
			})
		},
	}

	filters.register(cmd)
	cmd.Flags().BoolVar(&refresh, "refresh", false, "reload the tree from Jira first")
	return cmd
}

func newSummaryCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "summary [epic]",
		Short: "Show the status and story point breakdown of an epic",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				summary, err := client.Summary(cmd.Context(), epicArg(args))
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(summary)
				}
				return writeSummary(summary)
			})
		},
	}
}
