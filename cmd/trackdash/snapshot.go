package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/trackdash/internal/dashboard"
	"github.com/steveyegge/trackdash/internal/ui"
)

func (a *app) snapshotCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "snapshot [project-key...]",
		Short: "Print the dashboard once",
		Long: `Print the dashboard once and exit.

Without arguments every visible project is included (filtered by
dashboard.projects when set). With arguments only the named projects are
aggregated, in the given order.`,
		Example: `  trackdash snapshot
  trackdash snapshot ALPHA BETA --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatTable, formatJSON, formatYAML); err != nil {
				return err
			}
			if err := a.cfg.CheckCredentials(); err != nil {
				return err
			}
			views, err := buildViews(a.cfg, a.logger)
			if err != nil {
				return err
			}

			var entries []dashboard.Entry
			if len(args) > 0 {
				entries = views.AssembleAll(cmd.Context(), args)
			} else if entries, err = views.Dashboard(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case formatJSON:
				return writeJSON(out, entries)
			case formatYAML:
				return writeYAML(out, entries)
			default:
				return ui.RenderDashboard(out, entries)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or yaml")
	return cmd
}
