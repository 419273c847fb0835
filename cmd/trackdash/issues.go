package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/trackdash/internal/timeparsing"
	"github.com/steveyegge/trackdash/internal/types"
)

func (a *app) issuesCmd() *cobra.Command {
	var (
		since  string
		format string
	)
	cmd := &cobra.Command{
		Use:   "issues <project-key>",
		Short: "List a project's issues, most recently updated first",
		Example: `  trackdash issues ALPHA
  trackdash issues ALPHA --since 2w
  trackdash issues ALPHA --since yesterday --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatTable, formatJSON, formatYAML); err != nil {
				return err
			}
			var from time.Time
			if since != "" {
				t, err := timeparsing.ParseSince(since, time.Now())
				if err != nil {
					return err
				}
				from = t
			}
			if err := a.cfg.CheckCredentials(); err != nil {
				return err
			}
			views, err := buildViews(a.cfg, a.logger)
			if err != nil {
				return err
			}
			issues, err := views.AllIssues(cmd.Context(), args[0], from)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case formatJSON:
				return writeJSON(out, issues)
			case formatYAML:
				return writeYAML(out, issues)
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tSTATUS\tTYPE\tASSIGNEE\tUPDATED\tSUMMARY")
			for _, is := range issues {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					is.Key, is.Status, orDash(is.Type), assignee(is), updated(is), is.Summary)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "Only issues updated since (e.g. 2w, 3d, 2025-01-15, yesterday)")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json or yaml")
	return cmd
}

func assignee(is types.Issue) string {
	if is.Assignee == nil {
		return "-"
	}
	return *is.Assignee
}

func updated(is types.Issue) string {
	if is.Updated.IsZero() {
		return "-"
	}
	return is.Updated.Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
