package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fincontrol-dev/fincontrol/internal/auditlog"
)

func newLogCommand(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the audit log",
		Args:  cobra.NoArgs,
		RunE: withProject(opts, func(_ context.Context, cmd *cobra.Command, p *project, _ []string) error {
			entries, err := auditlog.Read(p.dir)
			if err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "TIME\tACTOR\tACTION\tENTITY\tDETAILS")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Local().Format(time.DateTime), e.Actor, e.Action, dash(e.EntityID), e.Details)
			}
			return tw.Flush()
		}),
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "show only the last N entries")
	return cmd
}
