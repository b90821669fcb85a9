package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fincontrol-dev/fincontrol/internal/model"
)

func newDashboardCommand(opts *options) *cobra.Command {
	var month, origin string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Month overview: balances, income, expenses and open statements",
		Args:  cobra.NoArgs,
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, _ []string) error {
			period, err := parseMonth(month)
			if err != nil {
				return err
			}
			var o model.Origin
			if origin != "" {
				if o, err = parseOrigin(origin); err != nil {
					return err
				}
			}

			sum, err := p.ledger.Dashboard(ctx, period, o)
			if err != nil {
				return err
			}

			tw := newTable(cmd)
			fmt.Fprintf(tw, "Month\t%s\n", sum.Period)
			fmt.Fprintf(tw, "Balance\t%s\n", p.money(sum.Balance))
			fmt.Fprintf(tw, "Income\t%s\n", p.money(sum.Income))
			fmt.Fprintf(tw, "Expenses\t%s\n", p.money(sum.Expense))
			fmt.Fprintf(tw, "Net\t%s\n", p.money(sum.Net))
			fmt.Fprintf(tw, "Open statements\t%s\n", p.money(sum.OpenStatements))
			if err := tw.Flush(); err != nil {
				return err
			}

			if len(sum.Recent) == 0 {
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\nRecent")
			tw = newTable(cmd)
			for _, t := range sum.Recent {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.date(t.Date), t.Type, dash(t.Notes), p.money(t.SignedAmount()))
			}
			return tw.Flush()
		}),
	}

	cmd.Flags().StringVar(&month, "month", "", "month, YYYY-MM (default: current)")
	cmd.Flags().StringVar(&origin, "origin", "", "only personal or business")
	return cmd
}
