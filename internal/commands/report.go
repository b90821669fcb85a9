package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fincontrol-dev/fincontrol/internal/dashboard"
	"github.com/fincontrol-dev/fincontrol/internal/model"
)

func newReportCommand(opts *options) *cobra.Command {
	var month, origin string
	var months int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Expenses by category, income versus expense trend and personal/business split",
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
			if months < 1 {
				return fmt.Errorf("--months must be at least 1, got %d", months)
			}

			rep, err := p.ledger.Report(ctx, period, o, months)
			if err != nil {
				return err
			}
			cats, err := p.ledger.Categories(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Expenses by category, %s\n", rep.Period)
			tw := newTable(cmd)
			if len(rep.ByCategory) == 0 {
				fmt.Fprintln(tw, "(none)")
			}
			for _, c := range rep.ByCategory {
				name := c.CategoryID
				if cat, ok := cats.Get(c.CategoryID); ok {
					name = cat.Name
				}
				fmt.Fprintf(tw, "%s\t%s\n", name, p.money(c.Total))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out, "\nIncome vs expenses")
			tw = newTable(cmd)
			fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSES")
			for _, m := range rep.Trend {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Period, p.money(m.Income), p.money(m.Expense))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out, "\nExpenses by origin")
			tw = newTable(cmd)
			fmt.Fprintf(tw, "Personal\t%s\n", p.money(rep.Split.Personal))
			fmt.Fprintf(tw, "Business\t%s\n", p.money(rep.Split.Business))
			return tw.Flush()
		}),
	}

	cmd.Flags().StringVar(&month, "month", "", "month, YYYY-MM (default: current)")
	cmd.Flags().StringVar(&origin, "origin", "", "only personal or business in categories and trend")
	cmd.Flags().IntVar(&months, "months", dashboard.TrendMonths, "months in the trend")
	return cmd
}
