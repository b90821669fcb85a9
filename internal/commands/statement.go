package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/statement"
)

func newStatementCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Credit card statements",
	}
	cmd.AddCommand(newStatementShowCommand(opts), newStatementPayCommand(opts))
	return cmd
}

func newStatementShowCommand(opts *options) *cobra.Command {
	var card, month string
	var count int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a card's statement, or --count consecutive statements",
		Args:  cobra.NoArgs,
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, _ []string) error {
			period, err := parseMonth(month)
			if err != nil {
				return err
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			var sts []statement.Statement
			if count == 1 {
				st, err := p.ledger.Statement(ctx, card, period)
				if err != nil {
					return err
				}
				sts = append(sts, st)
			} else if sts, err = p.ledger.Upcoming(ctx, card, period, count); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, st := range sts {
				if i > 0 {
					fmt.Fprintln(out)
				}
				status, err := p.ledger.StatementStatus(ctx, card, st.Period)
				if err != nil {
					return err
				}
				if err := printStatement(cmd, p, st, status); err != nil {
					return err
				}
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&card, "card", "", "card ID (required)")
	_ = cmd.MarkFlagRequired("card")
	cmd.Flags().StringVar(&month, "month", "", "statement month, YYYY-MM (default: current)")
	cmd.Flags().IntVar(&count, "count", 1, "number of consecutive statements")
	return cmd
}

func printStatement(cmd *cobra.Command, p *project, st statement.Statement, status model.StatementStatus) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Statement %s  card %s  [%s]\n", st.Period, st.CardID, status.Status)
	if !st.ClosingDate.IsZero() {
		fmt.Fprintf(out, "Closes %s, due %s\n", p.date(st.ClosingDate), p.date(st.DueDate))
	}

	tw := newTable(cmd)
	fmt.Fprintln(tw, "DATE\tDESCRIPTION\tCATEGORY\tORIGIN\tINSTALLMENT\tAMOUNT")
	for _, l := range st.Items {
		inst := "-"
		if l.InstallmentCount > 1 {
			inst = fmt.Sprintf("%d/%d", l.InstallmentIndex, l.InstallmentCount)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.date(l.Date), dash(l.Notes), l.CategoryID, l.Origin, inst, p.money(l.Amount))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Total %s (personal %s, business %s)\n",
		p.money(st.Total), p.money(st.PersonalTotal), p.money(st.BusinessTotal))
	return nil
}

func newStatementPayCommand(opts *options) *cobra.Command {
	var card, month string
	var undo bool

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Mark a statement as paid",
		Args:  cobra.NoArgs,
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, _ []string) error {
			period, err := parseMonth(month)
			if err != nil {
				return err
			}
			status := model.PaymentPaid
			if undo {
				status = model.PaymentPending
			}
			if err := p.ledger.SetStatementStatus(ctx, card, period, status); err != nil {
				return err
			}
			p.record(ctx, "statement.pay", fmt.Sprintf("%s %s", period, status), card)
			fmt.Fprintf(cmd.OutOrStdout(), "Statement %s of card %s marked %s\n", period, card, status)
			return nil
		}),
	}

	cmd.Flags().StringVar(&card, "card", "", "card ID (required)")
	_ = cmd.MarkFlagRequired("card")
	cmd.Flags().StringVar(&month, "month", "", "statement month, YYYY-MM (default: current)")
	cmd.Flags().BoolVar(&undo, "undo", false, "mark as pending again")
	return cmd
}
