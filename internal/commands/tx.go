package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/installment"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/money"
	"github.com/fincontrol-dev/fincontrol/internal/store"
)

func newTxCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Record, list and remove transactions",
	}
	cmd.AddCommand(newTxAddCommand(opts), newTxParseCommand(opts), newTxListCommand(opts), newTxRmCommand(opts))
	return cmd
}

type txAddFlags struct {
	typ          string
	origin       string
	category     string
	amount       string
	date         string
	installments int
	account      string
	card         string
	notes        string
	receipt      string
}

func newTxAddCommand(opts *options) *cobra.Command {
	var f txAddFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction, split into installments when --installments > 1",
		Long: `Record a transaction, split into installments when --installments > 1.

Each installment gets the total divided by the count, truncated to cents;
the leftover cents go to the first installment. Every installment must be
at least one cent, so a total with fewer cents than installments (0.02 in
3) is rejected.`,
		Args: cobra.NoArgs,
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, _ []string) error {
			return runTxAdd(ctx, cmd, p, f)
		}),
	}

	cmd.Flags().StringVar(&f.typ, "type", string(model.TypeExpense), "income or expense")
	cmd.Flags().StringVar(&f.origin, "origin", string(model.OriginPersonal), "personal or business")
	cmd.Flags().StringVar(&f.category, "category", "", "category ID or name (required)")
	cmd.Flags().StringVar(&f.amount, "amount", "", "total amount (required)")
	cmd.Flags().StringVar(&f.date, "date", "", "date of the first installment, YYYY-MM-DD (default: today)")
	cmd.Flags().IntVar(&f.installments, "installments", 1, "number of monthly installments")
	cmd.Flags().StringVar(&f.account, "account", "", "bank account ID")
	cmd.Flags().StringVar(&f.card, "card", "", "credit card ID")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free text notes")
	cmd.Flags().StringVar(&f.receipt, "receipt", "", "receipt reference, kept on the first installment")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runTxAdd(ctx context.Context, cmd *cobra.Command, p *project, f txAddFlags) error {
	typ, err := parseType(f.typ)
	if err != nil {
		return err
	}
	origin, err := parseOrigin(f.origin)
	if err != nil {
		return err
	}
	amount, err := money.Parse(f.amount)
	if err != nil {
		return err
	}
	date := calendar.Truncate(now())
	if f.date != "" {
		if date, err = calendar.ParseDate(f.date); err != nil {
			return err
		}
	}

	cats, err := p.ledger.Categories(ctx)
	if err != nil {
		return err
	}
	cat, err := cats.Resolve(f.category, typ)
	if err != nil {
		return err
	}

	txns, err := p.ledger.Record(ctx, installment.Intent{
		TotalAmount:      amount,
		InstallmentCount: f.installments,
		StartDate:        date,
		Type:             typ,
		Origin:           origin,
		CategoryID:       cat.ID,
		AccountID:        f.account,
		CardID:           f.card,
		Notes:            f.notes,
		ReceiptRef:       f.receipt,
	})
	if err != nil {
		return err
	}

	entity := txns[0].ID
	if txns[0].GroupID != "" {
		entity = txns[0].GroupID
	}
	p.record(ctx, "tx.add", fmt.Sprintf("%s %s in %d", typ, amount.StringFixed(2), len(txns)), entity)

	tw := newTable(cmd)
	fmt.Fprintln(tw, "ID\tDATE\tINSTALLMENT\tAMOUNT")
	for _, t := range txns {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n", t.ID, p.date(t.Date), t.InstallmentIndex, t.InstallmentCount, p.money(t.Amount))
	}
	return tw.Flush()
}

func newTxListCommand(opts *options) *cobra.Command {
	var card, account, month, group string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		Args:  cobra.NoArgs,
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, _ []string) error {
			filter := store.Filter{CardID: card, AccountID: account, GroupID: group}
			if month != "" {
				period, err := calendar.ParsePeriod(month)
				if err != nil {
					return err
				}
				filter.From, filter.To = period.Start(), period.End()
			}

			txns, err := p.store.ListTransactions(ctx, filter)
			if err != nil {
				return err
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "ID\tDATE\tTYPE\tORIGIN\tCATEGORY\tAMOUNT\tINSTALLMENT\tACCOUNT\tCARD\tNOTES")
			for _, t := range txns {
				inst := "-"
				if t.IsInstallment() {
					inst = fmt.Sprintf("%d/%d", t.InstallmentIndex, t.InstallmentCount)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					t.ID, p.date(t.Date), t.Type, t.Origin, t.CategoryID, p.money(t.Amount), inst,
					dash(t.AccountID), dash(t.CardID), t.Notes)
			}
			return tw.Flush()
		}),
	}

	cmd.Flags().StringVar(&card, "card", "", "only this card")
	cmd.Flags().StringVar(&account, "account", "", "only this account")
	cmd.Flags().StringVar(&month, "month", "", "only this month, YYYY-MM")
	cmd.Flags().StringVar(&group, "group", "", "only this installment group")
	return cmd
}

func newTxRmCommand(opts *options) *cobra.Command {
	var wholeGroup bool

	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove one installment, or with --group every installment of its purchase",
		Args:  cobra.ExactArgs(1),
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, args []string) error {
			if !wholeGroup {
				t, err := p.ledger.DeleteInstallment(ctx, args[0])
				if err != nil {
					return err
				}
				p.record(ctx, "tx.rm", fmt.Sprintf("installment %d/%d", t.InstallmentIndex, t.InstallmentCount), t.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", t.ID)
				return nil
			}

			groupID, err := groupOf(ctx, p, args[0])
			if err != nil {
				return err
			}
			n, err := p.ledger.DeleteGroup(ctx, groupID)
			if err != nil {
				return err
			}
			p.record(ctx, "tx.rm", fmt.Sprintf("group of %d", n), groupID)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d installments of group %s\n", n, groupID)
			return nil
		}),
	}

	cmd.Flags().BoolVar(&wholeGroup, "group", false, "remove the whole installment group")
	return cmd
}

// groupOf accepts either a member's ID or the group ID itself.
func groupOf(ctx context.Context, p *project, ref string) (string, error) {
	t, err := p.store.GetTransaction(ctx, ref)
	switch {
	case err == nil && t.GroupID == "":
		return "", fmt.Errorf("transaction %s is not part of an installment group", ref)
	case err == nil:
		return t.GroupID, nil
	case errors.Is(err, store.ErrNotFound):
		return ref, nil
	}
	return "", err
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
