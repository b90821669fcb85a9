package commands

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/money"
)

func newAccountCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage bank accounts",
	}
	cmd.AddCommand(newAccountAddCommand(opts), newAccountListCommand(opts), newAccountEditCommand(opts), newAccountRmCommand(opts))
	return cmd
}

func newAccountAddCommand(opts *options) *cobra.Command {
	var accountID, name, origin, balance string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a bank account",
		Args:  cobra.NoArgs,
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, _ []string) error {
			o, err := parseOrigin(origin)
			if err != nil {
				return err
			}
			bal := decimal.Zero
			if balance != "" {
				if bal, err = money.Parse(balance); err != nil {
					return err
				}
			}
			acc := model.Account{ID: newID(p, accountID), Name: name, Origin: o, Balance: money.Round(bal)}
			if err := p.store.SaveAccount(ctx, acc); err != nil {
				return err
			}
			p.record(ctx, "account.add", acc.Name, acc.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Added account %s (%s)\n", acc.Name, acc.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&accountID, "id", "", "account ID (default: generated)")
	cmd.Flags().StringVar(&name, "name", "", "account name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&origin, "origin", string(model.OriginPersonal), "personal or business")
	cmd.Flags().StringVar(&balance, "balance", "", "opening balance")

	return cmd
}

func newAccountEditCommand(opts *options) *cobra.Command {
	var name, origin, balance string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an account's name, origin or balance",
		Args:  cobra.ExactArgs(1),
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, args []string) error {
			flags := cmd.Flags()
			acc, err := p.ledger.UpdateAccount(ctx, args[0], func(a *model.Account) error {
				if flags.Changed("name") {
					a.Name = name
				}
				if flags.Changed("origin") {
					o, err := parseOrigin(origin)
					if err != nil {
						return err
					}
					a.Origin = o
				}
				if flags.Changed("balance") {
					bal, err := money.Parse(balance)
					if err != nil {
						return err
					}
					a.Balance = bal
				}
				return nil
			})
			if err != nil {
				return err
			}
			p.record(ctx, "account.edit", acc.Name, acc.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated account %s (%s)\n", acc.Name, acc.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&origin, "origin", "", "personal or business")
	cmd.Flags().StringVar(&balance, "balance", "", "corrected balance")

	return cmd
}

func newAccountListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bank accounts",
		Args:  cobra.NoArgs,
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, _ []string) error {
			accounts, err := p.store.ListAccounts(ctx)
			if err != nil {
				return err
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "ID\tNAME\tORIGIN\tBALANCE")
			for _, a := range accounts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Origin, p.money(a.Balance))
			}
			return tw.Flush()
		}),
	}
}

func newAccountRmCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a bank account",
		Args:  cobra.ExactArgs(1),
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, args []string) error {
			if err := p.store.DeleteAccount(ctx, args[0]); err != nil {
				return err
			}
			p.record(ctx, "account.rm", "", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Removed account %s\n", args[0])
			return nil
		}),
	}
}
