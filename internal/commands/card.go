package commands

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fincontrol-dev/fincontrol/internal/ledger"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/money"
)

func newCardCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Manage credit cards",
	}
	cmd.AddCommand(newCardAddCommand(opts), newCardListCommand(opts), newCardEditCommand(opts), newCardRmCommand(opts))
	return cmd
}

func newCardAddCommand(opts *options) *cobra.Command {
	var cardID, name, bank, origin, limit string
	var closing, due int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a credit card",
		Args:  cobra.NoArgs,
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, _ []string) error {
			o, err := parseOrigin(origin)
			if err != nil {
				return err
			}
			lim := decimal.Zero
			if limit != "" {
				if lim, err = money.Parse(limit); err != nil {
					return err
				}
			}
			card := model.Card{
				ID:          newID(p, cardID),
				Name:        name,
				Bank:        bank,
				Origin:      o,
				CreditLimit: money.Round(lim),
				ClosingDay:  closing,
				DueDay:      due,
			}
			if err := ledger.ValidateCard(card); err != nil {
				return err
			}
			if err := p.store.SaveCard(ctx, card); err != nil {
				return err
			}
			p.record(ctx, "card.add", card.Name, card.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Added card %s (%s)\n", card.Name, card.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&cardID, "id", "", "card ID (default: generated)")
	cmd.Flags().StringVar(&name, "name", "", "card name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&bank, "bank", "", "issuing bank")
	cmd.Flags().StringVar(&origin, "origin", string(model.OriginPersonal), "personal or business")
	cmd.Flags().StringVar(&limit, "limit", "", "credit limit")
	cmd.Flags().IntVar(&closing, "closing", 0, "statement closing day (required)")
	cmd.Flags().IntVar(&due, "due", 0, "payment due day (required)")
	_ = cmd.MarkFlagRequired("closing")
	_ = cmd.MarkFlagRequired("due")

	return cmd
}

func newCardEditCommand(opts *options) *cobra.Command {
	var name, bank, origin, limit string
	var closing, due int

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a credit card",
		Long: `Change a credit card. Only the flags given are applied.

New closing or due days change the dates printed on every statement, past
months included. Records stay on the month they were billed to.`,
		Args: cobra.ExactArgs(1),
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, args []string) error {
			flags := cmd.Flags()
			card, err := p.ledger.UpdateCard(ctx, args[0], func(c *model.Card) error {
				if flags.Changed("name") {
					c.Name = name
				}
				if flags.Changed("bank") {
					c.Bank = bank
				}
				if flags.Changed("origin") {
					o, err := parseOrigin(origin)
					if err != nil {
						return err
					}
					c.Origin = o
				}
				if flags.Changed("limit") {
					lim, err := money.Parse(limit)
					if err != nil {
						return err
					}
					c.CreditLimit = lim
				}
				if flags.Changed("closing") {
					c.ClosingDay = closing
				}
				if flags.Changed("due") {
					c.DueDay = due
				}
				return nil
			})
			if err != nil {
				return err
			}
			p.record(ctx, "card.edit", card.Name, card.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated card %s (%s)\n", card.Name, card.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&bank, "bank", "", "issuing bank")
	cmd.Flags().StringVar(&origin, "origin", "", "personal or business")
	cmd.Flags().StringVar(&limit, "limit", "", "credit limit")
	cmd.Flags().IntVar(&closing, "closing", 0, "statement closing day")
	cmd.Flags().IntVar(&due, "due", 0, "payment due day")

	return cmd
}

func newCardListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List credit cards with available credit",
		Args:  cobra.NoArgs,
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, _ []string) error {
			cards, err := p.store.ListCards(ctx)
			if err != nil {
				return err
			}
			tw := newTable(cmd)
			fmt.Fprintln(tw, "ID\tNAME\tBANK\tORIGIN\tCLOSES\tDUE\tLIMIT\tAVAILABLE")
			for _, c := range cards {
				avail, err := p.ledger.AvailableCredit(ctx, c.ID, now())
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					c.ID, c.Name, c.Bank, c.Origin, c.ClosingDay, c.DueDay, p.money(c.CreditLimit), p.money(avail))
			}
			return tw.Flush()
		}),
	}
}

func newCardRmCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a credit card",
		Args:  cobra.ExactArgs(1),
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, args []string) error {
			if err := p.store.DeleteCard(ctx, args[0]); err != nil {
				return err
			}
			p.record(ctx, "card.rm", "", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Removed card %s\n", args[0])
			return nil
		}),
	}
}
