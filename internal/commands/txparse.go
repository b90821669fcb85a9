package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fincontrol-dev/fincontrol/internal/importer"
)

func newTxParseCommand(opts *options) *cobra.Command {
	var account string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "parse <message>",
		Short: "Record a transaction from a free-text message",
		Long: `Record a transaction from a free-text message such as

  R$ 120,00 Restaurante Cartão Nubank Pessoal 3x

The amount is required. "3x" sets the installment count, "empresa" marks it
business, a keyword picks the category (restaurante, uber, aluguel, salário,
...) and a bank name or the word after "cartão" picks the card.`,
		Example: `  fincontrol tx parse "R$ 120,00 Restaurante Cartão Nubank 3x"
  fincontrol tx parse --account acc-1 "5000 salário"`,
		Args: cobra.MinimumNArgs(1),
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, args []string) error {
			text := strings.Join(args, " ")
			parser := &importer.MessageParser{Today: now()}
			e, err := parser.ParseLine(text)
			if err != nil {
				return err
			}
			if account != "" {
				e.Intent.AccountID = account
			}

			in := e.Intent
			out := cmd.OutOrStdout()
			card := e.CardRef
			if card == "" {
				card = "-"
			}
			fmt.Fprintf(out, "%s %s %s in %d on %s, category %s, card %s\n",
				in.Type, in.Origin, p.money(in.TotalAmount), in.InstallmentCount, p.date(in.StartDate), e.CategoryRef, card)
			if dryRun {
				return nil
			}

			res, err := importer.Apply(ctx, p.store, p.ledger, &importer.Batch{Entries: []importer.Entry{e}})
			if err != nil {
				return err
			}
			p.record(ctx, "tx.parse", text, "")
			fmt.Fprintf(out, "Recorded %d records\n", res.Records)
			return nil
		}),
	}

	cmd.Flags().StringVar(&account, "account", "", "bank account the money moves through")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the parsed transaction without recording it")
	return cmd
}
