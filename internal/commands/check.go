package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate installment groups and references",
		Args:  cobra.NoArgs,
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, _ []string) error {
			verrs, err := p.ledger.Check(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(verrs) == 0 {
				fmt.Fprintln(out, "OK")
				return nil
			}
			for _, ve := range verrs {
				fmt.Fprintln(out, ve.Error())
			}
			return fmt.Errorf("%d problems found", len(verrs))
		}),
	}
}
