package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/fincontrol-dev/fincontrol/internal/buildinfo"
)

// now is the clock used for default dates and months.
var now = time.Now

// options are the global flags shared by every subcommand.
type options struct {
	repo       string
	configPath string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:     "fincontrol",
		Short:   "Personal and business finances with credit card installments",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.repo, "repo", ".", "project directory")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default <repo>/fincontrol.yaml)")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountCommand(opts),
		newCardCommand(opts),
		newCategoryCommand(opts),
		newTxCommand(opts),
		newStatementCommand(opts),
		newDashboardCommand(opts),
		newReportCommand(opts),
		newCheckCommand(opts),
		newImportCommand(opts),
		newLogCommand(opts),
		newConfigCommand(opts),
	)

	return rootCmd
}
