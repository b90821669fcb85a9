package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fincontrol-dev/fincontrol/internal/importer"
	"github.com/fincontrol-dev/fincontrol/internal/logger"
)

func newImportCommand(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a legacy backup, CSV or message list; without a file, every pending file in import/",
		Args:  cobra.MaximumNArgs(1),
		RunE: withProject(opts, func(ctx context.Context, cmd *cobra.Command, p *project, args []string) error {
			reg := importer.DefaultRegistry(now())

			if len(args) == 1 {
				res, err := importFile(ctx, cmd, p, reg, args[0], format)
				if err != nil {
					return err
				}
				p.record(ctx, "import", res, filepath.Base(args[0]))
				return nil
			}

			files, err := importer.Scan(p.dir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import")
				return nil
			}
			for _, f := range files {
				res, err := importFile(ctx, cmd, p, reg, f.Path, format)
				if err != nil {
					return fmt.Errorf("%s: %w", f.Name, err)
				}
				if err := importer.MarkProcessed(p.dir, f.Name); err != nil {
					return err
				}
				p.record(ctx, "import", res, f.Name)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&format, "format", "", "fincontrol-json, csv or message (default: from extension)")
	return cmd
}

// importFile parses and applies one file, returning a summary for the audit
// log.
func importFile(ctx context.Context, cmd *cobra.Command, p *project, reg *importer.Registry, path, format string) (string, error) {
	parser := reg.Detect(path)
	if format != "" {
		parser = reg.Get(format)
	}
	if parser == nil {
		return "", fmt.Errorf("cannot tell the format of %s; pass --format", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	batch, err := parser.Parse(f)
	if err != nil {
		return "", err
	}
	res, err := importer.Apply(ctx, p.store, p.ledger, batch)
	if err != nil {
		return "", err
	}

	log := logger.FromContext(ctx)
	log.Info().Str("file", path).Int("records", res.Records).Msg("imported")
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %s: %d accounts, %d cards, %d categories, %d entries (%d records)",
		filepath.Base(path), res.Accounts, res.Cards, res.Categories, res.Entries, res.Records)
	if res.Skipped > 0 {
		fmt.Fprintf(out, ", %d already imported", res.Skipped)
	}
	fmt.Fprintln(out)
	return fmt.Sprintf("%s: %d entries, %d records", parser.Format(), res.Entries, res.Records), nil
}
