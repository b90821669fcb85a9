package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fincontrol-dev/fincontrol/internal/auditlog"
	"github.com/fincontrol-dev/fincontrol/internal/categories"
	"github.com/fincontrol-dev/fincontrol/internal/config"
	"github.com/fincontrol-dev/fincontrol/internal/gitops"
)

func newInitCommand() *cobra.Command {
	var name, currency, driver, dsn string
	var useGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new fincontrol project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, name, currency, driver, dsn, useGit)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "profile name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&currency, "currency", "BRL", "currency code")
	cmd.Flags().StringVar(&driver, "driver", config.DriverCSV, "storage driver: csv, sqlite or postgres")
	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres connection string")
	cmd.Flags().BoolVar(&useGit, "git", false, "version the project directory with git")

	return cmd
}

func runInit(cmd *cobra.Command, dir, name, currency, driver, dsn string, useGit bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	for _, d := range []string{"logs", "import", filepath.Join("import", "processed")} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(name, currency)
	cfg.Storage.Driver = driver
	switch driver {
	case config.DriverSQLite:
		cfg.Storage.Path = filepath.Join("data", "fincontrol.db")
	case config.DriverPostgres:
		cfg.Storage.Path = ""
		cfg.Storage.DSN = dsn
	}
	cfg.Versioning.Git = useGit
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(ctx, dir, cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer st.Close()

	err = st.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, c := range categories.Default() {
			if err := st.SaveCategory(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing default categories: %w", err)
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(".env\n"), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	rec := auditlog.NewRecorder(dir, name, cfg.Audit.Enabled)
	if err := rec.Record("init", "driver "+driver, ""); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}

	if useGit {
		if err := gitops.Init(ctx, dir); err != nil {
			return err
		}
		if _, err := gitops.CommitAll(ctx, dir, "init: "+name, gitops.Author{Name: name}); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized fincontrol project at %s (%s storage)\n", dir, driver)
	return nil
}
