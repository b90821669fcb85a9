package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fincontrol-dev/fincontrol/internal/auditlog"
	"github.com/fincontrol-dev/fincontrol/internal/config"
)

func newConfigCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change project settings",
	}
	cmd.AddCommand(newConfigShowCommand(opts), newConfigSetCommand(opts))
	return cmd
}

// configFile resolves the project directory and its config path the same
// way openProject does.
func configFile(opts *options) (dir, path string, err error) {
	dir, err = filepath.Abs(opts.repo)
	if err != nil {
		return "", "", fmt.Errorf("resolving path: %w", err)
	}
	path = opts.configPath
	if path == "" {
		path = filepath.Join(dir, config.FileName)
	}
	return dir, path, nil
}

func newConfigShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, path, err := configFile(opts)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigSetCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting in the config file",
		Long: "Change one setting in the config file. Environment overrides are not\n" +
			"written back. Keys: " + strings.Join(config.Keys(), ", ") + ".",
		Example: `  fincontrol config set profile.name "Ana Souza"
  fincontrol config set profile.date_format yyyy-mm-dd`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, path, err := configFile(opts)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			rec := auditlog.NewRecorder(dir, actor(cfg), cfg.Audit.Enabled)
			if err := rec.Record("config.set", args[0]+"="+args[1], ""); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %q\n", args[0], args[1])
			return nil
		},
	}
}
