package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fincontrol-dev/fincontrol/internal/auditlog"
	"github.com/fincontrol-dev/fincontrol/internal/calendar"
	"github.com/fincontrol-dev/fincontrol/internal/config"
	"github.com/fincontrol-dev/fincontrol/internal/gitops"
	"github.com/fincontrol-dev/fincontrol/internal/id"
	"github.com/fincontrol-dev/fincontrol/internal/installment"
	"github.com/fincontrol-dev/fincontrol/internal/ledger"
	"github.com/fincontrol-dev/fincontrol/internal/logger"
	"github.com/fincontrol-dev/fincontrol/internal/model"
	"github.com/fincontrol-dev/fincontrol/internal/money"
	"github.com/fincontrol-dev/fincontrol/internal/store"
	"github.com/fincontrol-dev/fincontrol/internal/store/csvstore"
	"github.com/fincontrol-dev/fincontrol/internal/store/sqlstore"
)

// project is an opened fincontrol directory.
type project struct {
	dir    string
	cfg    *config.Config
	store  store.Store
	ledger *ledger.Service
	audit  *auditlog.Recorder
	log    zerolog.Logger
	ids    id.Generator
}

func openProject(ctx context.Context, cmd *cobra.Command, opts *options) (*project, error) {
	dir, err := filepath.Abs(opts.repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfgPath := opts.configPath
	if cfgPath == "" {
		cfgPath = filepath.Join(dir, config.FileName)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, filepath.Join(dir, ".env")); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgPath, err)
	}

	log, err := logger.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, dir, cfg.Storage)
	if err != nil {
		return nil, err
	}

	policy, err := calendar.ParseMonthPolicy(cfg.Installments.DatePolicy)
	if err != nil {
		st.Close()
		return nil, err
	}

	ids := id.UUID{}
	log.Debug().Str("dir", dir).Str("driver", cfg.Storage.Driver).Msg("opened project")
	return &project{
		dir:    dir,
		cfg:    cfg,
		store:  st,
		ledger: ledger.NewService(st, installment.NewSplitter(ids, policy), log),
		audit:  auditlog.NewRecorder(dir, actor(cfg), cfg.Audit.Enabled),
		log:    log,
		ids:    ids,
	}, nil
}

// openStore opens the backend named by the storage config. Relative paths
// are resolved against the project directory.
func openStore(ctx context.Context, dir string, sc config.StorageConfig) (store.Store, error) {
	path := sc.Path
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	switch sc.Driver {
	case config.DriverCSV:
		s, err := csvstore.Open(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		s, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := sqlstore.Open(ctx, sqlstore.DriverPostgres, sc.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
}

func actor(cfg *config.Config) string {
	if cfg.Profile.Name != "" {
		return cfg.Profile.Name
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func (p *project) Close() error {
	return p.store.Close()
}

// record appends to the audit log and, when versioning is on, commits the
// project directory. Failures are logged, not returned: the change itself is
// already stored.
func (p *project) record(ctx context.Context, action, details, entityID string) {
	if err := p.audit.Record(action, details, entityID); err != nil {
		p.log.Warn().Err(err).Str("action", action).Msg("writing audit log")
	}
	if !p.cfg.Versioning.Git || !gitops.IsRepo(p.dir) {
		return
	}
	msg := action
	if details != "" {
		msg += ": " + details
	}
	author := gitops.Author{Name: actor(p.cfg), Email: p.cfg.Versioning.Email}
	hash, err := gitops.CommitAll(ctx, p.dir, msg, author)
	if err != nil {
		p.log.Warn().Err(err).Str("action", action).Msg("committing to git")
		return
	}
	p.log.Debug().Str("commit", hash).Str("action", action).Msg("committed")
}

func (p *project) money(d decimal.Decimal) string {
	return money.Format(d, p.cfg.Profile.Currency)
}

func (p *project) date(t time.Time) string {
	return calendar.FormatDate(t, p.cfg.Profile.DateFormat)
}

// withProject adapts fn into a RunE that opens and closes the project.
func withProject(opts *options, fn func(ctx context.Context, cmd *cobra.Command, p *project, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		p, err := openProject(ctx, cmd, opts)
		if err != nil {
			return err
		}
		defer p.Close()

		return fn(logger.WithContext(ctx, p.log), cmd, p, args)
	}
}

func newTable(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
}

// parseMonth reads YYYY-MM, defaulting to the current month.
func parseMonth(s string) (calendar.Period, error) {
	if s == "" {
		return calendar.PeriodOf(now()), nil
	}
	return calendar.ParsePeriod(s)
}

func parseOrigin(s string) (model.Origin, error) {
	o := model.Origin(s)
	if !o.Valid() {
		return "", fmt.Errorf("unknown origin %q (want personal or business)", s)
	}
	return o, nil
}

func newID(p *project, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return p.ids.NewID()
}
