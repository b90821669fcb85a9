package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fincontrol-dev/fincontrol/internal/calendar"
)

// FileName is the config file name inside a project directory.
const FileName = "fincontrol.yaml"

// Storage drivers.
const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the top-level fincontrol.yaml configuration.
type Config struct {
	Profile      ProfileConfig      `yaml:"profile"`
	Storage      StorageConfig      `yaml:"storage"`
	Installments InstallmentsConfig `yaml:"installments"`
	Log          LogConfig          `yaml:"log"`
	Audit        AuditConfig        `yaml:"audit"`
	Versioning   VersioningConfig   `yaml:"versioning"`
}

// ProfileConfig holds display preferences.
type ProfileConfig struct {
	Name       string `yaml:"name"`
	Currency   string `yaml:"currency"`
	DateFormat string `yaml:"date_format"` // dd/mm/yyyy, mm/dd/yyyy or yyyy-mm-dd
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"` // csv directory or sqlite file, relative to the project
	DSN    string `yaml:"dsn,omitempty"`
}

// InstallmentsConfig controls installment due dates.
type InstallmentsConfig struct {
	DatePolicy string `yaml:"date_policy"` // overflow or clamp
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// AuditConfig controls the audit log.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

// VersioningConfig controls committing the project directory to git after
// every change. Only meaningful for file-backed drivers.
type VersioningConfig struct {
	Git   bool   `yaml:"git"`
	Email string `yaml:"email,omitempty"`
}

// Load reads a fincontrol.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(name, currency string) *Config {
	if currency == "" {
		currency = "BRL"
	}
	return &Config{
		Profile: ProfileConfig{
			Name:       name,
			Currency:   currency,
			DateFormat: "dd/mm/yyyy",
		},
		Storage: StorageConfig{
			Driver: DriverCSV,
			Path:   "data",
		},
		Installments: InstallmentsConfig{
			DatePolicy: string(calendar.Overflow),
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Audit: AuditConfig{
			Enabled: true,
		},
	}
}

// Overrides are environment variables that take precedence over the file.
type Overrides struct {
	StorageDriver string `env:"FINCONTROL_STORAGE_DRIVER"`
	StoragePath   string `env:"FINCONTROL_STORAGE_PATH"`
	StorageDSN    string `env:"FINCONTROL_STORAGE_DSN"`
	DatePolicy    string `env:"FINCONTROL_DATE_POLICY"`
	LogLevel      string `env:"FINCONTROL_LOG_LEVEL"`
}

// ApplyEnv loads dotenvPath into the environment when the file exists, then
// copies any set FINCONTROL_* variables into cfg.
func ApplyEnv(cfg *Config, dotenvPath string) error {
	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			if err := godotenv.Load(dotenvPath); err != nil {
				return fmt.Errorf("loading %s: %w", dotenvPath, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", dotenvPath, err)
		}
	}

	var o Overrides
	if _, err := env.UnmarshalFromEnviron(&o); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	if o.StorageDriver != "" {
		cfg.Storage.Driver = o.StorageDriver
	}
	if o.StoragePath != "" {
		cfg.Storage.Path = o.StoragePath
	}
	if o.StorageDSN != "" {
		cfg.Storage.DSN = o.StorageDSN
	}
	if o.DatePolicy != "" {
		cfg.Installments.DatePolicy = o.DatePolicy
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	return nil
}

// Validate checks values that cannot be caught by YAML decoding.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverCSV, DriverSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for driver %s", c.Storage.Driver))
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for driver postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if _, err := calendar.ParseMonthPolicy(c.Installments.DatePolicy); err != nil {
		errs = append(errs, fmt.Errorf("installments.date_policy: %w", err))
	}
	if c.Profile.Currency == "" {
		errs = append(errs, errors.New("profile.currency is required"))
	}
	if !calendar.ValidDateStyle(c.Profile.DateFormat) {
		errs = append(errs, fmt.Errorf("unknown profile.date_format %q", c.Profile.DateFormat))
	}
	return errors.Join(errs...)
}
