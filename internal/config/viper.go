// Package config provides Viper-based hierarchical configuration management
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"fjacquet/travel-ledger/internal/aggregate"
	"fjacquet/travel-ledger/internal/canonical"
	"fjacquet/travel-ledger/internal/pipeline"
	"fjacquet/travel-ledger/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by the configuration.
const EnvPrefix = "LEDGER"

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// CSVConfig configures reading raw exports and writing CSV tables.
type CSVConfig struct {
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
}

// ColumnsConfig maps the canonical fields onto the raw export headers.
type ColumnsConfig struct {
	Date     string `mapstructure:"date" yaml:"date"`
	Amount   string `mapstructure:"amount" yaml:"amount"`
	Category string `mapstructure:"category" yaml:"category"`
	Country  string `mapstructure:"country" yaml:"country"`
}

// CanonicalConfig tunes row cleaning.
type CanonicalConfig struct {
	ExcludedCategory string `mapstructure:"excluded_category" yaml:"excluded_category"`
	DecimalComma     bool   `mapstructure:"decimal_comma" yaml:"decimal_comma"`
}

// AggregatesConfig selects the aggregate sheets and their exclusions.
type AggregatesConfig struct {
	Enabled                 []string `mapstructure:"enabled" yaml:"enabled"`
	BudgetExcludedCountries []string `mapstructure:"budget_excluded_countries" yaml:"budget_excluded_countries"`
	CountryCategoryExcluded []string `mapstructure:"country_category_excluded" yaml:"country_category_excluded"`
	TotalBudget             float64  `mapstructure:"total_budget" yaml:"total_budget"`
}

// PipelineConfig sizes the aggregation worker pool.
type PipelineConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// SheetsConfig points at the target spreadsheet.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id" yaml:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json" yaml:"-"` // Never serialize credentials
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Type   string       `mapstructure:"type" yaml:"type"`
	Sheets SheetsConfig `mapstructure:"sheets" yaml:"sheets"`
	CSV    struct {
		Directory string `mapstructure:"directory" yaml:"directory"`
	} `mapstructure:"csv" yaml:"csv"`
	SQL struct {
		DSN string `mapstructure:"dsn" yaml:"dsn"`
	} `mapstructure:"sql" yaml:"sql"`
}

// Config represents the complete application configuration
type Config struct {
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	CSV        CSVConfig        `mapstructure:"csv" yaml:"csv"`
	Columns    ColumnsConfig    `mapstructure:"columns" yaml:"columns"`
	Canonical  CanonicalConfig  `mapstructure:"canonical" yaml:"canonical"`
	Aggregates AggregatesConfig `mapstructure:"aggregates" yaml:"aggregates"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline" yaml:"pipeline"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
}

// New returns a Viper instance with defaults, search paths and environment
// bindings in place. Callers may bind command-line flags on it before Load.
func New() *viper.Viper {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.travel-ledger")
	v.AddConfigPath(".travel-ledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The spreadsheet id is commonly exported without prefix.
	_ = v.BindEnv("store.sheets.spreadsheet_id", EnvPrefix+"_STORE_SHEETS_SPREADSHEET_ID", "GOOGLE_SHEET_ID")

	return v
}

// Load reads the configuration file, if any, and returns the validated
// configuration. An explicit configFile must exist; otherwise a missing
// config.yaml in the search paths is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// InitializeConfig loads the configuration from the default locations.
func InitializeConfig() (*Config, error) {
	return Load(New(), "")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	def := aggregate.DefaultOptions()
	cols := canonical.DefaultColumns()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("csv.delimiter", ",")

	v.SetDefault("columns.date", cols.Date)
	v.SetDefault("columns.amount", cols.Amount)
	v.SetDefault("columns.category", cols.Category)
	v.SetDefault("columns.country", cols.Country)

	v.SetDefault("canonical.excluded_category", canonical.DefaultExcludedCategory)
	v.SetDefault("canonical.decimal_comma", false)

	v.SetDefault("aggregates.enabled", []string{})
	v.SetDefault("aggregates.budget_excluded_countries", def.BudgetExcludedCountries)
	v.SetDefault("aggregates.country_category_excluded", def.CountryCategoryExcluded)
	v.SetDefault("aggregates.total_budget", def.TotalBudget.InexactFloat64())

	v.SetDefault("pipeline.workers", pipeline.DefaultWorkers)

	v.SetDefault("store.type", store.TypeCSV)
	v.SetDefault("store.sheets.spreadsheet_id", "")
	v.SetDefault("store.sheets.credentials_file", "")
	v.SetDefault("store.sheets.credentials_json", "")
	v.SetDefault("store.csv.directory", "output")
	v.SetDefault("store.sql.dsn", "")
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if utf8.RuneCountInString(config.CSV.Delimiter) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %q", config.CSV.Delimiter)
	}

	if config.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1, got: %d", config.Pipeline.Workers)
	}

	if config.Aggregates.TotalBudget < 0 {
		return fmt.Errorf("aggregates.total_budget must not be negative, got: %v", config.Aggregates.TotalBudget)
	}

	if _, err := aggregate.Select(config.Aggregates.Enabled); err != nil {
		return fmt.Errorf("aggregates.enabled: %w", err)
	}

	return validateStore(&config.Store)
}

func validateStore(s *StoreConfig) error {
	switch s.Type {
	case store.TypeSheets:
		if strings.TrimSpace(s.Sheets.SpreadsheetID) == "" {
			return fmt.Errorf("store.sheets.spreadsheet_id (or GOOGLE_SHEET_ID) required for the sheets store")
		}
	case store.TypeCSV:
		if strings.TrimSpace(s.CSV.Directory) == "" {
			return fmt.Errorf("store.csv.directory required for the csv store")
		}
	case store.TypeSQLite, store.TypePostgres:
		if strings.TrimSpace(s.SQL.DSN) == "" {
			return fmt.Errorf("store.sql.dsn required for the %s store", s.Type)
		}
	case store.TypeMemory:
	default:
		return fmt.Errorf("invalid store type: %s (must be one of %s)", s.Type, strings.Join(store.Types(), ", "))
	}
	return nil
}

// Delimiter returns the CSV delimiter as a rune.
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSV.Delimiter)
	return r
}

// CanonicalOptions converts the column and cleaning settings.
func (c *Config) CanonicalOptions() canonical.Options {
	return canonical.Options{
		Columns: canonical.ColumnMapping{
			Date:     c.Columns.Date,
			Amount:   c.Columns.Amount,
			Category: c.Columns.Category,
			Country:  c.Columns.Country,
		},
		ExcludedCategory: c.Canonical.ExcludedCategory,
		DecimalComma:     c.Canonical.DecimalComma,
	}
}

// AggregateOptions converts the exclusions and budget.
func (c *Config) AggregateOptions() aggregate.Options {
	return aggregate.Options{
		BudgetExcludedCountries: c.Aggregates.BudgetExcludedCountries,
		CountryCategoryExcluded: c.Aggregates.CountryCategoryExcluded,
		TotalBudget:             decimal.NewFromFloat(c.Aggregates.TotalBudget),
	}
}

// PipelineOptions assembles everything a pipeline needs.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Canonical:  c.CanonicalOptions(),
		Aggregates: c.AggregateOptions(),
		Enabled:    c.Aggregates.Enabled,
		Workers:    c.Pipeline.Workers,
	}
}

// YAML renders the effective configuration. Credentials are left out and
// passwords in the SQL DSN are masked.
func (c *Config) YAML() ([]byte, error) {
	out := *c
	out.Store.SQL.DSN = redactDSN(c.Store.SQL.DSN)
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); !ok {
		return dsn
	}
	return u.Redacted()
}
