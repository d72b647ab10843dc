package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file written by init.
const FileName = "stmtqbo.yaml"

// EnvPrefix prefixes environment overrides, e.g. STMTQBO_BANK_ACCOUNT_ID.
const EnvPrefix = "STMTQBO"

// Config represents the top-level stmtqbo.yaml configuration.
type Config struct {
	Institution InstitutionConfig `yaml:"institution" mapstructure:"institution"`
	Bank        BankConfig        `yaml:"bank" mapstructure:"bank"`
	Parsing     ParsingConfig     `yaml:"parsing" mapstructure:"parsing"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Git         GitConfig         `yaml:"git" mapstructure:"git"`
}

// InstitutionConfig identifies the financial institution in the sign-on block.
type InstitutionConfig struct {
	Org       string `yaml:"org" mapstructure:"org"`
	FID       string `yaml:"fid" mapstructure:"fid"`
	ProductID string `yaml:"product_id" mapstructure:"product_id"` // INTU.BID
}

// BankConfig is the default account written into bank ledgers.
type BankConfig struct {
	RoutingID   string `yaml:"routing_id" mapstructure:"routing_id"`
	AccountID   string `yaml:"account_id" mapstructure:"account_id"`
	AccountType string `yaml:"account_type" mapstructure:"account_type"` // CHECKING, SAVINGS, ...
}

// ParsingConfig tunes row extraction.
type ParsingConfig struct {
	// AssumedYear completes month/day dates. Zero means the current year.
	AssumedYear int `yaml:"assumed_year" mapstructure:"assumed_year"`
	// MaxAmount rejects larger absolute amounts. Zero disables the guard.
	MaxAmount float64 `yaml:"max_amount" mapstructure:"max_amount"`
	// MinReferenceDigits rejects bare digit runs at least this long. Zero
	// disables the guard.
	MinReferenceDigits    int    `yaml:"min_reference_digits" mapstructure:"min_reference_digits"`
	DebitCreditPrecedence string `yaml:"debit_credit_precedence" mapstructure:"debit_credit_precedence"`
}

// OutputConfig controls where artifacts are written.
type OutputConfig struct {
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	SourceKey string `yaml:"source_key" mapstructure:"source_key"` // used when a job names no source document
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// GitConfig controls committing outputs to the project repository.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit" mapstructure:"auto_commit"`
	AuthorName  string `yaml:"author_name" mapstructure:"author_name"`
	AuthorEmail string `yaml:"author_email" mapstructure:"author_email"`
}

// MaxAmountDecimal returns the amount guard as a decimal.
func (p ParsingConfig) MaxAmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(p.MaxAmount)
}

// Validate checks values that later stages cannot recover from.
func (c *Config) Validate() error {
	switch c.Parsing.DebitCreditPrecedence {
	case "debit", "credit":
	default:
		return fmt.Errorf("parsing.debit_credit_precedence must be debit or credit, got %q", c.Parsing.DebitCreditPrecedence)
	}
	if c.Parsing.AssumedYear < 0 || c.Parsing.AssumedYear > 9999 {
		return fmt.Errorf("parsing.assumed_year out of range: %d", c.Parsing.AssumedYear)
	}
	if c.Parsing.MaxAmount < 0 {
		return fmt.Errorf("parsing.max_amount must not be negative")
	}
	return nil
}

// Load reads a stmtqbo.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
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

// Default returns a Config with the stock institution and account values.
func Default() *Config {
	return &Config{
		Institution: InstitutionConfig{
			Org:       "CHASE BANK",
			FID:       "00000",
			ProductID: "2430",
		},
		Bank: BankConfig{
			RoutingID:   "123456",
			AccountID:   "000000000",
			AccountType: "CHECKING",
		},
		Parsing: ParsingConfig{
			MaxAmount:             1000000,
			MinReferenceDigits:    10,
			DebitCreditPrecedence: "debit",
		},
		Output: OutputConfig{
			Prefix:    "parsed/",
			SourceKey: "incoming/unknown.pdf",
		},
		Log: LogConfig{
			Level: "info",
		},
		Git: GitConfig{
			AuthorName:  "stmtqbo",
			AuthorEmail: "stmtqbo@localhost",
		},
	}
}

// FlagKeys maps command-line flag names to the config keys they override.
var FlagKeys = map[string]string{
	"log-level":  "log.level",
	"prefix":     "output.prefix",
	"year":       "parsing.assumed_year",
	"precedence": "parsing.debit_credit_precedence",
}

// Build layers defaults, the YAML file at path (skipped when empty), STMTQBO_*
// environment variables and any changed flags in FlagKeys, in increasing
// priority.
func Build(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so environment variables are seen by
// Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("institution.org", d.Institution.Org)
	v.SetDefault("institution.fid", d.Institution.FID)
	v.SetDefault("institution.product_id", d.Institution.ProductID)
	v.SetDefault("bank.routing_id", d.Bank.RoutingID)
	v.SetDefault("bank.account_id", d.Bank.AccountID)
	v.SetDefault("bank.account_type", d.Bank.AccountType)
	v.SetDefault("parsing.assumed_year", d.Parsing.AssumedYear)
	v.SetDefault("parsing.max_amount", d.Parsing.MaxAmount)
	v.SetDefault("parsing.min_reference_digits", d.Parsing.MinReferenceDigits)
	v.SetDefault("parsing.debit_credit_precedence", d.Parsing.DebitCreditPrecedence)
	v.SetDefault("output.prefix", d.Output.Prefix)
	v.SetDefault("output.source_key", d.Output.SourceKey)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("git.auto_commit", d.Git.AutoCommit)
	v.SetDefault("git.author_name", d.Git.AuthorName)
	v.SetDefault("git.author_email", d.Git.AuthorEmail)
}
