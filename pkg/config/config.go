// Package config loads the account registry: which accounts exist, where
// their statements live and which statement format each one uses.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"

	"github.com/yurifrl/ledgerline/pkg/models"
)

// Statement formats understood by the parser.
const (
	FormatAppleCard       = "apple_card"
	FormatChaseChecking   = "chase_checking"
	FormatChaseSapphire   = "chase_sapphire"
	FormatDiscoverCard    = "discover_card"
	FormatDiscoverSavings = "discover_savings"
	FormatPNC             = "pnc"
	FormatSoFi            = "sofi"
)

// Formats lists every supported format.
var Formats = []string{
	FormatAppleCard,
	FormatChaseChecking,
	FormatChaseSapphire,
	FormatDiscoverCard,
	FormatDiscoverSavings,
	FormatPNC,
	FormatSoFi,
}

const (
	// EnvPrefix prefixes every environment override, e.g. LEDGERLINE_ROOT.
	EnvPrefix = "ledgerline"
	// FileName is the registry file name searched for when no path is given.
	FileName = "ledgerline"
	// OpenDateLayout is the layout of Account.OpenDate.
	OpenDateLayout = "01/2006"
	// OpenedOnLayout is the layout of Account.OpenedOn.
	OpenedOnLayout = "2006-01-02"
)

// CSVSpec describes the columns of an institution's bulk CSV export.
type CSVSpec struct {
	// DateColumns are tried in order; the first one present is used.
	DateColumns       []string `mapstructure:"date_columns" yaml:"date_columns,omitempty"`
	DateLayout        string   `mapstructure:"date_layout" yaml:"date_layout,omitempty"`
	AmountColumn      string   `mapstructure:"amount_column" yaml:"amount_column,omitempty"`
	DescriptionColumn string   `mapstructure:"description_column" yaml:"description_column,omitempty"`
	CategoryColumn    string   `mapstructure:"category_column" yaml:"category_column,omitempty"`
	Negate            bool     `mapstructure:"negate" yaml:"negate,omitempty"`
}

// Account is one registry entry.
type Account struct {
	ID          string                `mapstructure:"id" yaml:"id"`
	Number      string                `mapstructure:"number" yaml:"number"`
	Institution string                `mapstructure:"institution" yaml:"institution,omitempty"`
	Format      string                `mapstructure:"format" yaml:"format"`
	Sign        models.SignConvention `mapstructure:"sign" yaml:"sign,omitempty"`
	Dir         string                `mapstructure:"dir" yaml:"dir,omitempty"`
	OpenDate    string                `mapstructure:"open_date" yaml:"open_date,omitempty"`
	OpenedOn    string                `mapstructure:"opened_on" yaml:"opened_on,omitempty"`
	Title       string                `mapstructure:"title" yaml:"title,omitempty"`
	Kind        string                `mapstructure:"kind" yaml:"kind,omitempty"`
	Exports     []string              `mapstructure:"exports" yaml:"exports,omitempty"`
	CSV         CSVSpec               `mapstructure:"csv" yaml:"csv,omitempty"`
}

// Name is the account label written into every transaction row.
func (a Account) Name() string {
	return a.ID
}

// Path returns the account directory under root.
func (a Account) Path(root string) string {
	dir := a.Dir
	if dir == "" {
		dir = a.ID
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// OpenMonth parses OpenDate. ok is false when no open date is configured.
func (a Account) OpenMonth() (models.YearMonth, bool, error) {
	if a.OpenDate == "" {
		return models.YearMonth{}, false, nil
	}
	t, err := time.Parse(OpenDateLayout, a.OpenDate)
	if err != nil {
		return models.YearMonth{}, false, fmt.Errorf("invalid open_date %q for %s: %w", a.OpenDate, a.ID, err)
	}
	return models.YearMonthOf(t), true, nil
}

// OpenedOnDate parses OpenedOn, the first day covered by the account's first
// statement when it does not start on the 1st.
func (a Account) OpenedOnDate() (time.Time, bool, error) {
	if a.OpenedOn == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(OpenedOnLayout, a.OpenedOn)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid opened_on %q for %s: %w", a.OpenedOn, a.ID, err)
	}
	return t, true, nil
}

// MetadataOnly reports whether the account's statements carry no rows, so
// that transactions have to come from a CSV export.
func (a Account) MetadataOnly() bool {
	switch a.Format {
	case FormatChaseChecking, FormatChaseSapphire, FormatDiscoverCard:
		return true
	}
	return false
}

// Config is the loaded registry.
type Config struct {
	Root     string    `mapstructure:"root" yaml:"root"`
	LogLevel string    `mapstructure:"log_level" yaml:"log_level,omitempty"`
	Accounts []Account `mapstructure:"accounts" yaml:"accounts"`

	file string
}

// File is the registry file the configuration was read from.
func (c *Config) File() string {
	return c.file
}

// Account finds an account by id or by number.
func (c *Config) Account(key string) (Account, error) {
	for _, a := range c.Accounts {
		if a.ID == key || a.Number == key {
			return a, nil
		}
	}
	return Account{}, fmt.Errorf("account %q is not registered", key)
}

// ByNumber finds an account by its number.
func (c *Config) ByNumber(number string) (Account, bool) {
	for _, a := range c.Accounts {
		if a.Number == number {
			return a, true
		}
	}
	return Account{}, false
}

// Peers lists the registered accounts sharing one of the given formats.
func (c *Config) Peers(formats ...string) []Account {
	var out []Account
	for _, a := range c.Accounts {
		for _, f := range formats {
			if a.Format == f {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// Select returns the accounts named by keys, or every account when keys is
// empty.
func (c *Config) Select(keys []string) ([]Account, error) {
	if len(keys) == 0 {
		return c.Accounts, nil
	}
	out := make([]Account, 0, len(keys))
	for _, k := range keys {
		a, err := c.Account(k)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// YAML renders the effective registry.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Load reads the registry. path may be empty, in which case ledgerline.yaml
// is searched for in the working directory and in ~/.config/ledgerline.
// A .env file in the working directory is loaded first; flags, when given,
// override file values for root and log level.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault("log_level", "info")

	if path != "" {
		expanded, err := ExpandHome(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(expanded)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "ledgerline"))
		}
	}

	if flags != nil {
		for key, name := range map[string]string{"root": "root", "log_level": "log-level"} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("no %s.yaml found, run `ledgerline init` or pass --config", FileName)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.file = v.ConfigFileUsed()

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes a registry from YAML bytes. It applies the same defaults and
// validation as Load without touching the environment.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() error {
	root, err := ExpandHome(c.Root)
	if err != nil {
		return err
	}
	c.Root = root

	for i := range c.Accounts {
		a := &c.Accounts[i]
		a.Format = strings.ToLower(strings.TrimSpace(a.Format))
		if a.Sign == "" {
			a.Sign = defaultSign(a.Format)
		}
		if a.ID == "" && a.Institution != "" && a.Number != "" {
			a.ID = a.Institution + "-" + a.Number
		}
		for j, pattern := range a.Exports {
			if a.Exports[j], err = ExpandHome(pattern); err != nil {
				return err
			}
		}
		a.CSV = withCSVDefaults(a.Format, a.CSV)
	}
	return nil
}

// Validate checks that every account is usable.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root is not set")
	}
	seen := map[string]bool{}
	for _, a := range c.Accounts {
		if a.ID == "" {
			return fmt.Errorf("account with number %q has no id", a.Number)
		}
		if seen[a.ID] {
			return fmt.Errorf("account %s is registered twice", a.ID)
		}
		seen[a.ID] = true
		if a.Number == "" {
			return fmt.Errorf("account %s has no number", a.ID)
		}
		if !knownFormat(a.Format) {
			return fmt.Errorf("account %s has unknown format %q (known: %s)", a.ID, a.Format, strings.Join(Formats, ", "))
		}
		if a.Sign != models.SignAsPrinted && a.Sign != models.SignNegated {
			return fmt.Errorf("account %s has unknown sign %q", a.ID, a.Sign)
		}
		if _, _, err := a.OpenMonth(); err != nil {
			return err
		}
		if _, _, err := a.OpenedOnDate(); err != nil {
			return err
		}
		if a.Format == FormatPNC && a.Title == "" {
			return fmt.Errorf("account %s: pnc accounts need a title (Spend, Reserve or Growth)", a.ID)
		}
		if a.Format == FormatSoFi && a.Kind == "" {
			return fmt.Errorf("account %s: sofi accounts need a kind (checking or savings)", a.ID)
		}
	}
	return nil
}

func knownFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// defaultSign is negated for cards whose rows print charges as positive
// numbers. Chase Sapphire and Discover card flip their own balances while
// reading them.
func defaultSign(format string) models.SignConvention {
	if format == FormatAppleCard {
		return models.SignNegated
	}
	return models.SignAsPrinted
}

func withCSVDefaults(format string, spec CSVSpec) CSVSpec {
	switch format {
	case FormatChaseChecking, FormatChaseSapphire:
		if len(spec.DateColumns) == 0 {
			spec.DateColumns = []string{"Posting Date", "Post Date", "Transaction Date"}
		}
	case FormatDiscoverCard:
		if len(spec.DateColumns) == 0 {
			spec.DateColumns = []string{"Post date", "Post Date"}
			spec.Negate = true
		}
	}
	if spec.DateLayout == "" {
		spec.DateLayout = "01/02/2006"
	}
	if spec.AmountColumn == "" {
		spec.AmountColumn = "Amount"
	}
	if spec.DescriptionColumn == "" {
		spec.DescriptionColumn = "Description"
	}
	if spec.CategoryColumn == "" {
		spec.CategoryColumn = "Category"
	}
	return spec
}

// ExpandHome resolves a leading "~/" to the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

// Starter is the registry written by `ledgerline init` when none exists.
const Starter = `root: ~/Documents/Finances/Statements/Accounts
log_level: info
accounts:
  - id: Apple-5843
    number: "5843"
    institution: Apple
    format: apple_card
    open_date: "10/2019"
  - id: Chase-2425
    number: "2425"
    institution: Chase
    format: chase_checking
    exports:
      - ~/Documents/Finances/Statements/Accounts/Chase-2425/CSV/*.CSV
  - id: Discover-4589
    number: "4589"
    institution: Discover
    format: discover_card
    exports:
      - ~/Documents/Finances/Statements/Accounts/Discover-4589/CSV/*.csv
  - id: Discover-8384
    number: "8384"
    institution: Discover
    format: discover_savings
    opened_on: "2022-10-21"
  - id: PNC-6552
    number: "6552"
    institution: PNC
    format: pnc
    title: Spend
  - id: SoFi-8365
    number: "8365"
    institution: SoFi
    format: sofi
    kind: checking
  - id: SoFi-9806
    number: "9806"
    institution: SoFi
    format: sofi
    kind: savings
    dir: SoFi-9806
`
