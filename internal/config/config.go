package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Decimal wraps decimal.Decimal so YAML threshold values parse exactly
// instead of round-tripping through float64.
type Decimal struct {
	decimal.Decimal
}

func (d *Decimal) UnmarshalYAML(node *yaml.Node) error {
	v, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", node.Value, err)
	}
	d.Decimal = v
	return nil
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Scheduler struct {
		Cron    string `yaml:"cron"`    // empty disables the in-process scheduler
		Execute bool   `yaml:"execute"` // false schedules dry runs only
	} `yaml:"scheduler"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Accounts []AccountConfig `yaml:"accounts"`
}

// AccountConfig is one exchange account with its lending strategy settings.
type AccountConfig struct {
	Name   string `yaml:"name"`
	Active bool   `yaml:"active"`

	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	APISecret     string `yaml:"api_secret"`
	APIPassphrase string `yaml:"api_passphrase"`

	Currency               string  `yaml:"currency"`
	LendingPrecision       int32   `yaml:"lending_decimal_places"`
	EarningReportPrecision int32   `yaml:"earning_report_decimal_places"`
	MinimumLendingSize     Decimal `yaml:"minimum_lending_size"`
	LendingFeeRate         Decimal `yaml:"lending_fee_rate"` // percent
	ReservedBalance        Decimal `yaml:"reserved_balance"`

	Strategy StepStrategyConfig `yaml:"strategy"`
}

// StepStrategyConfig holds the step strategy thresholds. All rates are daily
// percentages.
type StepStrategyConfig struct {
	MinLendingSizeRatio Decimal `yaml:"minimum_lending_size_ratio"`
	MaxLendingSizeRatio Decimal `yaml:"maximum_lending_size_ratio"`

	MinDailyRate    Decimal `yaml:"minimum_daily_interest_rate"`
	Min40pDailyRate Decimal `yaml:"40p_minimum_daily_interest_rate"`
	Min60pDailyRate Decimal `yaml:"60p_minimum_daily_interest_rate"`
	Min80pDailyRate Decimal `yaml:"80p_minimum_daily_interest_rate"`

	BigPlayerSizeThreshold Decimal `yaml:"big_player_size_threshold"`

	HappyDailyRate               Decimal `yaml:"happy_daily_interest_rate"`
	HappyCumulativeSizeThreshold Decimal `yaml:"happy_cumulative_size_threshold"`

	Term14DailyRate Decimal `yaml:"term_14_daily_interest_rate"`
	Term28DailyRate Decimal `yaml:"term_28_daily_interest_rate"`
}

// Load reads and validates the YAML config. Inconsistent strategy settings
// are clamped, never fatal; each clamp is reported as a warning.
func Load(path string) (*Config, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, nil, fmt.Errorf("parse config: %w", err)
	}

	warnings, err := cfg.validate()
	if err != nil {
		return nil, nil, err
	}
	return &cfg, warnings, nil
}

func (c *Config) validate() ([]string, error) {
	var warnings []string
	for i := range c.Accounts {
		acct := &c.Accounts[i]
		if !acct.Active {
			continue
		}
		if acct.Name == "" {
			return nil, fmt.Errorf("account %d: name is required", i)
		}
		if acct.Currency == "" {
			return nil, fmt.Errorf("account %s: currency is required", acct.Name)
		}

		s := &acct.Strategy
		if s.MaxLendingSizeRatio.LessThan(s.MinLendingSizeRatio.Decimal) {
			warnings = append(warnings, fmt.Sprintf(
				"%s: MaxLendingSizeRatio=[%s] is lower than MinLendingSizeRatio=[%s]. Will use MinLendingSizeRatio instead.",
				acct.Name, s.MaxLendingSizeRatio, s.MinLendingSizeRatio))
			s.MaxLendingSizeRatio = s.MinLendingSizeRatio
		}
		if s.HappyDailyRate.LessThan(s.MinDailyRate.Decimal) {
			warnings = append(warnings, fmt.Sprintf(
				"%s: HappyDailyInterestRate=[%s%%] is lower than MinDailyInterestRate=[%s%%]. Will use MinDailyInterestRate instead.",
				acct.Name, s.HappyDailyRate, s.MinDailyRate))
			s.HappyDailyRate = s.MinDailyRate
		}
	}
	return warnings, nil
}
