package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"hvstaking/native/staking"
	"hvstaking/token"
)

// Config is the daemon configuration, loaded from TOML.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Env           string `toml:"Env"`
	LogFile       string `toml:"LogFile"`

	// TokenCode is the token contract identity deposits must originate from.
	TokenCode string `toml:"TokenCode"`
	// SelfAccount is the ledger's custody account.
	SelfAccount string `toml:"SelfAccount"`
	// DailyRewardBudget is the aggregate daily emission, as an asset string.
	DailyRewardBudget string `toml:"DailyRewardBudget"`
	// RefundDelaySeconds is the mandatory unbonding delay.
	RefundDelaySeconds int64 `toml:"RefundDelaySeconds"`
	// ExcludedAccounts never stake; their deposits are ignored.
	ExcludedAccounts []string `toml:"ExcludedAccounts"`

	// GenesisBalances seeds custody balances on a fresh database,
	// account name to asset string.
	GenesisBalances map[string]string `toml:"GenesisBalances"`

	RateLimitPerMinute float64 `toml:"RateLimitPerMinute"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
}

func defaultConfig() *Config {
	return &Config{
		ListenAddress:      ":8645",
		DataDir:            "./hvstaking-data",
		TokenCode:          "hirevibeshvt",
		SelfAccount:        "hvtstaking",
		DailyRewardBudget:  token.NewCoinFromUnits(30136).String(),
		RefundDelaySeconds: int64(staking.RefundDelay / time.Second),
		ExcludedAccounts:   []string{},
		GenesisBalances:    map[string]string{},
		RateLimitPerMinute: 600,
		RateLimitBurst:     30,
	}
}

// Load reads the configuration from path, writing a commented default file
// when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := defaultConfig()
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for obvious misconfiguration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if strings.TrimSpace(c.TokenCode) == "" {
		return fmt.Errorf("config: TokenCode required")
	}
	if strings.TrimSpace(c.SelfAccount) == "" {
		return fmt.Errorf("config: SelfAccount required")
	}
	if c.RefundDelaySeconds <= 0 {
		return fmt.Errorf("config: RefundDelaySeconds must be positive")
	}
	if _, err := token.ParseCoin(c.DailyRewardBudget); err != nil {
		return fmt.Errorf("config: DailyRewardBudget: %w", err)
	}
	for name, amount := range c.GenesisBalances {
		if _, err := token.ParseCoin(amount); err != nil {
			return fmt.Errorf("config: genesis balance for %s: %w", name, err)
		}
	}
	if c.RateLimitPerMinute < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("config: rate limits must be non-negative")
	}
	return nil
}

// StakingParams converts the configuration into engine parameters.
func (c *Config) StakingParams() (staking.Params, error) {
	budget, err := token.ParseCoin(c.DailyRewardBudget)
	if err != nil {
		return staking.Params{}, err
	}
	params := staking.DefaultParams(c.TokenCode, c.SelfAccount)
	params.DailyRewardBudget = budget.Amount
	params.RefundDelay = time.Duration(c.RefundDelaySeconds) * time.Second
	params.ExcludedAccounts = append([]string(nil), c.ExcludedAccounts...)
	if err := params.Validate(); err != nil {
		return staking.Params{}, err
	}
	return params, nil
}
