package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.TokenCode != "hirevibeshvt" || cfg.SelfAccount != "hvtstaking" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DailyRewardBudget != "30136.0000 HVT" {
		t.Fatalf("budget = %q", cfg.DailyRewardBudget)
	}
	if cfg.RefundDelaySeconds != 259200 {
		t.Fatalf("refund delay = %d", cfg.RefundDelaySeconds)
	}
}

func TestLoadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
ListenAddress = ":9000"
DataDir = "/tmp/hvstaking"
TokenCode = "customtoken"
SelfAccount = "custodian"
DailyRewardBudget = "100.0000 HVT"
RefundDelaySeconds = 60
ExcludedAccounts = ["treasury", "ops"]

[GenesisBalances]
alice = "10.0000 HVT"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddress != ":9000" || cfg.TokenCode != "customtoken" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.ExcludedAccounts) != 2 {
		t.Fatalf("excluded = %v", cfg.ExcludedAccounts)
	}
	if cfg.GenesisBalances["alice"] != "10.0000 HVT" {
		t.Fatalf("genesis = %v", cfg.GenesisBalances)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config { return defaultConfig() }

	cfg := base()
	cfg.DailyRewardBudget = "not money"
	if err := cfg.Validate(); err == nil {
		t.Fatal("bad budget should fail validation")
	}

	cfg = base()
	cfg.RefundDelaySeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero refund delay should fail validation")
	}

	cfg = base()
	cfg.SelfAccount = " "
	if err := cfg.Validate(); err == nil {
		t.Fatal("blank self account should fail validation")
	}

	cfg = base()
	cfg.GenesisBalances = map[string]string{"alice": "oops"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("bad genesis balance should fail validation")
	}
}

func TestStakingParams(t *testing.T) {
	cfg := defaultConfig()
	cfg.ExcludedAccounts = []string{"treasury"}
	params, err := cfg.StakingParams()
	if err != nil {
		t.Fatal(err)
	}
	if params.TokenCode != "hirevibeshvt" || params.SelfAccount != "hvtstaking" {
		t.Fatalf("params = %+v", params)
	}
	if params.RefundDelay != 72*time.Hour {
		t.Fatalf("refund delay = %s", params.RefundDelay)
	}
	if !params.IsExcluded("treasury") {
		t.Fatal("treasury should be excluded")
	}
	if params.IsExcluded("alice") {
		t.Fatal("alice should not be excluded")
	}
}
