package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Scenario is a scripted run against a fresh in-memory ledger.
type Scenario struct {
	Pool    PoolSpec     `mapstructure:"pool"`
	Mints   MintsSpec    `mapstructure:"mints"`
	Wallets []WalletSpec `mapstructure:"wallets"`
	Steps   []StepSpec   `mapstructure:"steps"`
}

type PoolSpec struct {
	Seed uint64 `mapstructure:"seed"`
	Fee  uint16 `mapstructure:"fee"`
	// Authority names a wallet; empty leaves the pool without one.
	Authority string `mapstructure:"authority"`
}

type MintsSpec struct {
	DecimalsX uint8 `mapstructure:"decimals_x"`
	DecimalsY uint8 `mapstructure:"decimals_y"`
}

// WalletSpec is a named wallet funded with X and Y before the first step.
type WalletSpec struct {
	Name string `mapstructure:"name"`
	X    uint64 `mapstructure:"x"`
	Y    uint64 `mapstructure:"y"`
}

// StepSpec is one operation. Which amount fields apply depends on Op.
type StepSpec struct {
	Op     string `mapstructure:"op"`
	Wallet string `mapstructure:"wallet"`
	Amount uint64 `mapstructure:"amount"`
	MaxX   uint64 `mapstructure:"max_x"`
	MaxY   uint64 `mapstructure:"max_y"`
	MinX   uint64 `mapstructure:"min_x"`
	MinY   uint64 `mapstructure:"min_y"`
	IsX    bool   `mapstructure:"is_x"`
	Min    uint64 `mapstructure:"min"`
	// ExpectCode, when set, is the error code the step must fail with.
	ExpectCode uint32 `mapstructure:"expect_code"`
}

var knownOps = map[string]bool{
	"deposit":  true,
	"withdraw": true,
	"swap":     true,
	"lock":     true,
	"unlock":   true,
}

// LoadScenario reads a YAML, JSON or TOML scenario file.
func LoadScenario(path string) (Scenario, error) {
	if path == "" {
		return Scenario{}, fmt.Errorf("scenario path is required")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("mints.decimals_x", 6)
	v.SetDefault("mints.decimals_y", 6)
	if err := v.ReadInConfig(); err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := v.Unmarshal(&s); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

func (s Scenario) validate() error {
	wallets := make(map[string]bool, len(s.Wallets))
	for _, w := range s.Wallets {
		if w.Name == "" {
			return fmt.Errorf("wallet without a name")
		}
		if wallets[w.Name] {
			return fmt.Errorf("duplicate wallet %q", w.Name)
		}
		wallets[w.Name] = true
	}
	if s.Pool.Authority != "" && !wallets[s.Pool.Authority] {
		return fmt.Errorf("pool authority %q is not a wallet", s.Pool.Authority)
	}
	for i, step := range s.Steps {
		if !knownOps[step.Op] {
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}
		if !wallets[step.Wallet] {
			return fmt.Errorf("step %d: unknown wallet %q", i, step.Wallet)
		}
	}
	return nil
}
