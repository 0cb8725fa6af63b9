package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/krazyTry/cpamm-go/amm/shared"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	LogLevel        string
	PrecisionDigits uint8
	BootstrapPolicy shared.BootstrapPolicy
	ProgramID       string
	EventsOut       string
	PGDSN           string
	Scenario        string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CPAMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("precision", shared.DefaultPrecisionDigits)
	v.SetDefault("bootstrap", shared.BootstrapGeometricMean.String())

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("cpamm")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	precision := v.GetUint("precision")
	if precision > shared.MaxPrecisionDigits {
		return Config{}, fmt.Errorf("precision %d: %w", precision, shared.ErrInvalidPrecision)
	}
	policy, ok := shared.ParseBootstrapPolicy(v.GetString("bootstrap"))
	if !ok {
		return Config{}, fmt.Errorf("unknown bootstrap policy %q", v.GetString("bootstrap"))
	}

	cfg := Config{
		LogLevel:        v.GetString("log-level"),
		PrecisionDigits: uint8(precision),
		BootstrapPolicy: policy,
		ProgramID:       v.GetString("program-id"),
		EventsOut:       v.GetString("events-out"),
		PGDSN:           v.GetString("pg-dsn"),
		Scenario:        v.GetString("scenario"),
	}

	return cfg, nil
}
