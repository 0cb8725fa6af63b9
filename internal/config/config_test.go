package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/krazyTry/cpamm-go/amm/shared"
)

func TestLoadDefaults(t *testing.T) {
	chdirForTest(t, t.TempDir())
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.PrecisionDigits != shared.DefaultPrecisionDigits || cfg.BootstrapPolicy != shared.BootstrapGeometricMean {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "cpamm.yaml")
	content := "log-level: warn\nprecision: 4\nbootstrap: requested\nevents-out: file.jsonl\n"
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CPAMM_EVENTS_OUT", "env.jsonl")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	if err := flags.Parse([]string{"--log-level=debug"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := Load(cfgFile, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("flag should win, got %s", cfg.LogLevel)
	}
	if cfg.EventsOut != "env.jsonl" {
		t.Fatalf("env should beat file, got %s", cfg.EventsOut)
	}
	if cfg.PrecisionDigits != 4 || cfg.BootstrapPolicy != shared.BootstrapRequested {
		t.Fatalf("file values lost: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdirForTest(t, t.TempDir())
	t.Setenv("CPAMM_PRECISION", "19")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected precision error")
	}
	t.Setenv("CPAMM_PRECISION", "6")
	t.Setenv("CPAMM_BOOTSTRAP", "median")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected bootstrap error")
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	content := `
pool:
  seed: 7
  fee: 30
  authority: admin
wallets:
  - name: admin
  - name: alice
    x: 1000
    y: 2000
steps:
  - op: deposit
    wallet: alice
    amount: 1000
    max_x: 1000
    max_y: 2000
  - op: lock
    wallet: alice
    expect_code: 6006
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Pool.Seed != 7 || s.Pool.Fee != 30 || s.Mints.DecimalsX != 6 {
		t.Fatalf("pool: %+v mints: %+v", s.Pool, s.Mints)
	}
	if len(s.Steps) != 2 || s.Steps[0].MaxY != 2000 || s.Steps[1].ExpectCode != 6006 {
		t.Fatalf("steps: %+v", s.Steps)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("steps:\n  - op: burn\n    wallet: x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadScenario(bad); err == nil {
		t.Fatalf("expected validation error")
	}
}
