package config

import (
	"testing"

	"github.com/vitebski/mysql-table-syncer/pkg/models"
)

func TestSelectStrategySingleFlag(t *testing.T) {
	tests := []struct {
		name        string
		byTimestamp bool
		byRowCount  bool
		byChecksum  bool
		want        models.Strategy
	}{
		{"timestamp", true, false, false, models.ByTimestamp},
		{"rowcount", false, true, false, models.ByRowCount},
		{"checksum", false, false, true, models.ByChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectStrategy(tt.byTimestamp, tt.byRowCount, tt.byChecksum, "")
			if err != nil {
				t.Fatalf("SelectStrategy returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected strategy %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSelectStrategyMutuallyExclusive(t *testing.T) {
	combos := [][3]bool{
		{true, true, false},
		{true, false, true},
		{false, true, true},
		{true, true, true},
	}

	for _, combo := range combos {
		_, err := SelectStrategy(combo[0], combo[1], combo[2], "")
		if err == nil {
			t.Errorf("Expected error for combination %v, got nil", combo)
			continue
		}
		if models.KindOf(err) != models.ConfigError {
			t.Errorf("Expected ConfigError for combination %v, got %s", combo, models.KindOf(err))
		}
	}
}

func TestSelectStrategyNoneConfigured(t *testing.T) {
	_, err := SelectStrategy(false, false, false, "")
	if err == nil {
		t.Fatal("Expected error when no strategy is configured, got nil")
	}
	if models.KindOf(err) != models.ConfigError {
		t.Errorf("Expected ConfigError, got %s", models.KindOf(err))
	}
}

func TestSelectStrategyFallback(t *testing.T) {
	got, err := SelectStrategy(false, false, false, "checksum")
	if err != nil {
		t.Fatalf("SelectStrategy returned error: %v", err)
	}
	if got != models.ByChecksum {
		t.Errorf("Expected checksum from fallback, got %s", got)
	}

	if _, err := SelectStrategy(false, false, false, "magic"); err == nil {
		t.Error("Expected error for unknown fallback strategy, got nil")
	}

	// A flag wins over the fallback.
	got, err = SelectStrategy(true, false, false, "checksum")
	if err != nil {
		t.Fatalf("SelectStrategy returned error: %v", err)
	}
	if got != models.ByTimestamp {
		t.Errorf("Expected flag to win over fallback, got %s", got)
	}
}

func validConfig() *Config {
	return &Config{
		Source:   Endpoint{Host: "src.internal", Port: "3306", User: "syncer", Schema: "shop"},
		Target:   Endpoint{Host: "dst.internal", Port: "3306", User: "syncer", Schema: "shop"},
		Strategy: models.ByTimestamp,
		WorkDir:  "/var/lib/syncer",
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing source host", func(c *Config) { c.Source.Host = "" }},
		{"missing source user", func(c *Config) { c.Source.User = "" }},
		{"missing source schema", func(c *Config) { c.Source.Schema = "" }},
		{"bad source port", func(c *Config) { c.Source.Port = "abc" }},
		{"missing target host", func(c *Config) { c.Target.Host = "" }},
		{"missing target schema", func(c *Config) { c.Target.Schema = "" }},
		{"unset strategy", func(c *Config) { c.Strategy = models.StrategyUnset }},
		{"missing workdir", func(c *Config) { c.WorkDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if models.KindOf(err) != models.ConfigError {
				t.Errorf("Expected ConfigError, got %s", models.KindOf(err))
			}
		})
	}
}
