package config

import (
	"fmt"
	"strconv"

	"github.com/vitebski/mysql-table-syncer/pkg/models"
)

// Endpoint holds the connection parameters for one side of the sync.
type Endpoint struct {
	Host     string
	Port     string
	User     string
	Password string
	Schema   string
}

// Config is the explicit configuration value constructed once at startup and
// passed by reference to every component. There is no ambient global state.
type Config struct {
	Source Endpoint
	Target Endpoint

	Strategy      models.Strategy
	WorkDir       string
	KeepArtifacts bool
	DryRun        bool
	Tables        []string // optional include filter; empty means all tables
}

// SelectStrategy resolves the three mutually exclusive strategy flags plus an
// optional textual fallback (environment) into a single strategy. Zero or
// more than one selection is a configuration error, raised before any engine
// call.
func SelectStrategy(byTimestamp, byRowCount, byChecksum bool, fallback string) (models.Strategy, error) {
	selected := 0
	strategy := models.StrategyUnset

	if byTimestamp {
		selected++
		strategy = models.ByTimestamp
	}
	if byRowCount {
		selected++
		strategy = models.ByRowCount
	}
	if byChecksum {
		selected++
		strategy = models.ByChecksum
	}

	if selected > 1 {
		return models.StrategyUnset, models.NewConfigError(
			fmt.Errorf("divergence strategies are mutually exclusive: choose exactly one of --timestamp, --rowcount, --checksum"))
	}
	if selected == 1 {
		return strategy, nil
	}

	switch fallback {
	case "":
		return models.StrategyUnset, models.NewConfigError(
			fmt.Errorf("no divergence strategy configured: choose one of --timestamp, --rowcount, --checksum"))
	case "timestamp":
		return models.ByTimestamp, nil
	case "rowcount":
		return models.ByRowCount, nil
	case "checksum":
		return models.ByChecksum, nil
	default:
		return models.StrategyUnset, models.NewConfigError(
			fmt.Errorf("unknown divergence strategy %q: choose one of timestamp, rowcount, checksum", fallback))
	}
}

// Validate checks required identifiers and value sanity. It runs before any
// engine call; a failure means the run never starts.
func (c *Config) Validate() error {
	if err := c.Source.validate("source"); err != nil {
		return err
	}
	if err := c.Target.validate("target"); err != nil {
		return err
	}
	if c.Strategy == models.StrategyUnset {
		return models.NewConfigError(fmt.Errorf("no divergence strategy configured"))
	}
	if c.WorkDir == "" {
		return models.NewConfigError(fmt.Errorf("working directory is required"))
	}
	return nil
}

func (e Endpoint) validate(label string) error {
	if e.Host == "" {
		return models.NewConfigError(fmt.Errorf("%s host is required", label))
	}
	if e.User == "" {
		return models.NewConfigError(fmt.Errorf("%s user is required", label))
	}
	if e.Schema == "" {
		return models.NewConfigError(fmt.Errorf("%s schema is required", label))
	}
	if _, err := strconv.Atoi(e.Port); err != nil {
		return models.NewConfigError(fmt.Errorf("invalid %s port %q", label, e.Port))
	}
	return nil
}
