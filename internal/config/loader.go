package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "LEDGERBOARD_"
	envFile   = envPrefix + "CONFIG"
)

var metricPrefix = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if LEDGERBOARD_CONFIG is set
//  3. env (prefix LEDGERBOARD_)
func Load(_ context.Context) (*Config, error) {
	cfg := *New()
	k := koanf.New(".")

	if path := os.Getenv(envFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// LEDGERBOARD_QUEUE_SIZE -> queue_size. Keys are flat, so the "."
	// delimiter never splits them.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		if s == envFile {
			return ""
		}
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TableCapacity < 1:
		return fmt.Errorf("%w: table_capacity must be at least 1", ErrInvalidConfig)
	case c.TopCount < 1:
		return fmt.Errorf("%w: top_count must be at least 1", ErrInvalidConfig)
	case c.MempoolSize < 1:
		return fmt.Errorf("%w: mempool_size must be at least 1", ErrInvalidConfig)
	case c.BlockTimeMinMS < 0 || c.BlockTimeMaxMS < c.BlockTimeMinMS:
		return fmt.Errorf("%w: block time range [%d, %d] ms", ErrInvalidConfig, c.BlockTimeMinMS, c.BlockTimeMaxMS)
	case c.MaxGameNameLength < 1:
		return fmt.Errorf("%w: max_game_name_length must be at least 1", ErrInvalidConfig)
	case c.PollIntervalMS <= 0:
		return fmt.Errorf("%w: poll_interval_ms must be positive", ErrInvalidConfig)
	case c.SettlementTimeoutMS <= 0:
		return fmt.Errorf("%w: settlement_timeout_ms must be positive", ErrInvalidConfig)
	case c.HTTPTimeoutMS <= 0 || c.RefreshTimeoutMS <= 0:
		return fmt.Errorf("%w: http and refresh timeouts must be positive", ErrInvalidConfig)
	case c.Owner != "" && !common.IsHexAddress(c.Owner):
		return fmt.Errorf("%w: owner %q is not a hex address", ErrInvalidConfig, c.Owner)
	case !metricPrefix.MatchString(c.MetricsNamespace):
		return fmt.Errorf("%w: metrics_namespace %q is not a metric name", ErrInvalidConfig, c.MetricsNamespace)
	case c.MetricsSubsystem != "" && !metricPrefix.MatchString(c.MetricsSubsystem):
		return fmt.Errorf("%w: metrics_subsystem %q is not a metric name", ErrInvalidConfig, c.MetricsSubsystem)
	}
	return nil
}
