// Package config defines process configuration for the ledger node and the
// scoreboard client, and the layered loader that fills it.
package config

import (
	"time"
)

// Config contains process configuration. Durations are carried as integer
// milliseconds so every key can be set from the environment.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr is the gateway listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// LedgerURL is the gateway base URL the client talks to.
	LedgerURL string `koanf:"ledger_url"`
	// HTTPTimeoutMS bounds a single client request.
	HTTPTimeoutMS int `koanf:"http_timeout_ms"`

	// TableCapacity is the maximum number of entries in the top table.
	TableCapacity int `koanf:"table_capacity"`
	// TopCount is how many rows the client view reads.
	TopCount int `koanf:"top_count"`
	// MempoolSize bounds accepted but unsettled transactions.
	MempoolSize int `koanf:"mempool_size"`
	// BlockTimeMinMS and BlockTimeMaxMS bound the simulated inclusion delay.
	BlockTimeMinMS int `koanf:"block_time_min_ms"`
	BlockTimeMaxMS int `koanf:"block_time_max_ms"`
	// MaxGameNameLength makes longer names revert at settlement.
	MaxGameNameLength int `koanf:"max_game_name_length"`
	// DedupeSize is how many transaction references are remembered.
	DedupeSize int `koanf:"dedupe_size"`
	// Owner is the hex address allowed to reset the table.
	Owner string `koanf:"owner"`

	// PollIntervalMS is the settlement polling period.
	PollIntervalMS int `koanf:"poll_interval_ms"`
	// SettlementTimeoutMS bounds how long a reference may stay pending.
	SettlementTimeoutMS int `koanf:"settlement_timeout_ms"`
	// RefreshTimeoutMS bounds one read cache refresh.
	RefreshTimeoutMS int `koanf:"refresh_timeout_ms"`

	// MetricsNamespace and MetricsSubsystem prefix every exported metric
	// name. The subsystem may be empty.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		LedgerURL:           "http://127.0.0.1:9080",
		HTTPTimeoutMS:       5_000,
		TableCapacity:       100,
		TopCount:            20,
		MempoolSize:         10_000,
		BlockTimeMinMS:      500,
		BlockTimeMaxMS:      2_000,
		MaxGameNameLength:   64,
		DedupeSize:          100_000,
		PollIntervalMS:      1_000,
		SettlementTimeoutMS: 120_000,
		RefreshTimeoutMS:    10_000,
		MetricsNamespace:    "ledgerboard",
	}
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c *Config) HTTPTimeout() time.Duration       { return ms(c.HTTPTimeoutMS) }
func (c *Config) BlockTimeMin() time.Duration      { return ms(c.BlockTimeMinMS) }
func (c *Config) BlockTimeMax() time.Duration      { return ms(c.BlockTimeMaxMS) }
func (c *Config) PollInterval() time.Duration      { return ms(c.PollIntervalMS) }
func (c *Config) SettlementTimeout() time.Duration { return ms(c.SettlementTimeoutMS) }
func (c *Config) RefreshTimeout() time.Duration    { return ms(c.RefreshTimeoutMS) }
