package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/session"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the complete simulator configuration
type Config struct {
	Market     MarketConfig     `json:"market" yaml:"market"`
	Account    AccountConfig    `json:"account" yaml:"account"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Server     ServerConfig     `json:"server" yaml:"server"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// MarketConfig controls candle generation and history
type MarketConfig struct {
	CandleIntervalMs int     `json:"candle_interval_ms" yaml:"candle_interval_ms"`
	MaxCandles       int     `json:"max_candles" yaml:"max_candles"`
	InitialPrice     float64 `json:"initial_price" yaml:"initial_price"`
	PriceSigma       float64 `json:"price_sigma" yaml:"price_sigma"`
	MaxJumpPct       float64 `json:"max_jump_pct" yaml:"max_jump_pct"`
	VolumeMin        int     `json:"volume_min" yaml:"volume_min"`
	VolumeMax        int     `json:"volume_max" yaml:"volume_max"`
	WarmupCandles    int     `json:"warmup_candles" yaml:"warmup_candles"`
	Seed             int64   `json:"seed,omitempty" yaml:"seed,omitempty"` // 0 seeds from the clock
}

// CandleInterval is the tick period as a duration
func (m MarketConfig) CandleInterval() time.Duration {
	return time.Duration(m.CandleIntervalMs) * time.Millisecond
}

// AccountConfig contains ledger starting constants
type AccountConfig struct {
	InitialBalance           float64 `json:"initial_balance" yaml:"initial_balance"`
	QuantityDecimalPrecision int32   `json:"quantity_decimal_precision" yaml:"quantity_decimal_precision"`
}

// SimulationConfig holds scripted actions for headless runs
type SimulationConfig struct {
	Actions []ActionStep `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// ActionStep is a user action applied right after candle AtTick is generated
type ActionStep struct {
	AtTick int     `json:"at_tick" yaml:"at_tick"`
	Op     string  `json:"op" yaml:"op"` // buy, short, exit, fund, reset
	Amount float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
}

var validOps = map[string]bool{"buy": true, "short": true, "exit": true, "fund": true, "reset": true}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type             string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TransactionsFile string `json:"transactions_file,omitempty" yaml:"transactions_file,omitempty"`
	EquityFile       string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath           string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
}

// LoadFromFile loads configuration from a file (JSON or YAML). Fields the
// file omits keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", jerr)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file, YAML for .yaml/.yml and JSON
// otherwise
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	m := c.Market
	if m.CandleIntervalMs <= 0 {
		return fmt.Errorf("market.candle_interval_ms must be positive")
	}
	if m.MaxCandles < 1 {
		return fmt.Errorf("market.max_candles must be at least 1")
	}
	if m.WarmupCandles < 0 {
		return fmt.Errorf("market.warmup_candles must not be negative")
	}
	if !finite(m.InitialPrice) {
		return fmt.Errorf("market.initial_price must be a finite number")
	}
	if !finite(c.Account.InitialBalance) {
		return fmt.Errorf("account.initial_balance must be a finite number")
	}
	if err := c.processConfig().Validate(); err != nil {
		return fmt.Errorf("market: %w", err)
	}
	if err := c.ledgerConfig().Validate(); err != nil {
		return fmt.Errorf("account: %w", err)
	}

	for i, a := range c.Simulation.Actions {
		if !validOps[a.Op] {
			return fmt.Errorf("simulation.actions[%d]: unknown op %q", i, a.Op)
		}
		if a.AtTick < 0 {
			return fmt.Errorf("simulation.actions[%d]: at_tick must not be negative", i)
		}
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TransactionsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal transactions_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Session converts the file configuration into the session's settings
func (c *Config) Session() session.Config {
	return session.Config{
		MaxCandles: c.Market.MaxCandles,
		Process:    c.processConfig(),
		Ledger:     c.ledgerConfig(),
	}
}

func (c *Config) processConfig() market.ProcessConfig {
	return market.ProcessConfig{
		InitialPrice: decimal.NewFromFloat(c.Market.InitialPrice),
		Sigma:        c.Market.PriceSigma,
		MaxJumpPct:   c.Market.MaxJumpPct,
		VolumeMin:    c.Market.VolumeMin,
		VolumeMax:    c.Market.VolumeMax,
	}
}

func (c *Config) ledgerConfig() ledger.Config {
	return ledger.Config{
		InitialBalance:    decimal.NewFromFloat(c.Account.InitialBalance),
		QuantityPrecision: c.Account.QuantityDecimalPrecision,
	}
}

// Default returns a configuration with the simulator's standard constants
func Default() *Config {
	return &Config{
		Market: MarketConfig{
			CandleIntervalMs: 1000,
			MaxCandles:       60,
			InitialPrice:     100.00,
			PriceSigma:       0.0025,
			MaxJumpPct:       0.03,
			VolumeMin:        100,
			VolumeMax:        500,
			WarmupCandles:    40,
		},
		Account: AccountConfig{
			InitialBalance:           10000.00,
			QuantityDecimalPrecision: 4,
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
