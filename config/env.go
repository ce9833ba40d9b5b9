package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables recognized by ApplyEnv.
const (
	EnvInitialBalance   = "TRADESIM_INITIAL_BALANCE"
	EnvMaxCandles       = "TRADESIM_MAX_CANDLES"
	EnvCandleIntervalMs = "TRADESIM_CANDLE_INTERVAL_MS"
	EnvLogLevel         = "TRADESIM_LOG_LEVEL"
	EnvServerAddr       = "TRADESIM_SERVER_ADDR"
	EnvJournalDB        = "TRADESIM_JOURNAL_DB"
)

// LoadEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from TRADESIM_* variables. Setting
// TRADESIM_JOURNAL_DB also switches the journal to sqlite.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvInitialBalance); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvInitialBalance, err)
		}
		if !finite(f) {
			return fmt.Errorf("%s: %q is not a finite number", EnvInitialBalance, v)
		}
		c.Account.InitialBalance = f
	}
	if v, ok := os.LookupEnv(EnvMaxCandles); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxCandles, err)
		}
		c.Market.MaxCandles = n
	}
	if v, ok := os.LookupEnv(EnvCandleIntervalMs); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCandleIntervalMs, err)
		}
		c.Market.CandleIntervalMs = n
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvServerAddr); ok {
		c.Server.Addr = v
	}
	if v, ok := os.LookupEnv(EnvJournalDB); ok {
		c.Journal.Type = "sqlite"
		c.Journal.DBPath = v
	}
	return nil
}
