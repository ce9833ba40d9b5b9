package cmd

import (
	"fmt"
	"os"

	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/internal/logging"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "tradesim",
	Short: "A single-instrument paper trading simulator",
	Long: `Tradesim synthesizes a continuous stream of price candles from a bounded
random walk and lets you trade one position at a time against a cash balance.

It provides tools for:
  - Running headless simulations with scripted actions
  - Serving a live market over WebSocket for a trading UI
  - Journaling every transaction to CSV or SQLite
  - Querying the SQLite journal`,
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,
}

var (
	configPath string
	envFile    string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file with TRADESIM_* overrides (skipped if missing)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
}

func loadRuntime(cmd *cobra.Command, args []string) error {
	var err error
	if configPath == "" {
		cfg = config.Default()
	} else if cfg, err = config.LoadFromFile(configPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := config.LoadEnv(envFile); err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return fmt.Errorf("apply env: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err = logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	return nil
}

// openJournal returns nil when journaling is off.
func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.TransactionsFile, jc.EquityFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	}
	return nil, nil
}

func newSession(j journal.Journal, seed int64) (*session.Session, error) {
	opts := []session.Option{session.WithLogger(logger)}
	if seed != 0 {
		opts = append(opts, session.WithSource(market.NewRandSource(seed)))
	}
	if j != nil {
		opts = append(opts, session.WithJournal(j))
	}
	return session.New(cfg.Session(), opts...)
}

func closeJournal(j journal.Journal) {
	if j == nil {
		return
	}
	if err := j.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close journal:", err)
	}
}
