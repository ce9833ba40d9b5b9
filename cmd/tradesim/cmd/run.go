package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/session"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a headless simulation",
	Long: `Generate candles and apply the scripted simulation.actions from the config.

Each action fires right after candle at_tick is generated; at_tick 0 fires
after warmup, before the first live candle.

Examples:
  tradesim run --ticks 300
  tradesim run --config sim.yaml --realtime`,
	RunE: runRun,
}

var (
	runTicks    int
	runRealtime bool
	runWarmup   int
	runSeed     int64
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runTicks, "ticks", "n", 120, "number of live candles to generate")
	runCmd.Flags().BoolVar(&runRealtime, "realtime", false, "pace candles at market.candle_interval_ms")
	runCmd.Flags().IntVar(&runWarmup, "warmup", -1, "warmup candles (negative uses market.warmup_candles)")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "random seed (0 uses market.seed)")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runTicks < 0 {
		return fmt.Errorf("--ticks must not be negative")
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer closeJournal(j)

	seed := runSeed
	if seed == 0 {
		seed = cfg.Market.Seed
	}
	sess, err := newSession(j, seed)
	if err != nil {
		return err
	}

	warmup := runWarmup
	if warmup < 0 {
		warmup = cfg.Market.WarmupCandles
	}
	sess.Warmup(warmup)

	out := cmd.OutOrStdout()
	actions := actionsByTick(cfg.Simulation.Actions)
	applyActions(out, sess, 0, actions[0])

	interval := cfg.Market.CandleInterval()
	for tick := 1; tick <= runTicks; tick++ {
		if runRealtime {
			time.Sleep(interval)
		}
		sess.Tick()
		applyActions(out, sess, tick, actions[tick])
	}

	printSummary(out, sess, runTicks)
	return nil
}

func actionsByTick(steps []config.ActionStep) map[int][]config.ActionStep {
	m := make(map[int][]config.ActionStep)
	for _, s := range steps {
		m[s.AtTick] = append(m[s.AtTick], s)
	}
	return m
}

func applyActions(w io.Writer, sess *session.Session, tick int, steps []config.ActionStep) {
	for _, s := range steps {
		var (
			rec ledger.TransactionRecord
			err error
		)
		switch s.Op {
		case "buy":
			rec, err = sess.Buy(s.Amount)
		case "short":
			rec, err = sess.Short(s.Amount)
		case "exit":
			rec, err = sess.Exit()
		case "fund":
			rec, err = sess.AddFunds(s.Amount)
		case "reset":
			sess.Reset()
			fmt.Fprintf(w, "[tick %d] reset: cash %s\n", tick, sess.Ledger().Cash().StringFixed(2))
			continue
		}
		if err != nil {
			fmt.Fprintf(w, "[tick %d] %s rejected: %s\n", tick, s.Op, ledger.Kind(err))
			continue
		}
		fmt.Fprintf(w, "[tick %d] %s\n", tick, describeRecord(rec))
	}
}

func describeRecord(rec ledger.TransactionRecord) string {
	if rec.Kind == ledger.KindFund {
		return fmt.Sprintf("%s $%s", rec.Kind, rec.Amount.StringFixed(2))
	}
	s := fmt.Sprintf("%s %s @ %s ($%s)", rec.Kind, rec.Quantity.String(), rec.Price.StringFixed(2), rec.Amount.StringFixed(2))
	if rec.RealizedPnL.Valid {
		s += fmt.Sprintf(" pnl %s", rec.RealizedPnL.Decimal.StringFixed(2))
	}
	return s
}

func printSummary(w io.Writer, sess *session.Session, ticks int) {
	l := sess.Ledger()
	fmt.Fprintf(w, "\n=== Simulation Summary ===\n")
	fmt.Fprintf(w, "Live candles:   %d (history %d/%d)\n", ticks, len(sess.Candles()), sess.Capacity())
	if p, ok := sess.LatestPrice(); ok {
		fmt.Fprintf(w, "Last price:     %s\n", p.StringFixed(2))
	}
	fmt.Fprintf(w, "Cash:           %s\n", l.Cash().StringFixed(2))
	pos := l.Position()
	if pos.IsOpen() {
		fmt.Fprintf(w, "Position:       %s %s @ %s\n", pos.Direction, pos.Quantity.String(), pos.AvgPrice.StringFixed(2))
		if u, ok := sess.UnrealizedPnL(); ok {
			fmt.Fprintf(w, "Unrealized P&L: %s\n", u.StringFixed(2))
		}
	} else {
		fmt.Fprintf(w, "Position:       flat\n")
	}
	fmt.Fprintf(w, "Realized P&L:   %s\n", l.RealizedPnL().StringFixed(2))
	fmt.Fprintf(w, "Equity:         %s\n", l.Equity().StringFixed(2))
	fmt.Fprintf(w, "Transactions:   %d\n", len(l.History()))
}
