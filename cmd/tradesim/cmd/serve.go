package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/tradesim/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a live market over WebSocket",
	Long: `Start the candle scheduler and expose the session to trading clients.

Endpoints:
  /ws       - WebSocket; pushes a snapshot per candle and accepts
              {"op":"buy|short|exit|fund|reset","amount":N} commands
  /snapshot - current snapshot as JSON`,
	RunE: runServe,
}

var (
	serveAddr string
	serveSeed int64
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (defaults to server.addr)")
	serveCmd.Flags().Int64Var(&serveSeed, "seed", 0, "random seed (0 uses market.seed)")
}

func runServe(cmd *cobra.Command, args []string) error {
	j, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer closeJournal(j)

	seed := serveSeed
	if seed == 0 {
		seed = cfg.Market.Seed
	}
	sess, err := newSession(j, seed)
	if err != nil {
		return err
	}
	sess.Warmup(cfg.Market.WarmupCandles)

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(sess, cfg.Market.CandleInterval(), logger)
	return srv.ListenAndServe(ctx, addr)
}
