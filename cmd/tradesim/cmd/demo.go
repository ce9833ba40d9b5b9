package cmd

import (
	"fmt"
	"io"

	"github.com/rustyeddy/tradesim/ledger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk through long and short round trips at fixed prices",
	Args:  cobra.NoArgs,
	RunE:  runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

// fixedPrice is a price source moved by hand.
type fixedPrice struct {
	p decimal.Decimal
}

func (f *fixedPrice) LatestPrice() (decimal.Decimal, bool) { return f.p, true }

func (f *fixedPrice) set(p string) { f.p = decimal.RequireFromString(p) }

func runDemo(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	lcfg := ledger.Config{
		InitialBalance:    decimal.NewFromInt(10000),
		QuantityPrecision: cfg.Account.QuantityDecimalPrecision,
	}

	fmt.Fprintln(out, "=== Long: buy $1000 at 100.00, exit at 110.00 ===")
	price := &fixedPrice{}
	l := ledger.New(lcfg, price)
	price.set("100.00")
	if err := demoStep(out, l, "buy 1000", func() (ledger.TransactionRecord, error) { return l.Buy(1000) }); err != nil {
		return err
	}
	price.set("110.00")
	if err := demoStep(out, l, "exit", l.Exit); err != nil {
		return err
	}

	fmt.Fprintln(out, "\n=== Short: short $5000 at 50.00, cover at 60.00 ===")
	l = ledger.New(lcfg, price)
	price.set("50.00")
	if err := demoStep(out, l, "short 5000", func() (ledger.TransactionRecord, error) { return l.Short(5000) }); err != nil {
		return err
	}
	price.set("60.00")
	if err := demoStep(out, l, "exit", l.Exit); err != nil {
		return err
	}

	fmt.Fprintln(out, "\n=== Rejections ===")
	l = ledger.New(ledger.Config{InitialBalance: decimal.NewFromInt(10), QuantityPrecision: lcfg.QuantityPrecision}, price)
	price.set("100.00")
	for _, step := range []struct {
		label string
		fn    func() (ledger.TransactionRecord, error)
	}{
		{"buy 1000 with $10", func() (ledger.TransactionRecord, error) { return l.Buy(1000) }},
		{"exit while flat", l.Exit},
		{"buy 0.0001", func() (ledger.TransactionRecord, error) { return l.Buy(0.0001) }},
	} {
		_, err := step.fn()
		fmt.Fprintf(out, "%-20s -> %s\n", step.label, ledger.Kind(err))
	}
	return nil
}

func demoStep(w io.Writer, l *ledger.Ledger, label string, fn func() (ledger.TransactionRecord, error)) error {
	rec, err := fn()
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	pos := l.Position()
	fmt.Fprintf(w, "%-12s %s\n", label, describeRecord(rec))
	fmt.Fprintf(w, "%-12s cash %s, position %s %s @ %s, realized %s\n", "",
		l.Cash().StringFixed(2), pos.Direction, pos.Quantity.String(), pos.AvgPrice.StringFixed(2), l.RealizedPnL().StringFixed(2))
	return nil
}
