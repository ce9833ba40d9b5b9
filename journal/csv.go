package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/rustyeddy/tradesim/ledger"
)

var (
	transactionHeader = []string{"tx_id", "kind", "price", "quantity", "amount", "realized_pnl", "time"}
	equityHeader      = []string{"time", "cash", "equity", "realized_pnl", "unrealized_pnl"}
)

type CSV struct {
	txs    *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(transactionsPath, equityPath string) (*CSV, error) {
	tf, err := os.Create(transactionsPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", transactionsPath, err)
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = tf.Close()
		return nil, fmt.Errorf("create %s: %w", equityPath, err)
	}

	j := &CSV{txs: csv.NewWriter(tf), equity: csv.NewWriter(ef), tf: tf, ef: ef}
	if err := j.write(j.txs, transactionHeader); err != nil {
		_ = j.closeFiles()
		return nil, err
	}
	if err := j.write(j.equity, equityHeader); err != nil {
		_ = j.closeFiles()
		return nil, err
	}
	return j, nil
}

func (j *CSV) RecordTransaction(t ledger.TransactionRecord) error {
	pnl := ""
	if t.RealizedPnL.Valid {
		pnl = t.RealizedPnL.Decimal.String()
	}
	return j.write(j.txs, []string{
		t.ID,
		string(t.Kind),
		t.Price.String(),
		t.Quantity.String(),
		t.Amount.String(),
		pnl,
		t.Time.UTC().Format(time.RFC3339Nano),
	})
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.Time.UTC().Format(time.RFC3339Nano),
		e.Cash.StringFixed(2),
		e.Equity.StringFixed(2),
		e.RealizedPnL.StringFixed(2),
		e.UnrealizedPnL.StringFixed(2),
	})
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) Close() error {
	j.txs.Flush()
	if err := j.txs.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}
	return j.closeFiles()
}

func (j *CSV) closeFiles() error {
	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}
