package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/tradesim/ledger"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTransaction(t ledger.TransactionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO transactions
		(tx_id, kind, price, quantity, amount, realized_pnl, time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Kind), t.Price, t.Quantity, t.Amount, t.RealizedPnL, t.Time.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record transaction %s: %w", t.ID, err)
	}
	return nil
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, cash, equity, realized_pnl, unrealized_pnl)
		VALUES (?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.Cash, e.Equity, e.RealizedPnL, e.UnrealizedPnL,
	)
	if err != nil {
		return fmt.Errorf("record equity: %w", err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
