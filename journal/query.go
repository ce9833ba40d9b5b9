package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradesim/ledger"
	"github.com/shopspring/decimal"
)

const txColumns = `tx_id, kind, price, quantity, amount, realized_pnl, time`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (ledger.TransactionRecord, error) {
	var (
		rec  ledger.TransactionRecord
		kind string
	)
	err := s.Scan(
		&rec.ID,
		&kind,
		&rec.Price,
		&rec.Quantity,
		&rec.Amount,
		&rec.RealizedPnL,
		&rec.Time,
	)
	rec.Kind = ledger.TxKind(kind)
	return rec, err
}

// GetTransaction returns a single transaction by ID.
func (j *SQLite) GetTransaction(txID string) (ledger.TransactionRecord, error) {
	row := j.db.QueryRow(`SELECT `+txColumns+` FROM transactions WHERE tx_id = ?`, txID)

	rec, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.TransactionRecord{}, fmt.Errorf("transaction %q not found", txID)
		}
		return ledger.TransactionRecord{}, err
	}
	return rec, nil
}

// ListTransactionsBetween returns transactions with time in [start, end),
// oldest first.
func (j *SQLite) ListTransactionsBetween(start, end time.Time) ([]ledger.TransactionRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+txColumns+`
		FROM transactions
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, tx_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns equity snapshots with time in [start, end).
func (j *SQLite) ListEquityBetween(start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT time, cash, equity, realized_pnl, unrealized_pnl
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.Time, &e.Cash, &e.Equity, &e.RealizedPnL, &e.UnrealizedPnL); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RealizedTotal sums realized P&L over exits in [start, end). The sum is
// taken in decimal so cents never drift.
func (j *SQLite) RealizedTotal(start, end time.Time) (decimal.Decimal, error) {
	rows, err := j.db.Query(`
		SELECT realized_pnl
		FROM transactions
		WHERE realized_pnl IS NOT NULL AND time >= ? AND time < ?`, start.UTC(), end.UTC())
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var pnl decimal.Decimal
		if err := rows.Scan(&pnl); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(pnl)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
