// Package journal is an append-only audit export of ledger activity. It is
// written to as the session trades and is never read back into a session.
package journal

import (
	"time"

	"github.com/rustyeddy/tradesim/ledger"
	"github.com/shopspring/decimal"
)

// EquitySnapshot captures the account after a transaction.
type EquitySnapshot struct {
	Time          time.Time
	Cash          decimal.Decimal
	Equity        decimal.Decimal
	RealizedPnL   decimal.Decimal
	UnrealizedPnL decimal.Decimal
}

type Journal interface {
	RecordTransaction(ledger.TransactionRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}
