package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxKind classifies a TransactionRecord.
type TxKind string

const (
	KindFund      TxKind = "FUND"
	KindBuy       TxKind = "BUY"
	KindShort     TxKind = "SHORT"
	KindExitLong  TxKind = "EXIT LONG"
	KindExitShort TxKind = "EXIT SHORT"
)

// IsExit reports whether records of this kind carry a realized P&L.
func (k TxKind) IsExit() bool {
	return k == KindExitLong || k == KindExitShort
}

// TransactionRecord is an immutable ledger entry. Fund records carry only
// Amount; RealizedPnL is valid only for exits.
type TransactionRecord struct {
	ID          string              `json:"id"`
	Kind        TxKind              `json:"kind"`
	Price       decimal.Decimal     `json:"price"`
	Quantity    decimal.Decimal     `json:"quantity"`
	Amount      decimal.Decimal     `json:"amount"`
	RealizedPnL decimal.NullDecimal `json:"realized_pnl"`
	Time        time.Time           `json:"time"`
}
