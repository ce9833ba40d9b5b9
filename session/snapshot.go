package session

import (
	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/shopspring/decimal"
)

// Snapshot is the read-only view a UI redraws from.
type Snapshot struct {
	Candles       []market.Candle            `json:"candles"`
	Price         decimal.NullDecimal        `json:"price"`
	Cash          decimal.Decimal            `json:"cash"`
	Position      ledger.Position            `json:"position"`
	RealizedPnL   decimal.Decimal            `json:"realized_pnl"`
	UnrealizedPnL decimal.NullDecimal        `json:"unrealized_pnl"`
	Equity        decimal.Decimal            `json:"equity"`
	History       []ledger.TransactionRecord `json:"history"`
	CanEnter      bool                       `json:"can_enter"`
	CanExit       bool                       `json:"can_exit"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Candles:     s.Candles(),
		Cash:        s.ledger.Cash(),
		Position:    s.ledger.Position(),
		RealizedPnL: s.ledger.RealizedPnL(),
		Equity:      s.ledger.Equity(),
		History:     s.ledger.Recent(RecentLimit),
		CanEnter:    s.ledger.CanEnter(),
		CanExit:     s.ledger.CanExit(),
	}
	if p, ok := s.LatestPrice(); ok {
		snap.Price = decimal.NewNullDecimal(p)
	}
	if u, ok := s.ledger.UnrealizedPnL(); ok {
		snap.UnrealizedPnL = decimal.NewNullDecimal(u)
	}
	return snap
}
