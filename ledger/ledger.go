package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/market"
	"github.com/shopspring/decimal"
)

// PriceSource supplies the price orders fill at. ok is false until the
// first candle exists.
type PriceSource interface {
	LatestPrice() (price decimal.Decimal, ok bool)
}

// Config holds the ledger's starting constants.
type Config struct {
	InitialBalance    decimal.Decimal
	QuantityPrecision int32 // fractional digits order quantities are truncated to
}

func (c Config) Validate() error {
	if c.InitialBalance.IsNegative() {
		return fmt.Errorf("initial balance must not be negative")
	}
	if c.QuantityPrecision < 0 || c.QuantityPrecision > 8 {
		return fmt.Errorf("quantity precision must be between 0 and 8")
	}
	return nil
}

// State is a point-in-time copy of the ledger. History is newest first.
type State struct {
	Cash        decimal.Decimal     `json:"cash"`
	Position    Position            `json:"position"`
	RealizedPnL decimal.Decimal     `json:"realized_pnl"`
	History     []TransactionRecord `json:"history"`
}

// Ledger owns the cash balance, the single open position, cumulative
// realized P&L and the transaction log. It is not safe for concurrent use;
// callers serialize access.
type Ledger struct {
	cfg    Config
	prices PriceSource
	now    func() time.Time
	newID  func() string

	cash     decimal.Decimal
	pos      Position
	realized decimal.Decimal
	history  []TransactionRecord // oldest first; read newest first
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithIDs(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

func New(cfg Config, prices PriceSource, opts ...Option) *Ledger {
	l := &Ledger{
		cfg:    cfg,
		prices: prices,
		now:    time.Now,
		newID:  id.New,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.Reset()
	return l
}

// Reset restores the starting balance and clears the position, realized
// P&L and history. Calling it repeatedly is the same as calling it once.
func (l *Ledger) Reset() {
	l.cash = market.RoundCents(l.cfg.InitialBalance)
	l.pos = Position{}
	l.realized = decimal.Zero
	l.history = nil
}

func (l *Ledger) Cash() decimal.Decimal        { return l.cash }
func (l *Ledger) Position() Position           { return l.pos }
func (l *Ledger) RealizedPnL() decimal.Decimal { return l.realized }

// CanEnter reports whether Buy and Short are currently allowed.
func (l *Ledger) CanEnter() bool { return !l.pos.IsOpen() }

// CanExit reports whether Exit is currently allowed.
func (l *Ledger) CanExit() bool { return l.pos.IsOpen() }

// Buy opens a long position sized at amount USD at the latest price.
func (l *Ledger) Buy(amount float64) (TransactionRecord, error) {
	return l.enter(Long, amount)
}

// Short opens a short position sized at amount USD at the latest price.
// The proceeds are credited immediately and serve as the only collateral.
func (l *Ledger) Short(amount float64) (TransactionRecord, error) {
	return l.enter(Short, amount)
}

func (l *Ledger) enter(dir Direction, amount float64) (TransactionRecord, error) {
	if l.pos.IsOpen() {
		return TransactionRecord{}, ErrPositionAlreadyOpen
	}
	price, err := l.price()
	if err != nil {
		return TransactionRecord{}, err
	}
	if !validAmount(amount) {
		return TransactionRecord{}, ErrInvalidAmount
	}

	qty := market.TruncateQuantity(decimal.NewFromFloat(amount).Div(price), l.cfg.QuantityPrecision)
	if !qty.IsPositive() {
		return TransactionRecord{}, ErrAmountTooSmall
	}
	notional := market.RoundCents(qty.Mul(price))

	kind := KindBuy
	cash := l.cash
	switch dir {
	case Long:
		if notional.GreaterThan(cash) {
			return TransactionRecord{}, ErrInsufficientFunds
		}
		cash = market.RoundCents(cash.Sub(notional))
	case Short:
		kind = KindShort
		cash = market.RoundCents(cash.Add(notional))
	}

	rec := l.newRecord(kind, price, qty, notional)
	l.cash = cash
	l.pos = Position{Direction: dir, Quantity: qty, AvgPrice: price}
	l.history = append(l.history, rec)
	return rec, nil
}

// Exit closes the open position at the latest price. It either applies the
// balance, realized P&L, history and position updates together or returns
// an error and changes nothing.
func (l *Ledger) Exit() (TransactionRecord, error) {
	if !l.pos.IsOpen() {
		return TransactionRecord{}, ErrNoOpenPosition
	}
	price, err := l.price()
	if err != nil {
		return TransactionRecord{}, err
	}

	qty := l.pos.Quantity
	notional := market.RoundCents(qty.Mul(price))
	pnl := l.pos.UnrealizedPnL(price)

	var kind TxKind
	cash := l.cash
	switch l.pos.Direction {
	case Long:
		kind = KindExitLong
		cash = market.RoundCents(cash.Add(notional))
	case Short:
		if notional.GreaterThan(cash) {
			return TransactionRecord{}, ErrInsufficientFundsToCover
		}
		kind = KindExitShort
		cash = market.RoundCents(cash.Sub(notional))
	}

	rec := l.newRecord(kind, price, qty, notional)
	rec.RealizedPnL = decimal.NewNullDecimal(pnl)

	l.cash = cash
	l.realized = market.RoundCents(l.realized.Add(pnl))
	l.history = append(l.history, rec)
	l.pos = Position{}
	return rec, nil
}

// AddFunds credits amount to the cash balance. Amounts that round to
// zero cents are invalid.
func (l *Ledger) AddFunds(amount float64) (TransactionRecord, error) {
	if !validAmount(amount) {
		return TransactionRecord{}, ErrInvalidAmount
	}
	credit := market.RoundCents(decimal.NewFromFloat(amount))
	if !credit.IsPositive() {
		return TransactionRecord{}, ErrInvalidAmount
	}

	rec := l.newRecord(KindFund, decimal.Zero, decimal.Zero, credit)
	l.cash = market.RoundCents(l.cash.Add(credit))
	l.history = append(l.history, rec)
	return rec, nil
}

// UnrealizedPnL marks the open position at the latest price. ok is false
// when flat or when no price exists.
func (l *Ledger) UnrealizedPnL() (pnl decimal.Decimal, ok bool) {
	if !l.pos.IsOpen() {
		return decimal.Zero, false
	}
	price, err := l.price()
	if err != nil {
		return decimal.Zero, false
	}
	return l.pos.UnrealizedPnL(price), true
}

// Equity is cash plus the signed market value of the position. Without a
// price the position is carried at its entry price.
func (l *Ledger) Equity() decimal.Decimal {
	mark := l.pos.AvgPrice
	if price, err := l.price(); err == nil {
		mark = price
	}
	return market.RoundCents(l.cash.Add(l.pos.MarketValue(mark)))
}

// History returns every record, newest first.
func (l *Ledger) History() []TransactionRecord {
	return l.Recent(len(l.history))
}

// Recent returns up to n records, newest first.
func (l *Ledger) Recent(n int) []TransactionRecord {
	if n > len(l.history) {
		n = len(l.history)
	}
	if n <= 0 {
		return []TransactionRecord{}
	}
	out := make([]TransactionRecord, 0, n)
	for i := len(l.history) - 1; i >= len(l.history)-n; i-- {
		out = append(out, l.history[i])
	}
	return out
}

func (l *Ledger) State() State {
	return State{
		Cash:        l.cash,
		Position:    l.pos,
		RealizedPnL: l.realized,
		History:     l.History(),
	}
}

func (l *Ledger) price() (decimal.Decimal, error) {
	if l.prices == nil {
		return decimal.Zero, ErrNoPriceAvailable
	}
	p, ok := l.prices.LatestPrice()
	if !ok || !p.IsPositive() {
		return decimal.Zero, ErrNoPriceAvailable
	}
	return p, nil
}

func (l *Ledger) newRecord(kind TxKind, price, qty, amount decimal.Decimal) TransactionRecord {
	return TransactionRecord{
		ID:       l.newID(),
		Kind:     kind,
		Price:    price,
		Quantity: qty,
		Amount:   amount,
		Time:     l.now(),
	}
}

func validAmount(a float64) bool {
	return !math.IsNaN(a) && !math.IsInf(a, 0) && a > 0
}
