// Package session composes the price process, a bounded candle history and
// the ledger into the unit a scheduler ticks and a UI queries.
//
// A Session is not safe for concurrent use. Whoever owns it serializes
// ticks and user actions onto one logical thread.
package session

import (
	crand "crypto/rand"
	"fmt"
	"time"

	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecentLimit is how many transactions a Snapshot carries.
const RecentLimit = 20

type Config struct {
	MaxCandles int
	Process    market.ProcessConfig
	Ledger     ledger.Config
}

func (c Config) Validate() error {
	if c.MaxCandles < 1 {
		return fmt.Errorf("max candles must be at least 1")
	}
	if err := c.Process.Validate(); err != nil {
		return err
	}
	return c.Ledger.Validate()
}

type Session struct {
	cfg     Config
	proc    *market.Process
	candles *history
	ledger  *ledger.Ledger

	// prevPrice is the close the last PriceChange call measured against.
	prevPrice decimal.Decimal

	src     market.Source
	now     func() time.Time
	clocked bool
	newID   func() string
	journal journal.Journal
	log     *zap.Logger
}

type Option func(*Session)

// WithSource injects the randomness behind the price process.
func WithSource(src market.Source) Option {
	return func(s *Session) { s.src = src }
}

// WithClock stamps candles and transactions from now. Unless WithIDs is
// also given, transaction IDs take their timestamps from the same clock.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
		s.clocked = true
	}
}

// WithIDs overrides transaction ID generation.
func WithIDs(newID func() string) Option {
	return func(s *Session) { s.newID = newID }
}

// WithJournal mirrors every successful transaction and the resulting
// equity to j. Journal failures are logged and never fail the operation.
func WithJournal(j journal.Journal) Option {
	return func(s *Session) { s.journal = j }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

func New(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}

	s := &Session{
		cfg:       cfg,
		candles:   newHistory(cfg.MaxCandles),
		prevPrice: market.RoundCents(cfg.Process.InitialPrice),
		now:       time.Now,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.src == nil {
		s.src = market.NewRandSource(time.Now().UnixNano())
	}

	s.proc = market.NewProcess(cfg.Process, s.src, market.WithProcessClock(s.now))

	if s.newID == nil && s.clocked {
		s.newID = id.NewGenerator(crand.Reader, s.now).New
	}

	lopts := []ledger.Option{ledger.WithClock(s.now)}
	if s.newID != nil {
		lopts = append(lopts, ledger.WithIDs(s.newID))
	}
	s.ledger = ledger.New(cfg.Ledger, s, lopts...)
	return s, nil
}

// Tick generates the next candle from the latest close and appends it,
// evicting the oldest candle once the history is full.
func (s *Session) Tick() market.Candle {
	var prev decimal.NullDecimal
	if last, ok := s.candles.last(); ok {
		prev = decimal.NewNullDecimal(last.Close)
	}
	c := s.proc.Next(prev)
	s.candles.push(c)
	return c
}

// Warmup ticks n candles back to back.
func (s *Session) Warmup(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

// LatestPrice is the most recent close. ok is false before the first tick.
func (s *Session) LatestPrice() (decimal.Decimal, bool) {
	last, ok := s.candles.last()
	if !ok {
		return decimal.Zero, false
	}
	return last.Close, true
}

// Candles returns the history oldest first.
func (s *Session) Candles() []market.Candle {
	return s.candles.slice()
}

func (s *Session) Capacity() int { return s.cfg.MaxCandles }

func (s *Session) Ledger() *ledger.Ledger { return s.ledger }

func (s *Session) Buy(amount float64) (ledger.TransactionRecord, error) {
	rec, err := s.ledger.Buy(amount)
	return s.settle("buy", rec, err)
}

func (s *Session) Short(amount float64) (ledger.TransactionRecord, error) {
	rec, err := s.ledger.Short(amount)
	return s.settle("short", rec, err)
}

func (s *Session) Exit() (ledger.TransactionRecord, error) {
	rec, err := s.ledger.Exit()
	return s.settle("exit", rec, err)
}

func (s *Session) AddFunds(amount float64) (ledger.TransactionRecord, error) {
	rec, err := s.ledger.AddFunds(amount)
	return s.settle("fund", rec, err)
}

// Reset restores the ledger to its starting constants. The candle history
// is kept; use ClearHistory to drop it as well.
func (s *Session) Reset() {
	s.ledger.Reset()
	s.log.Info("session reset", zap.Stringer("cash", s.ledger.Cash()))
}

// ClearHistory drops every candle. The next tick starts again from the
// configured initial price.
func (s *Session) ClearHistory() {
	s.candles.clear()
	s.prevPrice = market.RoundCents(s.cfg.Process.InitialPrice)
}

func (s *Session) UnrealizedPnL() (decimal.Decimal, bool) {
	return s.ledger.UnrealizedPnL()
}

// PriceChange returns the percent move of the latest close against the
// close seen by the previous call, then remembers the latest close.
func (s *Session) PriceChange() (decimal.Decimal, bool) {
	price, ok := s.LatestPrice()
	if !ok {
		return decimal.Zero, false
	}
	change := decimal.Zero
	if s.prevPrice.IsPositive() {
		change = price.Sub(s.prevPrice).Div(s.prevPrice).Mul(decimal.NewFromInt(100)).Round(2)
	}
	s.prevPrice = price
	return change, true
}

func (s *Session) settle(op string, rec ledger.TransactionRecord, err error) (ledger.TransactionRecord, error) {
	if err != nil {
		s.log.Debug("operation rejected", zap.String("op", op), zap.String("kind", ledger.Kind(err)))
		return rec, err
	}

	s.log.Info("transaction",
		zap.String("id", rec.ID),
		zap.String("kind", string(rec.Kind)),
		zap.Stringer("price", rec.Price),
		zap.Stringer("quantity", rec.Quantity),
		zap.Stringer("amount", rec.Amount),
		zap.Stringer("cash", s.ledger.Cash()),
	)

	if s.journal != nil {
		if jerr := s.journal.RecordTransaction(rec); jerr != nil {
			s.log.Warn("journal transaction failed", zap.String("id", rec.ID), zap.Error(jerr))
		}
		if jerr := s.journal.RecordEquity(s.equitySnapshot(rec.Time)); jerr != nil {
			s.log.Warn("journal equity failed", zap.String("id", rec.ID), zap.Error(jerr))
		}
	}
	return rec, nil
}

func (s *Session) equitySnapshot(at time.Time) journal.EquitySnapshot {
	upnl, _ := s.ledger.UnrealizedPnL()
	return journal.EquitySnapshot{
		Time:          at,
		Cash:          s.ledger.Cash(),
		Equity:        s.ledger.Equity(),
		RealizedPnL:   s.ledger.RealizedPnL(),
		UnrealizedPnL: upnl,
	}
}
