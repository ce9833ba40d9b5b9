package market

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Source supplies the randomness a Process draws on. *rand.Rand satisfies
// it; tests substitute deterministic sequences.
type Source interface {
	// NormFloat64 returns a standard normal variate (mean 0, stddev 1).
	NormFloat64() float64
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// NewRandSource returns a math/rand backed Source. It is not safe for
// concurrent use.
func NewRandSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// ProcessConfig holds the random walk parameters.
type ProcessConfig struct {
	InitialPrice decimal.Decimal
	Sigma        float64 // stddev of the per-tick return
	MaxJumpPct   float64 // symmetric cap on the per-tick return
	VolumeMin    int     // inclusive
	VolumeMax    int     // exclusive
}

func (c ProcessConfig) Validate() error {
	if !c.InitialPrice.IsPositive() {
		return fmt.Errorf("initial price must be positive")
	}
	if math.IsNaN(c.Sigma) || math.IsInf(c.Sigma, 0) || c.Sigma < 0 {
		return fmt.Errorf("sigma must be a finite non-negative number")
	}
	if math.IsNaN(c.MaxJumpPct) || c.MaxJumpPct < 0 || c.MaxJumpPct >= 1 {
		return fmt.Errorf("max jump must be in [0, 1)")
	}
	if c.VolumeMin <= 0 || c.VolumeMax <= c.VolumeMin {
		return fmt.Errorf("volume range must satisfy 0 < min < max")
	}
	return nil
}

// Process generates candles from a Gaussian random walk with a bounded
// per-tick return and a price floor.
type Process struct {
	cfg ProcessConfig
	src Source
	now func() time.Time
}

type ProcessOption func(*Process)

// WithProcessClock overrides the candle timestamp source.
func WithProcessClock(now func() time.Time) ProcessOption {
	return func(p *Process) { p.now = now }
}

func NewProcess(cfg ProcessConfig, src Source, opts ...ProcessOption) *Process {
	p := &Process{
		cfg: cfg,
		src: src,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next produces the candle that follows prevClose. When prevClose is not
// valid the walk starts from the configured initial price.
func (p *Process) Next(prevClose decimal.NullDecimal) Candle {
	open := p.cfg.InitialPrice
	if prevClose.Valid {
		open = prevClose.Decimal
	}
	open = RoundCents(open)

	r := p.src.NormFloat64() * p.cfg.Sigma
	if math.IsNaN(r) {
		r = 0
	}
	r = math.Max(-p.cfg.MaxJumpPct, math.Min(p.cfg.MaxJumpPct, r))

	raw := decimal.Max(MinPrice, open.Mul(decimal.NewFromFloat(1+r)))
	close := RoundCents(raw)

	// Rounding half a cent away can break the cap at low prices; round
	// toward open instead so |close-open| never exceeds open*MaxJumpPct.
	limit := open.Mul(decimal.NewFromFloat(p.cfg.MaxJumpPct))
	if close.Sub(open).Abs().GreaterThan(limit) {
		if raw.GreaterThan(open) {
			close = raw.RoundFloor(CentPlaces)
		} else {
			close = raw.RoundCeil(CentPlaces)
		}
	}

	return Candle{
		Time:   p.now(),
		Open:   open,
		High:   decimal.Max(open, close),
		Low:    decimal.Min(open, close),
		Close:  close,
		Volume: p.volume(),
	}
}

func (p *Process) volume() int64 {
	span := p.cfg.VolumeMax - p.cfg.VolumeMin
	if span <= 0 {
		return int64(p.cfg.VolumeMin)
	}
	return int64(p.cfg.VolumeMin + p.src.Intn(span))
}
