package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents one sampled interval of the simulated instrument.
// High and Low are always the larger and smaller of Open and Close; the
// process never draws wicks beyond the body.
type Candle struct {
	Time   time.Time       `json:"t"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Bullish reports whether the candle closed at or above its open.
func (c Candle) Bullish() bool {
	return c.Close.GreaterThanOrEqual(c.Open)
}

// Return is the fractional move from Open to Close.
func (c Candle) Return() float64 {
	if c.Open.IsZero() {
		return 0
	}
	r, _ := c.Close.Sub(c.Open).Div(c.Open).Float64()
	return r
}
