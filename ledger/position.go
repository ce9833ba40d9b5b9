package ledger

import (
	"fmt"

	"github.com/rustyeddy/tradesim/market"
	"github.com/shopspring/decimal"
)

// Direction of the single open position.
type Direction int

const (
	None Direction = iota
	Long
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "none"
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none", "":
		*d = None
	case "long":
		*d = Long
	case "short":
		*d = Short
	default:
		return fmt.Errorf("unknown direction %q", b)
	}
	return nil
}

// Position is the trader's current exposure. Quantity is always a positive
// magnitude while open; Direction carries the sign. The zero value is flat.
type Position struct {
	Direction Direction       `json:"direction"`
	Quantity  decimal.Decimal `json:"quantity"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
}

func (p Position) IsOpen() bool {
	return p.Direction != None
}

// UnrealizedPnL marks the position at mark. Both directions report a
// positive value when in profit. A flat position is worth zero.
func (p Position) UnrealizedPnL(mark decimal.Decimal) decimal.Decimal {
	switch p.Direction {
	case Long:
		return market.RoundCents(mark.Sub(p.AvgPrice).Mul(p.Quantity))
	case Short:
		return market.RoundCents(p.AvgPrice.Sub(mark).Mul(p.Quantity))
	}
	return decimal.Zero
}

// MarketValue is the signed cash value of the position at mark: a long is
// an asset, a short is an obligation to buy back.
func (p Position) MarketValue(mark decimal.Decimal) decimal.Decimal {
	v := market.RoundCents(p.Quantity.Mul(mark))
	switch p.Direction {
	case Long:
		return v
	case Short:
		return v.Neg()
	}
	return decimal.Zero
}
