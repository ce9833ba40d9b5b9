package market

import "github.com/shopspring/decimal"

// CentPlaces is the number of fractional digits every price and cash value
// carries.
const CentPlaces int32 = 2

// MinPrice is the floor for any generated close.
var MinPrice = decimal.New(1, -CentPlaces)

// RoundCents rounds d to cent granularity, half away from zero.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(CentPlaces)
}

// TruncateQuantity drops digits of q beyond places without rounding. Order
// quantities are always positive so this is a floor.
func TruncateQuantity(q decimal.Decimal, places int32) decimal.Decimal {
	return q.Truncate(places)
}
