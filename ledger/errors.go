package ledger

import "errors"

// Validation outcomes. None of these are faults: every rejected operation
// leaves the ledger exactly as it was.
var (
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrAmountTooSmall           = errors.New("amount too small")
	ErrPositionAlreadyOpen      = errors.New("position already open")
	ErrNoOpenPosition           = errors.New("no open position")
	ErrNoPriceAvailable         = errors.New("no price available")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrInsufficientFundsToCover = errors.New("insufficient funds to cover short position")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidAmount, "invalid_amount"},
	{ErrAmountTooSmall, "amount_too_small"},
	{ErrPositionAlreadyOpen, "position_already_open"},
	{ErrNoOpenPosition, "no_open_position"},
	{ErrNoPriceAvailable, "no_price_available"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrInsufficientFundsToCover, "insufficient_funds_to_cover"},
}

// Kind maps err to a stable machine-readable name. It returns "" for nil
// and "internal" for errors outside the ledger taxonomy.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}
