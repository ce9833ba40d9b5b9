package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradesim/ledger"
)

// FormatTransactionOrg renders a record as an Org-mode block. Structured
// facts live in a PROPERTIES drawer; exits get a Review placeholder.
func FormatTransactionOrg(t ledger.TransactionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** %s (%s)\n", t.Kind, shortID(t.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TX_ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":KIND: %s\n", t.Kind)
	if t.Kind != ledger.KindFund {
		fmt.Fprintf(&b, ":PRICE: %s\n", t.Price.StringFixed(2))
		fmt.Fprintf(&b, ":QUANTITY: %s\n", t.Quantity.String())
	}
	fmt.Fprintf(&b, ":AMOUNT: %s\n", t.Amount.StringFixed(2))
	if t.RealizedPnL.Valid {
		fmt.Fprintf(&b, ":REALIZED_PNL: %s\n", t.RealizedPnL.Decimal.StringFixed(2))
	}
	fmt.Fprintf(&b, ":TIME: %s\n", t.Time.UTC().Format(time.RFC3339))
	b.WriteString(":END:\n")
	if t.Kind.IsExit() {
		b.WriteString("\n*** Review\n- \n")
	}
	return b.String()
}

// FormatTransactionsOrg renders multiple records separated by blank lines.
func FormatTransactionsOrg(txs []ledger.TransactionRecord) string {
	var b strings.Builder
	for i, t := range txs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatTransactionOrg(t))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
