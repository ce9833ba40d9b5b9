package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/tradesim/ledger"
	"github.com/stretchr/testify/assert"
)

func TestFormatTransactionOrgExit(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)
	out := FormatTransactionOrg(exitRecord("01HX12345678ABCD", at, "100"))

	assert.Contains(t, out, "** EXIT LONG (01HX1234)")
	assert.Contains(t, out, ":TX_ID: 01HX12345678ABCD")
	assert.Contains(t, out, ":PRICE: 110.00")
	assert.Contains(t, out, ":QUANTITY: 10")
	assert.Contains(t, out, ":AMOUNT: 1100.00")
	assert.Contains(t, out, ":REALIZED_PNL: 100.00")
	assert.Contains(t, out, ":TIME: 2024-03-15T10:30:45Z")
	assert.Contains(t, out, "*** Review")
}

func TestFormatTransactionOrgFund(t *testing.T) {
	t.Parallel()

	out := FormatTransactionOrg(ledger.TransactionRecord{ID: "F1", Kind: ledger.KindFund, Amount: dec("50")})
	assert.Contains(t, out, "** FUND (F1)")
	assert.Contains(t, out, ":AMOUNT: 50.00")
	assert.NotContains(t, out, ":PRICE:")
	assert.NotContains(t, out, ":REALIZED_PNL:")
	assert.NotContains(t, out, "*** Review")
}

func TestFormatTransactionsOrg(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)
	out := FormatTransactionsOrg([]ledger.TransactionRecord{
		exitRecord("A", at, "1"),
		exitRecord("B", at, "2"),
	})
	assert.Equal(t, 2, strings.Count(out, ":PROPERTIES:"))
	assert.Empty(t, FormatTransactionsOrg(nil))
}
