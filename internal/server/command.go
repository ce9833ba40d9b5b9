package server

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Command is a user action received from a UI client.
type Command struct {
	Op     string
	Amount float64
}

// ParseCommand decodes {"op": ..., "amount": ...}. The amount is passed
// through raw: a missing or unparseable amount becomes NaN and the ledger
// rejects it as invalid.
func ParseCommand(msg []byte) (Command, error) {
	if !gjson.ValidBytes(msg) {
		return Command{}, fmt.Errorf("malformed command")
	}
	op := gjson.GetBytes(msg, "op")
	if op.Type != gjson.String || strings.TrimSpace(op.Str) == "" {
		return Command{}, fmt.Errorf("command missing op")
	}

	cmd := Command{
		Op:     strings.ToLower(strings.TrimSpace(op.Str)),
		Amount: math.NaN(),
	}

	amount := gjson.GetBytes(msg, "amount")
	switch amount.Type {
	case gjson.Number:
		cmd.Amount = amount.Num
	case gjson.String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(amount.Str), 64); err == nil {
			cmd.Amount = f
		}
	}
	return cmd, nil
}
