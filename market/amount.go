package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MicroDecimals is the implicit precision of on-chain USDC and conditional
// token balances.
const MicroDecimals = 6

// Epsilon absorbs rounding noise when comparing free balances against zero.
var Epsilon = decimal.RequireFromString("0.01")

// Amount is a fixed-point quantity (USDC or shares).
type Amount = decimal.Decimal

// ParseMicro converts an integer micro-unit string ("12500000") into an
// Amount (12.5). An empty string is zero.
func ParseMicro(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse micro units %q: %w", s, err)
	}
	if !d.IsInteger() {
		return decimal.Zero, fmt.Errorf("parse micro units %q: not an integer", s)
	}
	return d.Shift(-MicroDecimals), nil
}

// ParseAmount parses a decimal string as sent by the exchange ("0.45",
// "100.5"). An empty string is zero.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// Float rounds d to places and returns the nearest float64, for display.
func Float(d Amount, places int32) float64 {
	return d.Round(places).InexactFloat64()
}

// Prefix shortens a token or order id for issue strings.
func Prefix(id string) string {
	if len(id) <= 10 {
		return id
	}
	return id[:10]
}
