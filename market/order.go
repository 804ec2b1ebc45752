package market

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type AssetKind string

const (
	Collateral  AssetKind = "COLLATERAL"
	Conditional AssetKind = "CONDITIONAL"
)

// WalletBalance is one balance fetched for the current cycle.
type WalletBalance struct {
	Kind    AssetKind `json:"asset_kind" yaml:"asset_kind"`
	TokenID string    `json:"token_id,omitempty" yaml:"token_id,omitempty"`
	Amount  Amount    `json:"amount" yaml:"amount"`
}

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type OrderStatus string

const (
	StatusLive            OrderStatus = "LIVE"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusMatched         OrderStatus = "MATCHED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
)

// Reserves reports whether an order in this status could still fill and so
// holds capital or inventory.
func (s OrderStatus) Reserves() bool {
	switch OrderStatus(strings.ToUpper(strings.TrimSpace(string(s)))) {
	case StatusLive, StatusPartiallyFilled:
		return true
	}
	return false
}

// OpenOrder mirrors the exchange's open order record. Numerics stay as the
// raw strings received so a malformed value can be rejected per order.
type OpenOrder struct {
	ID           string      `json:"id" yaml:"id"`
	Status       OrderStatus `json:"status" yaml:"status"`
	Market       string      `json:"market,omitempty" yaml:"market,omitempty"`
	AssetID      string      `json:"asset_id" yaml:"asset_id"`
	Side         Side        `json:"side" yaml:"side"`
	OriginalSize string      `json:"original_size" yaml:"original_size"`
	SizeMatched  string      `json:"size_matched" yaml:"size_matched"`
	Price        string      `json:"price" yaml:"price"`
}

// Fill is the parsed numeric view of an OpenOrder.
type Fill struct {
	TokenID   string
	Side      Side
	Remaining Amount
	Price     Amount
}

// Notional is the collateral a BUY fill would consume.
func (f Fill) Notional() Amount {
	return f.Remaining.Mul(f.Price)
}

// Parse validates the numeric fields and computes the unfilled remainder,
// floored at zero.
func (o OpenOrder) Parse() (Fill, error) {
	orig, err := ParseAmount(o.OriginalSize)
	if err != nil {
		return Fill{}, fmt.Errorf("order %s original_size: %w", o.ID, err)
	}
	matched, err := ParseAmount(o.SizeMatched)
	if err != nil {
		return Fill{}, fmt.Errorf("order %s size_matched: %w", o.ID, err)
	}
	px, err := ParseAmount(o.Price)
	if err != nil {
		return Fill{}, fmt.Errorf("order %s price: %w", o.ID, err)
	}
	return Fill{
		TokenID:   strings.TrimSpace(o.AssetID),
		Side:      Side(strings.ToUpper(strings.TrimSpace(string(o.Side)))),
		Remaining: decimal.Max(decimal.Zero, orig.Sub(matched)),
		Price:     px,
	}, nil
}
