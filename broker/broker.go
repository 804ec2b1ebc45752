package broker

import (
	"context"

	"github.com/rustyeddy/polygate/market"
)

// Balance is the exchange's balance-allowance payload. Balance is an
// integer string in micro-units (implicit 6 decimals).
type Balance struct {
	Balance    string            `json:"balance"`
	Allowances map[string]string `json:"allowances,omitempty"`
}

type BalanceSource interface {
	GetBalance(ctx context.Context, kind market.AssetKind, tokenID string) (Balance, error)
}

type OrderSource interface {
	ListOpenOrders(ctx context.Context) ([]market.OpenOrder, error)
}

type BookSource interface {
	GetOrderBook(ctx context.Context, tokenID string) (market.OrderBook, error)
}

// Exchange bundles the capabilities the reconciliation engine consumes.
type Exchange interface {
	BalanceSource
	OrderSource
	BookSource
}
