package clob

import (
	"context"
	"net/url"
	"strings"

	"github.com/rustyeddy/polygate/broker"
	"github.com/rustyeddy/polygate/market"
)

// GetBalance fetches the balance-allowance record for collateral or one
// conditional token.
func (c *Client) GetBalance(ctx context.Context, kind market.AssetKind, tokenID string) (broker.Balance, error) {
	params := url.Values{}
	params.Set("asset_type", string(kind))
	params.Set("token_id", tokenID)
	params.Set("signature_type", itoa(c.signatureType))

	var out broker.Balance
	if err := c.get(ctx, "/balance-allowance", params, true, &out); err != nil {
		return broker.Balance{}, err
	}
	return out, nil
}

// ListOpenOrders returns every open order for the API key, following
// pagination to the end.
func (c *Client) ListOpenOrders(ctx context.Context) ([]market.OpenOrder, error) {
	orders, err := paginate[market.OpenOrder](ctx, c, "/data/orders", nil)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Status = market.OrderStatus(strings.ToUpper(string(orders[i].Status)))
		orders[i].Side = market.Side(strings.ToUpper(string(orders[i].Side)))
	}
	return orders, nil
}
