package clob

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rustyeddy/polygate/market"
	"github.com/shopspring/decimal"
)

// GetOrderBook fetches a token's book. Levels are re-sorted best first
// because the API returns them worst first.
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (market.OrderBook, error) {
	if tokenID == "" {
		return market.OrderBook{}, errEmptyTokenID
	}
	params := url.Values{}
	params.Set("token_id", tokenID)

	var book market.OrderBook
	if err := c.get(ctx, "/book", params, false, &book); err != nil {
		return market.OrderBook{}, err
	}
	sortLevels(book.Bids, true)
	sortLevels(book.Asks, false)
	return book, nil
}

func sortLevels(levels []market.PriceLevel, desc bool) {
	px := func(i int) decimal.Decimal {
		d, err := market.ParseAmount(levels[i].Price)
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	sort.SliceStable(levels, func(i, j int) bool {
		if desc {
			return px(i).GreaterThan(px(j))
		}
		return px(i).LessThan(px(j))
	})
}

type trade struct {
	ID        string `json:"id"`
	AssetID   string `json:"asset_id"`
	MatchTime string `json:"match_time"`
}

// LastTradeTS returns the newest match time (unix seconds) for a token
// among trades after since, or 0 when there are none.
func (c *Client) LastTradeTS(ctx context.Context, tokenID string, since time.Time) (int64, error) {
	params := url.Values{}
	params.Set("asset_id", tokenID)
	params.Set("after", strconv.FormatInt(since.Unix(), 10))

	trades, err := paginate[trade](ctx, c, "/data/trades", params)
	if err != nil {
		return 0, err
	}
	var newest int64
	for _, t := range trades {
		ts, err := strconv.ParseInt(t.MatchTime, 10, 64)
		if err != nil {
			continue
		}
		if ts > newest {
			newest = ts
		}
	}
	return newest, nil
}
