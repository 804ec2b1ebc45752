package market

import (
	"encoding/json"
	"time"
)

// BookSnapshotRow is one token's top-of-book summary from a snapshot probe.
// A row that could not be collected carries Error and zero numerics.
type BookSnapshotRow struct {
	Question       string `json:"question,omitempty"`
	TokenID        string `json:"token_id"`
	BestBidPrice   Amount `json:"best_bid_price"`
	BestBidSize    Amount `json:"best_bid_size"`
	BestAskPrice   Amount `json:"best_ask_price"`
	BestAskSize    Amount `json:"best_ask_size"`
	Depth3TicksBid Amount `json:"depth_3ticks_bid"`
	Depth3TicksAsk Amount `json:"depth_3ticks_ask"`
	LastTradeTS    int64  `json:"last_trade_ts"`
	Error          string `json:"error,omitempty"`
}

type rowJSON struct {
	Question       string      `json:"question,omitempty"`
	TokenID        string      `json:"token_id"`
	BestBidPrice   json.Number `json:"best_bid_price"`
	BestBidSize    json.Number `json:"best_bid_size"`
	BestAskPrice   json.Number `json:"best_ask_price"`
	BestAskSize    json.Number `json:"best_ask_size"`
	Depth3TicksBid json.Number `json:"depth_3ticks_bid"`
	Depth3TicksAsk json.Number `json:"depth_3ticks_ask"`
	LastTradeTS    int64       `json:"last_trade_ts"`
	Error          string      `json:"error,omitempty"`
}

// MarshalJSON writes amounts as JSON numbers without rounding them.
func (r BookSnapshotRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(rowJSON{
		Question:       r.Question,
		TokenID:        r.TokenID,
		BestBidPrice:   json.Number(r.BestBidPrice.String()),
		BestBidSize:    json.Number(r.BestBidSize.String()),
		BestAskPrice:   json.Number(r.BestAskPrice.String()),
		BestAskSize:    json.Number(r.BestAskSize.String()),
		Depth3TicksBid: json.Number(r.Depth3TicksBid.String()),
		Depth3TicksAsk: json.Number(r.Depth3TicksAsk.String()),
		LastTradeTS:    r.LastTradeTS,
		Error:          r.Error,
	})
}

// Quoted reports whether the row has both a best bid and a best ask.
func (r BookSnapshotRow) Quoted() bool {
	return r.Error == "" && r.BestBidPrice.IsPositive() && r.BestAskPrice.IsPositive()
}

// LastTrade returns the last trade time, or the zero time if unknown.
func (r BookSnapshotRow) LastTrade() time.Time {
	if r.LastTradeTS <= 0 {
		return time.Time{}
	}
	return time.Unix(r.LastTradeTS, 0)
}

type Snapshot struct {
	TS   int64             `json:"ts"`
	Rows []BookSnapshotRow `json:"rows"`
}

// FirstQuoted returns the first row carrying both sides of the book.
func (s Snapshot) FirstQuoted() (BookSnapshotRow, bool) {
	for _, r := range s.Rows {
		if r.Quoted() {
			return r, true
		}
	}
	return BookSnapshotRow{}, false
}
