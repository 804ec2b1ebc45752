package market

import (
	"github.com/shopspring/decimal"
)

// TickSize is the default price increment of a binary market.
var TickSize = decimal.RequireFromString("0.01")

var depthTolerance = decimal.RequireFromString("0.000000001")

type PriceLevel struct {
	Price string `json:"price" yaml:"price"`
	Size  string `json:"size" yaml:"size"`
}

// OrderBook is a point-in-time view of one token's book. Bids are best
// first (descending), asks best first (ascending).
type OrderBook struct {
	Market    string       `json:"market,omitempty" yaml:"market,omitempty"`
	AssetID   string       `json:"asset_id" yaml:"asset_id"`
	Bids      []PriceLevel `json:"bids" yaml:"bids"`
	Asks      []PriceLevel `json:"asks" yaml:"asks"`
	Timestamp string       `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	TickSize  string       `json:"tick_size,omitempty" yaml:"tick_size,omitempty"`
}

// Empty reports a book with no levels on either side.
func (b OrderBook) Empty() bool {
	return len(b.Bids) == 0 && len(b.Asks) == 0
}

// Best returns the first level's price and size, or zeros for an empty side.
// Unparsable values are treated as zero.
func Best(levels []PriceLevel) (price, size Amount) {
	if len(levels) == 0 {
		return decimal.Zero, decimal.Zero
	}
	price, _ = ParseAmount(levels[0].Price)
	size, _ = ParseAmount(levels[0].Size)
	return price, size
}

// DepthWithinTicks sums the size resting within n ticks of the best level.
// For bids that is at or above best-n*tick, for asks at or below best+n*tick.
func DepthWithinTicks(levels []PriceLevel, n int, tick Amount, side Side) Amount {
	total := decimal.Zero
	if len(levels) == 0 {
		return total
	}
	best, err := ParseAmount(levels[0].Price)
	if err != nil {
		return total
	}
	band := tick.Mul(decimal.NewFromInt(int64(n))).Add(depthTolerance)
	for _, lv := range levels {
		px, err := ParseAmount(lv.Price)
		if err != nil {
			continue
		}
		sz, err := ParseAmount(lv.Size)
		if err != nil {
			continue
		}
		dist := best.Sub(px)
		if side == Sell {
			dist = px.Sub(best)
		}
		if dist.LessThanOrEqual(band) {
			total = total.Add(sz)
		}
	}
	return total
}
