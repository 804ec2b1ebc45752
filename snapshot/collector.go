package snapshot

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rustyeddy/polygate/broker"
	"github.com/rustyeddy/polygate/market"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	pageSize       = 100
	maxOffset      = 300
	tokensPerMkt   = 2
	questionMaxLen = 120
	depthTicks     = 3
	tradeLookback  = 6 * time.Hour
)

type MarketLister interface {
	ListMarkets(ctx context.Context, offset, limit int) ([]market.Listing, error)
}

type TradeSource interface {
	LastTradeTS(ctx context.Context, tokenID string, since time.Time) (int64, error)
}

type CollectorOptions struct {
	// Keywords select markets whose question contains any of them as a word.
	Keywords    []string
	MarketLimit int
	// PageDelay pauses between listing pages.
	PageDelay   time.Duration
	Concurrency int
	Logger      *zap.SugaredLogger
	Now         func() time.Time
}

// Collector discovers markets, then records the top of book, depth near the
// touch and the last trade time of their first two outcome tokens.
type Collector struct {
	markets MarketLister
	books   broker.BookSource
	trades  TradeSource
	opts    CollectorOptions
	log     *zap.SugaredLogger
}

func NewCollector(markets MarketLister, books broker.BookSource, trades TradeSource, opts CollectorOptions) *Collector {
	if len(opts.Keywords) == 0 {
		opts.Keywords = []string{"bitcoin", "btc"}
	}
	if opts.MarketLimit <= 0 {
		opts.MarketLimit = 3
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Collector{markets: markets, books: books, trades: trades, opts: opts, log: log}
}

type job struct {
	question string
	tokenID  string
}

// Run fails only when market discovery fails. Per-token failures become
// rows carrying an error.
func (c *Collector) Run(ctx context.Context) (market.Snapshot, error) {
	mkts, err := c.discover(ctx)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("snapshot: discover markets: %w", err)
	}

	var jobs []job
	for _, m := range mkts {
		q := truncate(m.Question, questionMaxLen)
		for i, tok := range m.TokenIDs {
			if i >= tokensPerMkt {
				break
			}
			jobs = append(jobs, job{question: q, tokenID: tok})
		}
	}

	rows := make([]market.BookSnapshotRow, len(jobs))
	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			rows[i] = c.row(ctx, j)
			return nil
		})
	}
	_ = g.Wait()

	return market.Snapshot{TS: c.opts.Now().Unix(), Rows: rows}, nil
}

func (c *Collector) discover(ctx context.Context) ([]market.Listing, error) {
	var out []market.Listing
	for offset := 0; offset < maxOffset; offset += pageSize {
		page, err := c.markets.ListMarkets(ctx, offset, pageSize)
		if err != nil {
			return nil, err
		}
		for _, m := range page {
			if matches(m.Question, c.opts.Keywords) {
				out = append(out, m)
			}
		}
		if len(out) >= c.opts.MarketLimit || len(page) < pageSize {
			break
		}
		if err := sleep(ctx, c.opts.PageDelay); err != nil {
			return nil, err
		}
	}
	if len(out) > c.opts.MarketLimit {
		out = out[:c.opts.MarketLimit]
	}
	return out, nil
}

func (c *Collector) row(ctx context.Context, j job) market.BookSnapshotRow {
	row := market.BookSnapshotRow{Question: j.question, TokenID: j.tokenID}
	book, err := c.books.GetOrderBook(ctx, j.tokenID)
	if err != nil {
		c.log.Debugw("snapshot book failed", "token", j.tokenID, "err", err)
		row.Error = err.Error()
		return row
	}
	row.BestBidPrice, row.BestBidSize = market.Best(book.Bids)
	row.BestAskPrice, row.BestAskSize = market.Best(book.Asks)
	row.Depth3TicksBid = market.DepthWithinTicks(book.Bids, depthTicks, market.TickSize, market.Buy)
	row.Depth3TicksAsk = market.DepthWithinTicks(book.Asks, depthTicks, market.TickSize, market.Sell)

	if c.trades != nil {
		since := c.opts.Now().Add(-tradeLookback)
		ts, err := c.trades.LastTradeTS(ctx, j.tokenID, since)
		if err != nil {
			c.log.Debugw("snapshot trades failed", "token", j.tokenID, "err", err)
			ts = 0
		}
		row.LastTradeTS = ts
	}
	return row
}

func matches(question string, keywords []string) bool {
	words := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for _, kw := range keywords {
			if w == strings.ToLower(kw) {
				return true
			}
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
