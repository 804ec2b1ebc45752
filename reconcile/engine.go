// Package reconcile cross-checks wallet balances against the capital and
// inventory reserved by still-fillable open orders.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/polygate/broker"
	"github.com/rustyeddy/polygate/market"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCallTimeout = 10 * time.Second
	DefaultConcurrency = 4
)

type Options struct {
	// CallTimeout bounds each individual source call.
	CallTimeout time.Duration
	// Concurrency caps how many tokens are checked at once.
	Concurrency int
	Logger      *zap.SugaredLogger
	Now         func() time.Time
}

type Engine struct {
	balances broker.BalanceSource
	orders   broker.OrderSource
	books    broker.BookSource

	timeout     time.Duration
	concurrency int
	log         *zap.SugaredLogger
	now         func() time.Time
}

func New(balances broker.BalanceSource, orders broker.OrderSource, books broker.BookSource, opts Options) *Engine {
	e := &Engine{
		balances:    balances,
		orders:      orders,
		books:       books,
		timeout:     opts.CallTimeout,
		concurrency: opts.Concurrency,
		log:         opts.Logger,
		now:         opts.Now,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultCallTimeout
	}
	if e.concurrency <= 0 {
		e.concurrency = DefaultConcurrency
	}
	if e.log == nil {
		e.log = zap.NewNop().Sugar()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// NewFromExchange wires all three capabilities from one exchange.
func NewFromExchange(ex broker.Exchange, opts Options) *Engine {
	return New(ex, ex, ex, opts)
}

type reservations struct {
	buyUSDC decimal.Decimal
	sell    map[string]decimal.Decimal
	tokens  []string
}

type tokenResult struct {
	row    TokenReservation
	issues []string
}

// Reconcile builds a complete State. It has no error path: every source
// failure is folded into an issue or a book status and the pass continues.
func (e *Engine) Reconcile(ctx context.Context) (st State) {
	st = State{
		TS:              e.now().Unix(),
		StateVersion:    StateVersion,
		WalletUSDC:      decimal.Zero,
		BuyReservedUSDC: decimal.Zero,
		FreeUSDC:        decimal.Zero,
		Tokens:          []TokenReservation{},
		Issues:          []string{},
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorw("reconcile aborted", "panic", r)
			st.addIssue(IssueReconcileUnavailable)
			st.StateClean = Clean(st.Issues)
		}
	}()

	wallet, err := e.balance(ctx, market.Collateral, "")
	if err != nil {
		e.log.Warnw("collateral balance unavailable", "err", err)
		st.addIssue(IssueCollateralUnavailable)
		wallet = decimal.Zero
	}
	st.WalletUSDC = wallet

	res := e.reserve(ctx, &st)
	st.BuyReservedUSDC = res.buyUSDC
	st.FreeUSDC = st.WalletUSDC.Sub(st.BuyReservedUSDC)
	if st.FreeUSDC.LessThan(market.Epsilon.Neg()) {
		st.addIssue(IssueBuyOvercommit)
	}

	for _, r := range e.checkTokens(ctx, res) {
		st.Tokens = append(st.Tokens, r.row)
		st.Issues = append(st.Issues, r.issues...)
	}

	st.StateClean = Clean(st.Issues)
	e.log.Debugw("reconciled",
		"wallet_usdc", st.WalletUSDC.String(),
		"buy_reserved_usdc", st.BuyReservedUSDC.String(),
		"tokens", len(st.Tokens),
		"clean", st.StateClean,
	)
	return st
}

func (e *Engine) reserve(ctx context.Context, st *State) reservations {
	res := reservations{buyUSDC: decimal.Zero, sell: map[string]decimal.Decimal{}}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	orders, err := e.orders.ListOpenOrders(cctx)
	cancel()
	if err != nil {
		e.log.Warnw("open orders unavailable", "err", err)
		st.addIssue(IssueOrdersUnavailable)
		return res
	}

	tracked := map[string]struct{}{}
	for _, o := range orders {
		if !o.Status.Reserves() {
			continue
		}
		f, err := o.Parse()
		if err != nil {
			e.log.Warnw("skipping malformed order", "order", o.ID, "err", err)
			st.addIssue(IssueOrderSkipped + ":" + market.Prefix(o.ID))
			continue
		}
		if f.TokenID != "" {
			tracked[f.TokenID] = struct{}{}
		}
		switch f.Side {
		case market.Sell:
			if f.TokenID != "" {
				res.sell[f.TokenID] = res.sell[f.TokenID].Add(f.Remaining)
			}
		case market.Buy:
			res.buyUSDC = res.buyUSDC.Add(f.Notional())
		}
	}

	for tok := range tracked {
		res.tokens = append(res.tokens, tok)
	}
	sort.Strings(res.tokens)
	return res
}

// checkTokens runs the per-token checks concurrently. Results keep the
// sorted token order.
func (e *Engine) checkTokens(ctx context.Context, res reservations) []tokenResult {
	out := make([]tokenResult, len(res.tokens))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, tok := range res.tokens {
		i, tok := i, tok
		reserved := res.sell[tok]
		g.Go(func() error {
			out[i] = e.checkTokenSafe(ctx, tok, reserved)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Engine) checkTokenSafe(ctx context.Context, tokenID string, reserved decimal.Decimal) (r tokenResult) {
	defer func() {
		if p := recover(); p != nil {
			e.log.Errorw("token check aborted", "token", tokenID, "panic", p)
			r = tokenResult{
				row: TokenReservation{
					TokenID:       tokenID,
					WalletBalance: decimal.Zero,
					SellReserved:  reserved,
					FreeBalance:   reserved.Neg(),
					BookStatus:    BookError,
				},
				issues: []string{TokenIssue(IssueBalanceUnavailable, tokenID)},
			}
			if r.row.FreeBalance.LessThan(market.Epsilon.Neg()) {
				r.issues = append(r.issues, TokenIssue(IssuePositionMismatch, tokenID))
			}
		}
	}()
	return e.checkToken(ctx, tokenID, reserved)
}

func (e *Engine) checkToken(ctx context.Context, tokenID string, reserved decimal.Decimal) tokenResult {
	r := tokenResult{row: TokenReservation{TokenID: tokenID, SellReserved: reserved}}

	bal, err := e.balance(ctx, market.Conditional, tokenID)
	if err != nil {
		e.log.Warnw("token balance unavailable", "token", tokenID, "err", err)
		r.issues = append(r.issues, TokenIssue(IssueBalanceUnavailable, tokenID))
		bal = decimal.Zero
	}
	r.row.WalletBalance = bal
	r.row.FreeBalance = bal.Sub(reserved)
	if r.row.FreeBalance.LessThan(market.Epsilon.Neg()) {
		r.issues = append(r.issues, TokenIssue(IssuePositionMismatch, tokenID))
	}

	r.row.BookStatus = e.bookStatus(ctx, tokenID)
	if r.row.BookStatus == BookError && bal.IsPositive() {
		r.issues = append(r.issues, TokenIssue(IssueUnexitableInventory, tokenID))
	}
	return r
}

func (e *Engine) bookStatus(ctx context.Context, tokenID string) BookStatus {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	book, err := e.books.GetOrderBook(cctx, tokenID)
	if err != nil {
		e.log.Warnw("order book unavailable", "token", tokenID, "err", err)
		return BookError
	}
	if book.Empty() {
		return BookStaleOrEmpty
	}
	return BookOK
}

func (e *Engine) balance(ctx context.Context, kind market.AssetKind, tokenID string) (decimal.Decimal, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	resp, err := e.balances.GetBalance(cctx, kind, tokenID)
	if err != nil {
		return decimal.Zero, err
	}
	amt, err := market.ParseMicro(resp.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s balance: %w", kind, err)
	}
	return amt, nil
}
