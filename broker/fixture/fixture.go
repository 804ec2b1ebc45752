// Package fixture is an in-memory exchange used for offline dry runs and
// tests. State is loaded from a YAML or JSON file or set directly.
package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rustyeddy/polygate/broker"
	"github.com/rustyeddy/polygate/market"
	"gopkg.in/yaml.v3"
)

var (
	ErrBookNotFound    = errors.New("order book not found")
	ErrUnavailable     = errors.New("source unavailable")
	ErrBalanceNotFound = errors.New("balance not found")
)

// State is the serialisable content of a fixture exchange.
type State struct {
	Collateral string                      `json:"collateral" yaml:"collateral"`
	Tokens     map[string]string           `json:"tokens" yaml:"tokens"`
	Orders     []market.OpenOrder          `json:"orders" yaml:"orders"`
	Books      map[string]market.OrderBook `json:"books" yaml:"books"`

	// Markets and Trades (last trade unix time per token) back the
	// in-process snapshot collector.
	Markets []market.Listing `json:"markets,omitempty" yaml:"markets,omitempty"`
	Trades  map[string]int64 `json:"trades,omitempty" yaml:"trades,omitempty"`

	// Failing names calls that should return ErrUnavailable:
	// "collateral", "orders", "balance:<token>", "book:<token>",
	// "markets", "trades:<token>".
	Failing []string `json:"failing,omitempty" yaml:"failing,omitempty"`
}

type Exchange struct {
	mu    sync.RWMutex
	state State
	fail  map[string]bool
}

var _ broker.Exchange = (*Exchange)(nil)

func New(st State) *Exchange {
	e := &Exchange{}
	e.Set(st)
	return e
}

// Load reads a fixture file, trying YAML first and falling back to JSON.
func Load(path string) (*Exchange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		if jerr := json.Unmarshal(data, &st); jerr != nil {
			return nil, fmt.Errorf("parse fixture (tried YAML and JSON): %w", jerr)
		}
	}
	return New(st), nil
}

func (e *Exchange) Set(st State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = st
	e.fail = make(map[string]bool, len(st.Failing))
	for _, k := range st.Failing {
		e.fail[k] = true
	}
}

func (e *Exchange) GetBalance(ctx context.Context, kind market.AssetKind, tokenID string) (broker.Balance, error) {
	if err := ctx.Err(); err != nil {
		return broker.Balance{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	if kind == market.Collateral {
		if e.fail["collateral"] {
			return broker.Balance{}, ErrUnavailable
		}
		return broker.Balance{Balance: e.state.Collateral}, nil
	}
	if e.fail["balance:"+tokenID] {
		return broker.Balance{}, ErrUnavailable
	}
	bal, ok := e.state.Tokens[tokenID]
	if !ok {
		return broker.Balance{Balance: "0"}, nil
	}
	return broker.Balance{Balance: bal}, nil
}

func (e *Exchange) ListOpenOrders(ctx context.Context) ([]market.OpenOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.fail["orders"] {
		return nil, ErrUnavailable
	}
	out := make([]market.OpenOrder, len(e.state.Orders))
	copy(out, e.state.Orders)
	return out, nil
}

func (e *Exchange) GetOrderBook(ctx context.Context, tokenID string) (market.OrderBook, error) {
	if err := ctx.Err(); err != nil {
		return market.OrderBook{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.fail["book:"+tokenID] {
		return market.OrderBook{}, ErrUnavailable
	}
	b, ok := e.state.Books[tokenID]
	if !ok {
		return market.OrderBook{}, fmt.Errorf("%w: %s", ErrBookNotFound, tokenID)
	}
	return b, nil
}

// ListMarkets pages through the fixture markets.
func (e *Exchange) ListMarkets(ctx context.Context, offset, limit int) ([]market.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.fail["markets"] {
		return nil, ErrUnavailable
	}
	if offset >= len(e.state.Markets) {
		return nil, nil
	}
	end := len(e.state.Markets)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]market.Listing, end-offset)
	copy(out, e.state.Markets[offset:end])
	return out, nil
}

// LastTradeTS returns the recorded trade time if it is after since, else 0.
func (e *Exchange) LastTradeTS(ctx context.Context, tokenID string, since time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.fail["trades:"+tokenID] {
		return 0, ErrUnavailable
	}
	ts := e.state.Trades[tokenID]
	if ts < since.Unix() {
		return 0, nil
	}
	return ts, nil
}
