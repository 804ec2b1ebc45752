package reconcile

import (
	"encoding/json"
	"strings"

	"github.com/rustyeddy/polygate/market"
)

// StateVersion is bumped whenever the State layout changes.
const StateVersion = 1

type BookStatus string

const (
	BookOK           BookStatus = "OK"
	BookStaleOrEmpty BookStatus = "STALE_OR_EMPTY"
	BookError        BookStatus = "404_OR_ERROR"
)

// Issues that make a state unclean.
const (
	IssueBuyOvercommit       = "BUY_USDC_OVERCOMMIT"
	IssuePositionMismatch    = "POSITION_MISMATCH"
	IssueUnexitableInventory = "UNEXITABLE_INVENTORY"
)

// Informational issues. They leave StateClean alone, but the preflight gate
// treats any *_UNAVAILABLE issue as missing data.
const (
	IssueCollateralUnavailable = "COLLATERAL_UNAVAILABLE"
	IssueOrdersUnavailable     = "OPEN_ORDERS_UNAVAILABLE"
	IssueBalanceUnavailable    = "BALANCE_UNAVAILABLE"
	IssueReconcileUnavailable  = "RECONCILE_UNAVAILABLE"
	IssueOrderSkipped          = "ORDER_SKIPPED"
)

// TokenIssue formats a per-token issue as KIND:<token prefix>.
func TokenIssue(kind, tokenID string) string {
	return kind + ":" + market.Prefix(tokenID)
}

// IssueKind strips the ":<prefix>" suffix from an issue string.
func IssueKind(issue string) string {
	kind, _, _ := strings.Cut(issue, ":")
	return kind
}

// Clean reports whether none of the issues disqualify a state.
func Clean(issues []string) bool {
	for _, is := range issues {
		switch IssueKind(is) {
		case IssueBuyOvercommit, IssuePositionMismatch, IssueUnexitableInventory:
			return false
		}
	}
	return true
}

// Unavailable reports whether a source outage was recorded.
func Unavailable(issues []string) bool {
	for _, is := range issues {
		if strings.HasSuffix(IssueKind(is), "_UNAVAILABLE") {
			return true
		}
	}
	return false
}

type TokenReservation struct {
	TokenID       string
	WalletBalance market.Amount
	SellReserved  market.Amount
	FreeBalance   market.Amount
	BookStatus    BookStatus
}

// State is the accounting view produced by one reconciliation pass.
type State struct {
	TS              int64
	StateVersion    int
	WalletUSDC      market.Amount
	BuyReservedUSDC market.Amount
	FreeUSDC        market.Amount
	Tokens          []TokenReservation
	StateClean      bool
	Issues          []string
}

func (s *State) addIssue(issue string) {
	s.Issues = append(s.Issues, issue)
}

type tokenJSON struct {
	TokenID       string     `json:"token_id"`
	WalletBalance float64    `json:"wallet_balance"`
	SellReserved  float64    `json:"sell_reserved"`
	FreeBalance   float64    `json:"free_balance"`
	BookStatus    BookStatus `json:"book_status"`
}

type stateJSON struct {
	TS              int64       `json:"ts"`
	StateVersion    int         `json:"state_version"`
	WalletUSDC      float64     `json:"wallet_usdc"`
	BuyReservedUSDC float64     `json:"buy_reserved_usdc"`
	FreeUSDC        float64     `json:"free_usdc"`
	Tokens          []tokenJSON `json:"tokens"`
	StateClean      bool        `json:"state_clean"`
	Issues          []string    `json:"issues"`
}

// MarshalJSON rounds amounts to micro precision for display.
func (s State) MarshalJSON() ([]byte, error) {
	out := stateJSON{
		TS:              s.TS,
		StateVersion:    s.StateVersion,
		WalletUSDC:      market.Float(s.WalletUSDC, market.MicroDecimals),
		BuyReservedUSDC: market.Float(s.BuyReservedUSDC, market.MicroDecimals),
		FreeUSDC:        market.Float(s.FreeUSDC, market.MicroDecimals),
		Tokens:          make([]tokenJSON, 0, len(s.Tokens)),
		StateClean:      s.StateClean,
		Issues:          s.Issues,
	}
	if out.Issues == nil {
		out.Issues = []string{}
	}
	for _, t := range s.Tokens {
		out.Tokens = append(out.Tokens, tokenJSON{
			TokenID:       t.TokenID,
			WalletBalance: market.Float(t.WalletBalance, market.MicroDecimals),
			SellReserved:  market.Float(t.SellReserved, market.MicroDecimals),
			FreeBalance:   market.Float(t.FreeBalance, market.MicroDecimals),
			BookStatus:    t.BookStatus,
		})
	}
	return json.Marshal(out)
}
