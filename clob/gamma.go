package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rustyeddy/polygate/market"
)

// TokenIDs accepts clobTokenIds either as a JSON array or as a string
// containing one.
type TokenIDs []string

func (t *TokenIDs) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*t = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("clobTokenIds: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		*t = nil
		return nil
	}
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		// An unparsable list is treated as no tokens.
		*t = nil
		return nil
	}
	*t = arr
	return nil
}

type GammaMarket struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	Slug         string   `json:"slug"`
	ClobTokenIDs TokenIDs `json:"clobTokenIds"`
}

type Gamma struct {
	baseURL    string
	httpClient *http.Client
}

func NewGamma(baseURL string, timeout time.Duration) *Gamma {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultGammaURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Gamma{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}
}

// ListMarkets returns one page of active, open markets ordered by volume.
func (g *Gamma) ListMarkets(ctx context.Context, offset, limit int) ([]market.Listing, error) {
	params := url.Values{}
	params.Set("limit", itoa(limit))
	params.Set("offset", itoa(offset))
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("order", "volume")
	params.Set("ascending", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/markets?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var raw []GammaMarket
	if err := doJSON(g.httpClient, req, &raw); err != nil {
		return nil, err
	}
	out := make([]market.Listing, 0, len(raw))
	for _, m := range raw {
		out = append(out, market.Listing{ID: m.ID, Question: m.Question, TokenIDs: []string(m.ClobTokenIDs)})
	}
	return out, nil
}
