package clob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rustyeddy/polygate/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{
	APIKey:     "key-1",
	Secret:     base64.URLEncoding.EncodeToString([]byte("super-secret")),
	Passphrase: "pass-1",
}

var testNow = time.Unix(1700000000, 0)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		BaseURL:     srv.URL,
		Address:     "0xabc",
		Credentials: testCreds,
		HTTPClient:  &http.Client{Timeout: 5 * time.Second},
	})
	c.now = func() time.Time { return testNow }
	return c
}

func expectedSig(path string) string {
	mac := hmac.New(sha256.New, []byte("super-secret"))
	mac.Write([]byte("1700000000GET" + path))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{})
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.NotNil(t, c.httpClient)

	c = NewClient(Config{BaseURL: "http://x/ "})
	assert.Equal(t, "http://x", c.baseURL)
}

func TestGetBalance_SendsL2Headers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/balance-allowance", r.URL.Path)
		assert.Equal(t, "CONDITIONAL", r.URL.Query().Get("asset_type"))
		assert.Equal(t, "tok-1", r.URL.Query().Get("token_id"))
		assert.Equal(t, "0", r.URL.Query().Get("signature_type"))

		assert.Equal(t, "0xabc", r.Header.Get("POLY_ADDRESS"))
		assert.Equal(t, "key-1", r.Header.Get("POLY_API_KEY"))
		assert.Equal(t, "pass-1", r.Header.Get("POLY_PASSPHRASE"))
		assert.Equal(t, "1700000000", r.Header.Get("POLY_TIMESTAMP"))
		assert.Equal(t, expectedSig("/balance-allowance"), r.Header.Get("POLY_SIGNATURE"))

		json.NewEncoder(w).Encode(map[string]any{"balance": "5000000", "allowances": map[string]string{"0xex": "1"}})
	})

	bal, err := c.GetBalance(context.Background(), market.Conditional, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "5000000", bal.Balance)
	assert.Equal(t, "1", bal.Allowances["0xex"])
}

func TestGetBalance_RequiresCredentials(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := c.GetBalance(context.Background(), market.Collateral, "")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestListOpenOrders_Paginates(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/orders", r.URL.Path)
		calls++
		switch r.URL.Query().Get("next_cursor") {
		case "MA==":
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{
					{"id": "o1", "status": "live", "asset_id": "t1", "side": "buy", "original_size": "10", "size_matched": "0", "price": "0.4"},
				},
				"next_cursor": "MTAw",
			})
		case "MTAw":
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{
					{"id": "o2", "status": "LIVE", "asset_id": "t2", "side": "SELL", "original_size": "5", "size_matched": "1", "price": "0.6"},
				},
				"next_cursor": "LTE=",
			})
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("next_cursor"))
		}
	})

	orders, err := c.ListOpenOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, market.StatusLive, orders[0].Status)
	assert.Equal(t, market.Buy, orders[0].Side)
	assert.Equal(t, "t2", orders[1].AssetID)
}

func TestGetOrderBook_SortsBestFirst(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/book", r.URL.Path)
		assert.Empty(t, r.Header.Get("POLY_SIGNATURE"))
		w.Write([]byte(`{
			"asset_id": "t1",
			"bids": [{"price":"0.45","size":"10"},{"price":"0.50","size":"100"},{"price":"0.48","size":"5"}],
			"asks": [{"price":"0.60","size":"1"},{"price":"0.51","size":"7"}]
		}`))
	})

	book, err := c.GetOrderBook(context.Background(), "t1")
	require.NoError(t, err)
	px, sz := market.Best(book.Bids)
	assert.Equal(t, "0.5", px.String())
	assert.Equal(t, "100", sz.String())
	px, _ = market.Best(book.Asks)
	assert.Equal(t, "0.51", px.String())
}

func TestGetOrderBook_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"No orderbook exists"}`, http.StatusNotFound)
	})

	_, err := c.GetOrderBook(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetOrderBook(context.Background(), "")
	assert.Error(t, err)
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := c.GetOrderBook(context.Background(), "t1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Contains(t, apiErr.Body, "rate limited")
}

func TestLastTradeTS(t *testing.T) {
	since := time.Unix(1699990000, 0)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/trades", r.URL.Path)
		assert.Equal(t, "t1", r.URL.Query().Get("asset_id"))
		assert.Equal(t, "1699990000", r.URL.Query().Get("after"))
		w.Write([]byte(`{"data":[
			{"id":"a","match_time":"1699995000"},
			{"id":"b","match_time":"bogus"},
			{"id":"c","match_time":"1699999000"}
		],"next_cursor":"LTE="}`))
	})

	ts, err := c.LastTradeTS(context.Background(), "t1", since)
	require.NoError(t, err)
	assert.Equal(t, int64(1699999000), ts)
}

func TestCredentialsSignRawSecret(t *testing.T) {
	raw := Credentials{Secret: base64.RawURLEncoding.EncodeToString([]byte("super-secret"))}
	sig, err := raw.Sign(1700000000, "GET", "/x", "")
	require.NoError(t, err)

	padded := Credentials{Secret: testCreds.Secret}
	want, err := padded.Sign(1700000000, "GET", "/x", "")
	require.NoError(t, err)
	assert.Equal(t, want, sig)

	_, err = Credentials{Secret: "!!!"}.Sign(1, "GET", "/", "")
	assert.Error(t, err)
}

func TestGammaListMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "200", q.Get("offset"))
		assert.Equal(t, "true", q.Get("active"))
		assert.Equal(t, "false", q.Get("closed"))
		assert.Equal(t, "volume", q.Get("order"))
		w.Write([]byte(`[
			{"id":"1","question":"Will Bitcoin hit 100k?","clobTokenIds":"[\"y1\",\"n1\"]"},
			{"id":"2","question":"Array form","clobTokenIds":["y2","n2"]},
			{"id":"3","question":"Broken","clobTokenIds":"not json"},
			{"id":"4","question":"Missing"}
		]`))
	}))
	defer srv.Close()

	g := NewGamma(srv.URL, time.Second)
	mkts, err := g.ListMarkets(context.Background(), 200, 100)
	require.NoError(t, err)
	require.Len(t, mkts, 4)
	assert.Equal(t, []string{"y1", "n1"}, mkts[0].TokenIDs)
	assert.Equal(t, []string{"y2", "n2"}, mkts[1].TokenIDs)
	assert.Empty(t, mkts[2].TokenIDs)
	assert.Empty(t, mkts[3].TokenIDs)
}
