// Package clob is a read-only client for the Polymarket CLOB REST API and
// the Gamma market listing API. It implements the balance, order and book
// sources consumed by the reconciliation engine. It never places orders.
package clob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/polygate/broker"
)

const (
	// DefaultBaseURL is the production CLOB endpoint.
	DefaultBaseURL = "https://clob.polymarket.com"
	// DefaultGammaURL is the production market listing endpoint.
	DefaultGammaURL = "https://gamma-api.polymarket.com"

	initialCursor = "MA=="
	endCursor     = "LTE="
	maxPages      = 50
)

var (
	ErrNotFound      = errors.New("clob: not found")
	ErrNoCredentials = errors.New("clob: API credentials required")
	ErrTooManyPages  = errors.New("clob: pagination did not terminate")
	errEmptyTokenID  = errors.New("clob: token id is required")
)

var _ broker.Exchange = (*Client)(nil)

// APIError is returned for any non-2xx response other than 404.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clob: http %d: %s", e.Status, e.Body)
}

type Config struct {
	BaseURL string
	// Address is the wallet (funder) address sent as POLY_ADDRESS.
	Address       string
	Credentials   Credentials
	SignatureType int
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Client represents a CLOB API client
type Client struct {
	baseURL       string
	address       string
	creds         Credentials
	signatureType int
	httpClient    *http.Client
	now           func() time.Time
}

// NewClient creates a new CLOB API client
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:       baseURL,
		address:       cfg.Address,
		creds:         cfg.Credentials,
		signatureType: cfg.SignatureType,
		httpClient:    hc,
		now:           time.Now,
	}
}

// get issues a GET and decodes the JSON body into out. Authenticated calls
// carry L2 headers computed over the path (query excluded).
func (c *Client) get(ctx context.Context, path string, params url.Values, auth bool, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		if !c.creds.Valid() {
			return ErrNoCredentials
		}
		hdr, err := c.creds.headers(c.address, http.MethodGet, path, c.now())
		if err != nil {
			return err
		}
		for k, v := range hdr {
			req.Header.Set(k, v)
		}
	}
	return doJSON(c.httpClient, req, out)
}

func doJSON(hc *http.Client, req *http.Request, out any) error {
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, req.URL.Path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type page[T any] struct {
	Data       []T    `json:"data"`
	NextCursor string `json:"next_cursor"`
}

// paginate follows next_cursor until the end marker.
func paginate[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	if params == nil {
		params = url.Values{}
	}
	cursor := initialCursor
	var out []T
	for i := 0; i < maxPages; i++ {
		params.Set("next_cursor", cursor)
		var p page[T]
		if err := c.get(ctx, path, params, true, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Data...)
		if p.NextCursor == "" || p.NextCursor == endCursor {
			return out, nil
		}
		cursor = p.NextCursor
	}
	return nil, ErrTooManyPages
}

func itoa(n int) string { return strconv.Itoa(n) }
