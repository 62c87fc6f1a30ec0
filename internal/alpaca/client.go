// Package alpaca is a minimal Alpaca trading + market-data client covering
// the order, clock, calendar, account and latest-trade endpoints the worker
// needs.
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"github.com/openquiver/congresstrader/internal/httpx"
)

const (
	DefaultPaperBaseURL = "https://paper-api.alpaca.markets"
	DefaultDataBaseURL  = "https://data.alpaca.markets"
)

// Client is reentrant and holds no per-run state.
type Client struct {
	baseURL     string
	dataBaseURL string
	keyID       string
	secretKey   string
	http        *retryablehttp.Client
}

func NewClient(baseURL, dataBaseURL, keyID, secretKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultPaperBaseURL
	}
	if dataBaseURL == "" {
		dataBaseURL = DefaultDataBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		dataBaseURL: dataBaseURL,
		keyID:       keyID,
		secretKey:   secretKey,
		http:        httpx.NewClient(),
	}
}

// Shared process-wide client. Tests swap it via Replace/Reset.
var (
	sharedMu sync.Mutex
	shared   *Client
)

// Shared returns the cached process-wide client, constructing it on first use.
func Shared(baseURL, dataBaseURL, keyID, secretKey string) *Client {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared == nil {
		shared = NewClient(baseURL, dataBaseURL, keyID, secretKey)
	}
	return shared
}

// Replace swaps the cached shared client.
func Replace(c *Client) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	shared = c
}

// Reset drops the cached shared client.
func Reset() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	shared = nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("APCA-API-KEY-ID", c.keyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.secretKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("alpaca: %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("alpaca: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.mapError(resp, rawURL, payload)
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("alpaca: decode %s: %w", rawURL, err)
		}
	}
	return nil
}

// mapError classifies a non-2xx response into the typed failure kinds the
// submitter branches on.
func (c *Client) mapError(resp *http.Response, rawURL string, payload []byte) error {
	var parsed struct {
		Message string `json:"message"`
		Data    []struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	_ = json.Unmarshal(payload, &parsed)

	switch resp.StatusCode {
	case http.StatusUnprocessableEntity:
		violations := make([]string, 0, len(parsed.Data))
		for _, d := range parsed.Data {
			if d.Message != "" {
				violations = append(violations, d.Message)
			}
		}
		return &ValidationError{Message: parsed.Message, Violations: violations}
	case http.StatusBadRequest, http.StatusForbidden:
		if strings.Contains(strings.ToLower(parsed.Message), "buying power") {
			return &InsufficientFundsError{Message: parsed.Message}
		}
	}

	snippet := payload
	if len(snippet) > 1024 {
		snippet = snippet[:1024]
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		URL:        rawURL,
		Message:    parsed.Message,
		Body:       string(snippet),
	}
}

// SubmitOrder places an order. 422 surfaces as *ValidationError; 400/403
// naming buying power as *InsufficientFundsError.
func (c *Client) SubmitOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/v2/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches an order by its Alpaca id.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v2/orders/"+url.PathEscape(id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByClientID fetches an order by the client-supplied idempotency key.
func (c *Client) GetOrderByClientID(ctx context.Context, clientOrderID string) (*Order, error) {
	var order Order
	u := c.baseURL + "/v2/orders:by_client_order_id?client_order_id=" + url.QueryEscape(clientOrderID)
	if err := c.do(ctx, http.MethodGet, u, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetAccount fetches the trading account.
func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	var acct Account
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v2/account", nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// GetPositions fetches all open positions.
func (c *Client) GetPositions(ctx context.Context) ([]Position, error) {
	var positions []Position
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v2/positions", nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// GetLatestTrade returns the last trade price for symbol from the market-data
// host.
func (c *Client) GetLatestTrade(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var out latestTradeResponse
	u := fmt.Sprintf("%s/v2/stocks/%s/trades/latest", c.dataBaseURL, url.PathEscape(symbol))
	if err := c.do(ctx, http.MethodGet, u, nil, &out); err != nil {
		return decimal.Zero, err
	}
	return out.Trade.Price, nil
}

// GetClock fetches the exchange clock.
func (c *Client) GetClock(ctx context.Context) (*Clock, error) {
	var clock Clock
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v2/clock", nil, &clock); err != nil {
		return nil, err
	}
	return &clock, nil
}

// GetCalendar fetches calendar entries, ascending by date. Start and end are
// "YYYY-MM-DD"; either may be empty.
func (c *Client) GetCalendar(ctx context.Context, start, end string, limit int) ([]CalendarDay, error) {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if end != "" {
		q.Set("end", end)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	u := c.baseURL + "/v2/calendar"
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}

	var days []CalendarDay
	if err := c.do(ctx, http.MethodGet, u, nil, &days); err != nil {
		return nil, err
	}
	return days, nil
}
