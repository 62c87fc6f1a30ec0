// Package quiver fetches congressional trading disclosures from the Quiver
// bulk API.
package quiver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/openquiver/congresstrader/internal/httpx"
	"github.com/openquiver/congresstrader/internal/timeutil"
)

const DefaultBaseURL = "https://api.quiverquant.com/beta"

// RawFiling is one upstream disclosure record. Raw keeps the untouched JSON
// for persistence; business logic only reads the named fields.
type RawFiling struct {
	Ticker      string  `json:"Ticker"`
	Name        string  `json:"Name"`
	Transaction string  `json:"Transaction"`
	Filed       string  `json:"Filed"`
	Traded      string  `json:"Traded"`
	Party       *string `json:"Party"`

	Raw json.RawMessage `json:"-"`
}

func (f *RawFiling) UnmarshalJSON(data []byte) error {
	type alias RawFiling
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*f = RawFiling(a)
	f.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// TransportError is a non-retryable upstream failure.
type TransportError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string // first KiB of the response body
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("quiver: HTTP %d %s %s: %s", e.StatusCode, e.Status, e.URL, e.Body)
}

// Client talks to the Quiver bulk congressional trading endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpx.NewClient(),
	}
}

// GetFilingsByDate returns every disclosure published on the given Eastern
// civil day, in upstream order. An empty body or a non-array payload yields an
// empty slice.
func (c *Client) GetFilingsByDate(ctx context.Context, day time.Time) ([]RawFiling, error) {
	url := fmt.Sprintf("%s/bulk/congresstrading?date=%s", c.baseURL, timeutil.DateKeyCompact(day))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quiver: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("quiver: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := body
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        url,
			Body:       string(snippet),
		}
	}

	if len(body) == 0 {
		return []RawFiling{}, nil
	}

	var filings []RawFiling
	if err := json.Unmarshal(body, &filings); err != nil {
		log.Warn().
			Str("url", url).
			Err(err).
			Msg("Quiver returned non-array payload, treating as empty")
		return []RawFiling{}, nil
	}
	return filings, nil
}
