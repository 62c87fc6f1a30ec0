// Package httpx builds the retrying HTTP clients shared by the upstream feed
// and the brokerage API.
package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultTimeout = 15 * time.Second
	retryMax       = 2
	retryWaitMin   = 250 * time.Millisecond
	retryWaitMax   = 2 * time.Second
)

// Transient status codes worth a retry. Everything else surfaces immediately.
var retryStatus = map[int]bool{
	http.StatusRequestTimeout:      true, // 408
	http.StatusTooEarly:            true, // 425
	http.StatusTooManyRequests:     true, // 429
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

// NewClient returns a retryablehttp client with the worker's shared policy:
// 15s timeout, 2 retries, exponential backoff from 250ms.
func NewClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.Logger = nil
	c.RetryMax = retryMax
	c.RetryWaitMin = retryWaitMin
	c.RetryWaitMax = retryWaitMax
	c.HTTPClient.Timeout = defaultTimeout
	c.CheckRetry = checkRetry
	return c
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		// Network-level failure.
		return true, nil
	}
	return resp != nil && retryStatus[resp.StatusCode], nil
}
