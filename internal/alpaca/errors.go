package alpaca

import (
	"fmt"
	"strings"
)

// APIError is a non-2xx broker response that maps to no more specific kind.
type APIError struct {
	StatusCode int
	Status     string
	URL        string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alpaca: HTTP %d %s %s: %s", e.StatusCode, e.Status, e.URL, e.Message)
}

// ValidationError is a 422 rejection. Violations carries each data[].message
// from the response body.
type ValidationError struct {
	Message    string
	Violations []string
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "alpaca: validation failed: " + e.Message
	}
	return fmt.Sprintf("alpaca: validation failed: %s (%s)", e.Message, strings.Join(e.Violations, "; "))
}

// InsufficientFundsError is a 400/403 whose message names buying power.
type InsufficientFundsError struct {
	Message string
}

func (e *InsufficientFundsError) Error() string {
	return "alpaca: insufficient buying power: " + e.Message
}
