package trading

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/openquiver/congresstrader/internal/alpaca"
	"github.com/openquiver/congresstrader/internal/database"
	"github.com/openquiver/congresstrader/internal/timeutil"
)

func etDay(t *testing.T, key string) time.Time {
	t.Helper()
	d, err := timeutil.EnsureDate(key)
	require.NoError(t, err)
	return d
}

func testDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "trading_test.db"))
	require.NoError(t, err)
	return db
}

// orderJSON builds an alpaca.Order the way the client would: through
// UnmarshalJSON, so Raw is populated.
func orderJSON(t *testing.T, raw string) *alpaca.Order {
	t.Helper()
	var o alpaca.Order
	require.NoError(t, json.Unmarshal([]byte(raw), &o))
	return &o
}

// fakeBroker scripts broker behavior per call.
type fakeBroker struct {
	submitResponses []func(req alpaca.OrderRequest) (*alpaca.Order, error)
	submitCalls     []alpaca.OrderRequest

	getOrderResponses []func(id string) (*alpaca.Order, error)
	getOrderCalls     int

	latestPrice decimal.Decimal
	latestErr   error
}

func (f *fakeBroker) SubmitOrder(_ context.Context, req alpaca.OrderRequest) (*alpaca.Order, error) {
	f.submitCalls = append(f.submitCalls, req)
	if len(f.submitResponses) == 0 {
		return nil, &alpaca.APIError{StatusCode: 500, Message: "unscripted submit"}
	}
	fn := f.submitResponses[0]
	f.submitResponses = f.submitResponses[1:]
	return fn(req)
}

func (f *fakeBroker) GetOrder(_ context.Context, id string) (*alpaca.Order, error) {
	f.getOrderCalls++
	if len(f.getOrderResponses) == 0 {
		return nil, &alpaca.APIError{StatusCode: 500, Message: "unscripted get"}
	}
	fn := f.getOrderResponses[0]
	if len(f.getOrderResponses) > 1 {
		f.getOrderResponses = f.getOrderResponses[1:]
	}
	return fn(id)
}

func (f *fakeBroker) GetOrderByClientID(ctx context.Context, cid string) (*alpaca.Order, error) {
	return f.GetOrder(ctx, cid)
}

func (f *fakeBroker) GetLatestTrade(_ context.Context, symbol string) (decimal.Decimal, error) {
	return f.latestPrice, f.latestErr
}

// scriptedOrder returns a responder that always succeeds with the given order.
func scriptedOrder(o *alpaca.Order) func(alpaca.OrderRequest) (*alpaca.Order, error) {
	return func(alpaca.OrderRequest) (*alpaca.Order, error) { return o, nil }
}
