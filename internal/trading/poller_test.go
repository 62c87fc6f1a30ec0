package trading

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openquiver/congresstrader/internal/alpaca"
	"github.com/openquiver/congresstrader/internal/database"
)

func newAttempt(t *testing.T, trades *database.TradeRepository, status database.TradeStatus) *database.Trade {
	t.Helper()
	attempt := &database.Trade{
		ID:            uuid.NewString(),
		SourceHash:    uuid.NewString(), // unique per test row
		ClientOrderID: "client-1",
		Symbol:        "AAPL",
		Side:          "BUY",
		OrderType:     "MARKET",
		TimeInForce:   "DAY",
		Status:        status,
	}
	require.NoError(t, trades.CreateAttempt(attempt))
	return attempt
}

func fastPoller(trades *database.TradeRepository, broker Broker) *Poller {
	p := NewPoller(trades, broker)
	p.Timeout = 500 * time.Millisecond
	p.InitialDelay = 5 * time.Millisecond
	p.MaxDelay = 20 * time.Millisecond
	return p
}

func TestPollAdvancesToTerminal(t *testing.T) {
	db := testDB(t)
	trades := database.NewTradeRepository(db)
	attempt := newAttempt(t, trades, database.TradeStatusNew)

	broker := &fakeBroker{
		getOrderResponses: []func(string) (*alpaca.Order, error){
			func(string) (*alpaca.Order, error) {
				return orderJSON(t, `{"id":"ord-1","status":"accepted","filled_qty":"0"}`), nil
			},
			func(string) (*alpaca.Order, error) {
				return orderJSON(t, `{"id":"ord-1","status":"partially_filled","filled_qty":"1"}`), nil
			},
			func(string) (*alpaca.Order, error) {
				return orderJSON(t, `{"id":"ord-1","status":"filled","filled_qty":"3","filled_avg_price":"310.25","filled_at":"2024-02-16T14:31:00Z"}`), nil
			},
		},
	}

	res, err := fastPoller(trades, broker).Poll(context.Background(), attempt.ID, "ord-1", "client-1")
	require.NoError(t, err)
	assert.Equal(t, database.TradeStatusFilled, res.Status)
	assert.False(t, res.TimedOut)
	assert.Equal(t, 3, res.Attempts)

	row, err := trades.FindBySourceHash(attempt.SourceHash)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, database.TradeStatusFilled, row.Status)
	require.NotNil(t, row.FilledQty)
	assert.Equal(t, "3", row.FilledQty.String())
	require.NotNil(t, row.FilledAvgPrice)
	assert.Equal(t, "310.25", row.FilledAvgPrice.String())
	require.NotNil(t, row.FilledAt)
	assert.NotEmpty(t, row.RawOrderJSON)
}

func TestPollTimesOutWithLastState(t *testing.T) {
	db := testDB(t)
	trades := database.NewTradeRepository(db)
	attempt := newAttempt(t, trades, database.TradeStatusNew)

	broker := &fakeBroker{
		getOrderResponses: []func(string) (*alpaca.Order, error){
			func(string) (*alpaca.Order, error) {
				return orderJSON(t, `{"id":"ord-1","status":"accepted","filled_qty":"0"}`), nil
			},
		},
	}

	res, err := fastPoller(trades, broker).Poll(context.Background(), attempt.ID, "ord-1", "")
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, database.TradeStatusAccepted, res.Status)
	assert.Greater(t, res.Attempts, 1)
}

func TestPollNoResponseEver(t *testing.T) {
	db := testDB(t)
	trades := database.NewTradeRepository(db)
	attempt := newAttempt(t, trades, database.TradeStatusNew)

	broker := &fakeBroker{} // every fetch errors

	_, err := fastPoller(trades, broker).Poll(context.Background(), attempt.ID, "ord-1", "")
	require.Error(t, err)
}

func TestPollRequiresSomeOrderID(t *testing.T) {
	db := testDB(t)
	trades := database.NewTradeRepository(db)

	_, err := fastPoller(trades, &fakeBroker{}).Poll(context.Background(), "trade-id", "", "")
	require.Error(t, err)
}

func TestPollPrefersBrokerID(t *testing.T) {
	db := testDB(t)
	trades := database.NewTradeRepository(db)
	attempt := newAttempt(t, trades, database.TradeStatusNew)

	var sawID string
	broker := &fakeBroker{
		getOrderResponses: []func(string) (*alpaca.Order, error){
			func(id string) (*alpaca.Order, error) {
				sawID = id
				return orderJSON(t, `{"id":"ord-9","status":"filled","filled_qty":"1"}`), nil
			},
		},
	}

	_, err := fastPoller(trades, broker).Poll(context.Background(), attempt.ID, "ord-9", "client-1")
	require.NoError(t, err)
	assert.Equal(t, "ord-9", sawID)
}
