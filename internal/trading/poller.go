package trading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/openquiver/congresstrader/internal/alpaca"
	"github.com/openquiver/congresstrader/internal/database"
)

// Broker is the slice of the Alpaca client the trading package drives.
type Broker interface {
	SubmitOrder(ctx context.Context, req alpaca.OrderRequest) (*alpaca.Order, error)
	GetOrder(ctx context.Context, id string) (*alpaca.Order, error)
	GetOrderByClientID(ctx context.Context, clientOrderID string) (*alpaca.Order, error)
	GetLatestTrade(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Poller advances a trade to a terminal status by re-fetching its order with
// exponential backoff, persisting each observed transition.
type Poller struct {
	trades *database.TradeRepository
	broker Broker

	Timeout      time.Duration
	InitialDelay time.Duration
	Backoff      float64
	MaxDelay     time.Duration
}

func NewPoller(trades *database.TradeRepository, broker Broker) *Poller {
	return &Poller{
		trades:       trades,
		broker:       broker,
		Timeout:      60 * time.Second,
		InitialDelay: 1 * time.Second,
		Backoff:      1.6,
		MaxDelay:     5 * time.Second,
	}
}

// PollResult is the final observed state of one polling loop.
type PollResult struct {
	Order      *alpaca.Order
	Status     database.TradeStatus
	Attempts   int
	DurationMS int64
	TimedOut   bool
}

// Poll fetches the order (by broker id when available, else by client id)
// until its status is terminal or the timeout elapses. On timeout with at
// least one response observed, the last state is returned with TimedOut set;
// with no response at all, an error is returned.
func (p *Poller) Poll(ctx context.Context, tradeID, brokerOrderID, clientOrderID string) (*PollResult, error) {
	if brokerOrderID == "" && clientOrderID == "" {
		return nil, errors.New("trading: poll requires a broker order id or client order id")
	}

	start := time.Now()
	delay := p.InitialDelay
	var (
		last     *alpaca.Order
		lastStat database.TradeStatus
		attempts int
		lastErr  error
	)

	for time.Since(start) < p.Timeout {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			order *alpaca.Order
			err   error
		)
		if brokerOrderID != "" {
			order, err = p.broker.GetOrder(ctx, brokerOrderID)
		} else {
			order, err = p.broker.GetOrderByClientID(ctx, clientOrderID)
		}
		attempts++

		if err != nil {
			lastErr = err
			log.Warn().Err(err).Str("trade_id", tradeID).Msg("Order poll fetch failed")
		} else {
			last = order
			lastStat = MapOrderStatus(order.Status)
			if err := p.trades.Update(tradeID, orderPatch(order, lastStat)); err != nil {
				return nil, fmt.Errorf("trading: persist poll update: %w", err)
			}
			if database.IsTerminal(lastStat) {
				return &PollResult{
					Order:      order,
					Status:     lastStat,
					Attempts:   attempts,
					DurationMS: time.Since(start).Milliseconds(),
				}, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(math.Min(
			math.Round(float64(delay)*p.Backoff),
			float64(p.MaxDelay),
		))
	}

	if last == nil {
		if lastErr != nil {
			return nil, fmt.Errorf("trading: poll timed out with no response: %w", lastErr)
		}
		return nil, errors.New("trading: poll timed out with no response")
	}
	return &PollResult{
		Order:      last,
		Status:     lastStat,
		Attempts:   attempts,
		DurationMS: time.Since(start).Milliseconds(),
		TimedOut:   true,
	}, nil
}

// orderPatch derives the trade row update for an observed order state.
func orderPatch(order *alpaca.Order, status database.TradeStatus) map[string]any {
	patch := map[string]any{
		"status":         string(status),
		"raw_order_json": string(order.Raw),
		"updated_at":     time.Now().UTC(),
	}
	if order.ID != "" {
		patch["alpaca_order_id"] = order.ID
	}
	if d, ok := parseDecimal(order.FilledQty); ok {
		patch["filled_qty"] = d
	}
	if order.FilledAvgPrice != nil {
		if d, ok := parseDecimal(*order.FilledAvgPrice); ok {
			patch["filled_avg_price"] = d
		}
	}
	if order.SubmittedAt != nil {
		patch["submitted_at"] = *order.SubmittedAt
	}
	if order.FilledAt != nil {
		patch["filled_at"] = *order.FilledAt
	}
	if order.CanceledAt != nil {
		patch["canceled_at"] = *order.CanceledAt
	}
	if status == database.TradeStatusFailed && order.FailedAt != nil {
		patch["failed_at"] = *order.FailedAt
	}
	return patch
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
