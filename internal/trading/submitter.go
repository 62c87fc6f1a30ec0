// Package trading submits mirrored buy orders and tracks them to a terminal
// status.
package trading

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openquiver/congresstrader/internal/alpaca"
	"github.com/openquiver/congresstrader/internal/database"
	"github.com/openquiver/congresstrader/internal/guardrail"
)

// fallbackPattern marks the broker validation rejections that mean "this
// asset cannot be bought by notional", triggering the whole-share retry.
var fallbackPattern = regexp.MustCompile(`(?i)notional|fraction`)

// Submitter orchestrates guardrails, order submission, the fractional→whole
// share fallback, and handoff to the poller.
type Submitter struct {
	db     *database.Database
	trades *database.TradeRepository
	broker Broker
	poller *Poller
}

func NewSubmitter(db *database.Database, trades *database.TradeRepository, broker Broker, poller *Poller) *Submitter {
	return &Submitter{db: db, trades: trades, broker: broker, poller: poller}
}

// SubmitParams identifies one admitted filing to mirror.
type SubmitParams struct {
	Symbol              string
	SourceHash          string
	ClientOrderID       string // optional; derived from SourceHash when empty
	CongressTradeFeedID string // optional
	WindowStart         time.Time
	WindowEnd           time.Time
	Config              guardrail.Config
	Now                 time.Time
}

// SubmitResult is the outcome of one submission.
type SubmitResult struct {
	TradeID           string
	BrokerOrderID     string
	ClientOrderID     string
	Status            database.TradeStatus
	FallbackUsed      bool
	GuardrailBlocked  bool
	NotionalSubmitted *decimal.Decimal
	QtySubmitted      *decimal.Decimal
}

// errGuardrailAbort aborts the attempt-creation transaction on a denial.
var errGuardrailAbort = errors.New("trading: guardrail denied")

// SubmitForFiling runs the full submission pipeline for one filing. Guardrail
// denials are absorbed into the result; broker and transport failures are
// returned after the attempt row is updated.
func (s *Submitter) SubmitForFiling(ctx context.Context, p SubmitParams) (*SubmitResult, error) {
	notional := p.Config.TradeNotionalUSD.Round(2)
	notionalStr := p.Config.TradeNotionalUSD.StringFixed(2)

	cid := p.ClientOrderID
	if cid == "" {
		cid = p.SourceHash
	}
	cid = ClientOrderID(cid)

	attempt := &database.Trade{
		ID:            uuid.NewString(),
		SourceHash:    p.SourceHash,
		ClientOrderID: cid,
		Symbol:        p.Symbol,
		Side:          "BUY",
		OrderType:     "MARKET",
		TimeInForce:   "DAY",
		Status:        database.TradeStatusNew,
	}
	if p.CongressTradeFeedID != "" {
		feedID := p.CongressTradeFeedID
		attempt.CongressTradeFeedID = &feedID
	}

	// Guardrail check and attempt creation share one transaction so the
	// windowed counts cannot race a concurrent insert past the cap.
	var decision guardrail.Decision
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		trades := s.trades.WithTx(tx)
		total, err := trades.CountInWindow(p.WindowStart, p.WindowEnd, "")
		if err != nil {
			return err
		}
		forTicker, err := trades.CountInWindow(p.WindowStart, p.WindowEnd, p.Symbol)
		if err != nil {
			return err
		}

		decision = guardrail.Evaluate(p.Config, guardrail.Context{
			WindowStart:                   p.WindowStart,
			WindowEnd:                     p.WindowEnd,
			Ticker:                        p.Symbol,
			TradesSubmittedToday:          int(total),
			TradesSubmittedTodayForTicker: int(forTicker),
		})
		if !decision.Allowed {
			return errGuardrailAbort
		}

		attempt.NotionalSubmitted = &notional
		return trades.CreateAttempt(attempt)
	})

	switch {
	case errors.Is(txErr, errGuardrailAbort):
		return s.recordBlocked(attempt, decision, false)
	case txErr != nil:
		var dup *database.DuplicateError
		if errors.As(txErr, &dup) {
			return s.resumeExisting(p.SourceHash, dup)
		}
		return nil, txErr
	}

	result := &SubmitResult{
		TradeID:           attempt.ID,
		ClientOrderID:     cid,
		NotionalSubmitted: &notional,
	}

	order, err := s.broker.SubmitOrder(ctx, alpaca.OrderRequest{
		Symbol:        p.Symbol,
		Side:          "buy",
		Type:          "market",
		TimeInForce:   "day",
		Notional:      notionalStr,
		ClientOrderID: cid,
	})

	if err != nil {
		if !s.isFallbackTrigger(err) {
			return nil, s.markSubmitFailure(attempt.ID, err)
		}

		log.Info().
			Str("symbol", p.Symbol).
			Err(err).
			Msg("Notional order rejected, retrying as whole shares")

		order, err = s.submitFallback(ctx, p, attempt.ID, cid, result)
		if err != nil {
			return nil, err
		}
		if order == nil {
			// FALLBACK_QTY_ZERO: absorbed like a guardrail denial.
			return result, nil
		}
	}

	status := MapOrderStatus(order.Status)
	if err := s.trades.Update(attempt.ID, orderPatch(order, status)); err != nil {
		return nil, fmt.Errorf("trading: persist submitted order: %w", err)
	}

	result.BrokerOrderID = order.ID
	result.Status = status

	pollRes, err := s.poller.Poll(ctx, attempt.ID, order.ID, cid)
	if err != nil {
		return nil, err
	}
	result.Status = pollRes.Status
	if pollRes.TimedOut {
		log.Warn().
			Str("trade_id", attempt.ID).
			Str("status", string(pollRes.Status)).
			Msg("Order still open after poll timeout")
	}
	return result, nil
}

// isFallbackTrigger reports whether err is a validation rejection whose
// message or violations mention notional/fractional support.
func (s *Submitter) isFallbackTrigger(err error) bool {
	var v *alpaca.ValidationError
	if !errors.As(err, &v) {
		return false
	}
	if fallbackPattern.MatchString(v.Message) {
		return true
	}
	for _, violation := range v.Violations {
		if fallbackPattern.MatchString(violation) {
			return true
		}
	}
	return false
}

// submitFallback retries the order as floor(notional/price) whole shares.
// A nil order with nil error means the fallback quantity rounded to zero and
// the attempt was closed out as blocked.
func (s *Submitter) submitFallback(ctx context.Context, p SubmitParams, tradeID, cid string, result *SubmitResult) (*alpaca.Order, error) {
	result.FallbackUsed = true

	price, err := s.broker.GetLatestTrade(ctx, p.Symbol)
	if err != nil {
		return nil, s.markSubmitFailure(tradeID, fmt.Errorf("trading: fallback price fetch: %w", err))
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, s.markSubmitFailure(tradeID, fmt.Errorf("trading: FALLBACK_PRICE_UNAVAILABLE: latest price %s for %s", price, p.Symbol))
	}

	qty := p.Config.TradeNotionalUSD.Div(price).Floor()
	if qty.LessThanOrEqual(decimal.Zero) {
		blocked := &guardrail.BlockedError{
			Guard:   guardrail.GuardFallbackQtyZero,
			Message: fmt.Sprintf("notional %s buys zero whole shares of %s at %s", p.Config.TradeNotionalUSD.StringFixed(2), p.Symbol, price),
		}
		if err := s.failAttempt(tradeID, blocked.Error()); err != nil {
			return nil, err
		}
		result.Status = database.TradeStatusFailed
		result.GuardrailBlocked = true
		result.NotionalSubmitted = nil
		return nil, nil
	}

	order, err := s.broker.SubmitOrder(ctx, alpaca.OrderRequest{
		Symbol:        p.Symbol,
		Side:          "buy",
		Type:          "market",
		TimeInForce:   "day",
		Qty:           qty.String(),
		ClientOrderID: cid,
	})
	if err != nil {
		return nil, s.markSubmitFailure(tradeID, err)
	}

	if err := s.trades.Update(tradeID, map[string]any{
		"qty_submitted":      qty,
		"notional_submitted": nil,
		"updated_at":         time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("trading: persist fallback quantities: %w", err)
	}
	result.QtySubmitted = &qty
	result.NotionalSubmitted = nil
	return order, nil
}

// markSubmitFailure persists a broker failure against the attempt and
// re-raises it. Transport-level errors leave the row in NEW: the order may or
// may not exist broker-side, and the client order id still identifies it.
func (s *Submitter) markSubmitFailure(tradeID string, err error) error {
	var (
		insufficient *alpaca.InsufficientFundsError
		validation   *alpaca.ValidationError
	)
	if errors.As(err, &insufficient) || errors.As(err, &validation) {
		if ferr := s.failAttempt(tradeID, err.Error()); ferr != nil {
			return ferr
		}
	} else {
		if uerr := s.trades.Update(tradeID, map[string]any{
			"error_message": err.Error(),
			"updated_at":    time.Now().UTC(),
		}); uerr != nil {
			return uerr
		}
	}
	return err
}

func (s *Submitter) failAttempt(tradeID, reason string) error {
	now := time.Now().UTC()
	return s.trades.Update(tradeID, map[string]any{
		"status":        string(database.TradeStatusFailed),
		"error_message": reason,
		"failed_at":     now,
		"updated_at":    now,
	})
}

// recordBlocked creates the FAILED attempt row for a guardrail denial. The
// denial itself is an absorbed outcome, not an error.
func (s *Submitter) recordBlocked(attempt *database.Trade, decision guardrail.Decision, fallbackUsed bool) (*SubmitResult, error) {
	now := time.Now().UTC()
	attempt.Status = database.TradeStatusFailed
	attempt.ErrorMessage = fmt.Sprintf("%s: %s", decision.Guard, decision.Message)
	attempt.NotionalSubmitted = nil
	attempt.FailedAt = &now

	if err := s.trades.CreateAttempt(attempt); err != nil {
		var dup *database.DuplicateError
		if errors.As(err, &dup) {
			return s.resumeExisting(attempt.SourceHash, dup)
		}
		return nil, err
	}

	log.Info().
		Str("symbol", attempt.Symbol).
		Str("guard", decision.Guard).
		Msg("🚫 Submission blocked by guardrail")

	return &SubmitResult{
		TradeID:          attempt.ID,
		ClientOrderID:    attempt.ClientOrderID,
		Status:           database.TradeStatusFailed,
		GuardrailBlocked: true,
		FallbackUsed:     fallbackUsed,
	}, nil
}

// resumeExisting handles a source_hash collision: another run already owns
// this filing, so report its state instead of resubmitting.
func (s *Submitter) resumeExisting(sourceHash string, dup *database.DuplicateError) (*SubmitResult, error) {
	existing, err := s.trades.FindBySourceHash(sourceHash)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, dup
	}

	log.Debug().
		Str("source_hash", sourceHash).
		Str("trade_id", existing.ID).
		Msg("Attempt already exists, not resubmitting")

	result := &SubmitResult{
		TradeID:           existing.ID,
		ClientOrderID:     existing.ClientOrderID,
		Status:            existing.Status,
		NotionalSubmitted: existing.NotionalSubmitted,
		QtySubmitted:      existing.QtySubmitted,
		FallbackUsed:      existing.QtySubmitted != nil,
	}
	if existing.AlpacaOrderID != nil {
		result.BrokerOrderID = *existing.AlpacaOrderID
	}
	return result, nil
}
