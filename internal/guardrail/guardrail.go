// Package guardrail holds the pre-submit checks that can block an order.
// Evaluate is pure: it never reads the clock, the database, or the network.
package guardrail

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Guard names carried on denials and persisted with blocked attempts.
const (
	GuardTradingDisabled   = "TRADING_DISABLED"
	GuardDailyMaxFilings   = "DAILY_MAX_FILINGS"
	GuardPerTickerDailyMax = "PER_TICKER_DAILY_MAX"
	GuardFallbackQtyZero   = "FALLBACK_QTY_ZERO"
)

// Config is the operator-facing trading policy.
type Config struct {
	TradingEnabled    bool
	PaperTrading      bool
	TradeNotionalUSD  decimal.Decimal
	DailyMaxFilings   *int
	PerTickerDailyMax *int
}

// Context is the runtime state a decision is made against.
type Context struct {
	WindowStart                   time.Time
	WindowEnd                     time.Time
	Ticker                        string
	TradesSubmittedToday          int
	TradesSubmittedTodayForTicker int
}

// Decision is the evaluation outcome. Guard and Message are set only on deny.
type Decision struct {
	Allowed bool
	Guard   string
	Message string
	Context map[string]any
}

// Evaluate applies the guards in order; the first failure wins.
func Evaluate(cfg Config, ctx Context) Decision {
	if !cfg.TradingEnabled {
		return Decision{
			Allowed: false,
			Guard:   GuardTradingDisabled,
			Message: "trading is disabled",
		}
	}
	if cfg.DailyMaxFilings != nil && ctx.TradesSubmittedToday >= *cfg.DailyMaxFilings {
		return Decision{
			Allowed: false,
			Guard:   GuardDailyMaxFilings,
			Message: fmt.Sprintf("daily filings cap reached (%d/%d)", ctx.TradesSubmittedToday, *cfg.DailyMaxFilings),
			Context: map[string]any{
				"trades_submitted_today": ctx.TradesSubmittedToday,
				"daily_max_filings":      *cfg.DailyMaxFilings,
			},
		}
	}
	if cfg.PerTickerDailyMax != nil && ctx.TradesSubmittedTodayForTicker >= *cfg.PerTickerDailyMax {
		return Decision{
			Allowed: false,
			Guard:   GuardPerTickerDailyMax,
			Message: fmt.Sprintf("per-ticker cap reached for %s (%d/%d)", ctx.Ticker, ctx.TradesSubmittedTodayForTicker, *cfg.PerTickerDailyMax),
			Context: map[string]any{
				"ticker":                            ctx.Ticker,
				"trades_submitted_today_for_ticker": ctx.TradesSubmittedTodayForTicker,
				"per_ticker_daily_max":              *cfg.PerTickerDailyMax,
			},
		}
	}
	return Decision{Allowed: true}
}

// BlockedError is raised by callers that must stop on a denial.
type BlockedError struct {
	Guard   string
	Message string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("guardrail %s: %s", e.Guard, e.Message)
}
