package guardrail

import (
	"testing"

	"github.com/shopspring/decimal"
)

func intPtr(n int) *int { return &n }

func enabledConfig() Config {
	return Config{
		TradingEnabled:   true,
		PaperTrading:     true,
		TradeNotionalUSD: decimal.NewFromInt(1000),
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		ctx       Context
		wantAllow bool
		wantGuard string
	}{
		{
			name:      "allowed with no caps",
			cfg:       enabledConfig(),
			ctx:       Context{Ticker: "AAPL"},
			wantAllow: true,
		},
		{
			name:      "trading disabled",
			cfg:       Config{TradingEnabled: false},
			ctx:       Context{Ticker: "AAPL"},
			wantGuard: GuardTradingDisabled,
		},
		{
			name: "daily cap reached",
			cfg: func() Config {
				c := enabledConfig()
				c.DailyMaxFilings = intPtr(5)
				return c
			}(),
			ctx:       Context{Ticker: "AAPL", TradesSubmittedToday: 5},
			wantGuard: GuardDailyMaxFilings,
		},
		{
			name: "daily cap not yet reached",
			cfg: func() Config {
				c := enabledConfig()
				c.DailyMaxFilings = intPtr(5)
				return c
			}(),
			ctx:       Context{Ticker: "AAPL", TradesSubmittedToday: 4},
			wantAllow: true,
		},
		{
			name: "per-ticker cap reached",
			cfg: func() Config {
				c := enabledConfig()
				c.PerTickerDailyMax = intPtr(1)
				return c
			}(),
			ctx:       Context{Ticker: "AAPL", TradesSubmittedTodayForTicker: 1},
			wantGuard: GuardPerTickerDailyMax,
		},
		{
			name: "disabled wins over caps",
			cfg: Config{
				TradingEnabled:    false,
				DailyMaxFilings:   intPtr(0),
				PerTickerDailyMax: intPtr(0),
			},
			ctx:       Context{Ticker: "AAPL", TradesSubmittedToday: 10},
			wantGuard: GuardTradingDisabled,
		},
		{
			name: "daily cap wins over per-ticker cap",
			cfg: func() Config {
				c := enabledConfig()
				c.DailyMaxFilings = intPtr(1)
				c.PerTickerDailyMax = intPtr(1)
				return c
			}(),
			ctx: Context{
				Ticker:                        "AAPL",
				TradesSubmittedToday:          1,
				TradesSubmittedTodayForTicker: 1,
			},
			wantGuard: GuardDailyMaxFilings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.cfg, tt.ctx)
			if got.Allowed != tt.wantAllow {
				t.Fatalf("Allowed = %v, want %v (%+v)", got.Allowed, tt.wantAllow, got)
			}
			if !tt.wantAllow {
				if got.Guard != tt.wantGuard {
					t.Errorf("Guard = %s, want %s", got.Guard, tt.wantGuard)
				}
				if got.Message == "" {
					t.Error("denied decision should carry a message")
				}
			}
		})
	}
}
