package trading

import (
	"testing"

	"github.com/openquiver/congresstrader/internal/database"
)

func TestMapOrderStatus(t *testing.T) {
	tests := []struct {
		broker string
		want   database.TradeStatus
	}{
		{"new", database.TradeStatusNew},
		{"accepted", database.TradeStatusAccepted},
		{"pending_new", database.TradeStatusAccepted},
		{"partially_filled", database.TradeStatusPartiallyFilled},
		{"filled", database.TradeStatusFilled},
		{"canceled", database.TradeStatusCanceled},
		{"pending_cancel", database.TradeStatusCanceled},
		{"expired", database.TradeStatusCanceled},
		{"stopped", database.TradeStatusCanceled},
		{"rejected", database.TradeStatusRejected},
		{"suspended", database.TradeStatusFailed},
		{"calculated", database.TradeStatusFailed},
		{"some_future_status", database.TradeStatusFailed},
		{"", database.TradeStatusFailed},
	}

	for _, tt := range tests {
		if got := MapOrderStatus(tt.broker); got != tt.want {
			t.Errorf("MapOrderStatus(%q) = %s, want %s", tt.broker, got, tt.want)
		}
	}
}

func TestTerminalSet(t *testing.T) {
	terminal := []database.TradeStatus{
		database.TradeStatusFilled,
		database.TradeStatusCanceled,
		database.TradeStatusRejected,
		database.TradeStatusFailed,
	}
	open := []database.TradeStatus{
		database.TradeStatusNew,
		database.TradeStatusAccepted,
		database.TradeStatusPartiallyFilled,
	}

	for _, s := range terminal {
		if !database.IsTerminal(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range open {
		if database.IsTerminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestSourceHashStability(t *testing.T) {
	filed := etDay(t, "2024-02-16")
	traded := etDay(t, "2024-02-10")

	a := SourceHash("aapl", "Jane Doe", filed, traded, "BUY")
	b := SourceHash("AAPL", "Jane Doe", filed, traded, "BUY")
	if a != b {
		t.Error("hash should be case-insensitive on ticker")
	}

	c := SourceHash("AAPL", "Jane Doe", filed, traded, "SELL")
	if a == c {
		t.Error("transaction must contribute to the hash")
	}

	if len(ClientOrderID(a)) != 48 {
		t.Errorf("client order id length = %d, want 48", len(ClientOrderID(a)))
	}
	if ClientOrderID(a) != a[:48] {
		t.Error("client order id should be the hash prefix")
	}
}
