package alpaca

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// OrderRequest is the POST /v2/orders body. Notional and Qty are mutually
// exclusive; both are decimal strings per the Alpaca wire format.
type OrderRequest struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"time_in_force"`
	Notional      string `json:"notional,omitempty"`
	Qty           string `json:"qty,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
	ExtendedHours bool   `json:"extended_hours"`
}

// Order is an Alpaca order. Monetary and quantity fields are strings on the
// wire; Raw keeps the full payload for persistence.
type Order struct {
	ID             string     `json:"id"`
	ClientOrderID  string     `json:"client_order_id"`
	Status         string     `json:"status"`
	Symbol         string     `json:"symbol"`
	Side           string     `json:"side"`
	Type           string     `json:"type"`
	TimeInForce    string     `json:"time_in_force"`
	Notional       *string    `json:"notional"`
	Qty            *string    `json:"qty"`
	FilledQty      string     `json:"filled_qty"`
	FilledAvgPrice *string    `json:"filled_avg_price"`
	CreatedAt      *time.Time `json:"created_at"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	FilledAt       *time.Time `json:"filled_at"`
	CanceledAt     *time.Time `json:"canceled_at"`
	FailedAt       *time.Time `json:"failed_at"`

	Raw json.RawMessage `json:"-"`
}

func (o *Order) UnmarshalJSON(data []byte) error {
	type alias Order
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*o = Order(a)
	o.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Clock is GET /v2/clock.
type Clock struct {
	Timestamp time.Time `json:"timestamp"`
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}

// CalendarDay is one GET /v2/calendar entry. Open/Close are "HH:MM";
// SessionOpen/SessionClose, when present, are "HHMM".
type CalendarDay struct {
	Date         string `json:"date"`
	Open         string `json:"open"`
	Close        string `json:"close"`
	SessionOpen  string `json:"session_open"`
	SessionClose string `json:"session_close"`
}

// Account is GET /v2/account, reduced to the fields the worker reads.
type Account struct {
	ID            string          `json:"id"`
	AccountNumber string          `json:"account_number"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	Cash          decimal.Decimal `json:"cash"`
	BuyingPower   decimal.Decimal `json:"buying_power"`
	Equity        decimal.Decimal `json:"equity"`
}

// Position is one GET /v2/positions entry.
type Position struct {
	Symbol         string          `json:"symbol"`
	Qty            decimal.Decimal `json:"qty"`
	AvgEntryPrice  decimal.Decimal `json:"avg_entry_price"`
	MarketValue    decimal.Decimal `json:"market_value"`
	UnrealizedPL   decimal.Decimal `json:"unrealized_pl"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	LastdayPrice   decimal.Decimal `json:"lastday_price"`
	ChangeToday    decimal.Decimal `json:"change_today"`
	AssetClass     string          `json:"asset_class"`
	Side           string          `json:"side"`
	CostBasis      decimal.Decimal `json:"cost_basis"`
	QtyAvailable   decimal.Decimal `json:"qty_available"`
	AssetID        string          `json:"asset_id"`
	Exchange       string          `json:"exchange"`
}

type latestTradeResponse struct {
	Symbol string `json:"symbol"`
	Trade  struct {
		Price     decimal.Decimal `json:"p"`
		Size      decimal.Decimal `json:"s"`
		Timestamp time.Time       `json:"t"`
	} `json:"trade"`
}
