package trading

import (
	"github.com/openquiver/congresstrader/internal/database"
)

// MapOrderStatus translates a broker order status into the internal trade
// status. The mapping is total: anything undocumented lands on FAILED.
func MapOrderStatus(brokerStatus string) database.TradeStatus {
	switch brokerStatus {
	case "new":
		return database.TradeStatusNew
	case "accepted", "pending_new":
		return database.TradeStatusAccepted
	case "partially_filled":
		return database.TradeStatusPartiallyFilled
	case "filled":
		return database.TradeStatusFilled
	case "canceled", "pending_cancel", "expired", "stopped":
		return database.TradeStatusCanceled
	case "rejected":
		return database.TradeStatusRejected
	case "suspended", "calculated":
		return database.TradeStatusFailed
	default:
		return database.TradeStatusFailed
	}
}
