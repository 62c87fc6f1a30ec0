package openjob

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/openquiver/congresstrader/internal/database"
	"github.com/openquiver/congresstrader/internal/quiver"
	"github.com/openquiver/congresstrader/internal/timeutil"
	"github.com/openquiver/congresstrader/internal/trading"
)

// Filing is a normalized upstream record ready for dedupe, filtering and
// submission.
type Filing struct {
	Ticker      string
	MemberName  string
	Transaction string
	Party       *string
	FilingDate  time.Time
	TradeDate   time.Time
	FiledTs     time.Time // midnight Eastern on the filing date
	SourceHash  string
	FeedID      string
	Raw         json.RawMessage
}

// Normalize maps a raw upstream record into a Filing. The second return is
// false when the record is unusable (missing ticker, member, or filing date);
// such records count as fetched but are never considered.
func Normalize(raw quiver.RawFiling) (*Filing, bool) {
	ticker := strings.ToUpper(strings.TrimSpace(raw.Ticker))
	member := strings.TrimSpace(raw.Name)
	if ticker == "" || member == "" {
		return nil, false
	}

	filingDate, ok := timeutil.ParseDate(raw.Filed)
	if !ok {
		return nil, false
	}

	tradeDate := filingDate
	if t, ok := timeutil.ParseDate(raw.Traded); ok {
		tradeDate = t
	}

	tx := mapTransaction(raw.Transaction)

	f := &Filing{
		Ticker:      ticker,
		MemberName:  member,
		Transaction: tx,
		Party:       mapParty(raw.Party),
		FilingDate:  filingDate,
		TradeDate:   tradeDate,
		FiledTs:     timeutil.StartOfEasternDay(filingDate),
		SourceHash:  trading.SourceHash(ticker, member, filingDate, tradeDate, tx),
		FeedID:      trading.FeedEntryID(ticker, member, filingDate, tradeDate),
		Raw:         raw.Raw,
	}
	return f, true
}

// mapTransaction classifies the free-form upstream transaction string.
// "Sold" is deliberately UNKNOWN: the upstream feed uses "Sale" for
// disposals, and anything else is too ambiguous to mirror.
func mapTransaction(s string) string {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "purchase"), strings.Contains(lower, "buy"):
		return database.TxBuy
	case strings.Contains(lower, "sale"):
		return database.TxSell
	default:
		return database.TxUnknown
	}
}

// mapParty classifies by trimmed upper-case prefix. A present-but-blank party
// is UNKNOWN; an absent one stays nil.
func mapParty(p *string) *string {
	if p == nil {
		return nil
	}
	upper := strings.ToUpper(strings.TrimSpace(*p))
	var out string
	switch {
	case upper == "":
		out = database.PartyUnknown
	case strings.HasPrefix(upper, "REP"):
		out = database.PartyRepublican
	case strings.HasPrefix(upper, "IND"):
		out = database.PartyIndependent
	case strings.HasPrefix(upper, "OTHER"):
		out = database.PartyOther
	case strings.HasPrefix(upper, "D"):
		out = database.PartyDemocrat
	default:
		out = database.PartyUnknown
	}
	return &out
}

// feedEntry materializes the persistable feed row for a filing.
func (f *Filing) feedEntry(ingestedAt time.Time) database.CongressTradeFeed {
	return database.CongressTradeFeed{
		ID:          f.FeedID,
		Ticker:      f.Ticker,
		MemberName:  f.MemberName,
		Transaction: f.Transaction,
		TradeDate:   f.TradeDate,
		FilingDate:  f.FilingDate,
		Party:       f.Party,
		Raw:         string(f.Raw),
		IngestedAt:  ingestedAt,
	}
}
