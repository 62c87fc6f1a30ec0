package trading

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/openquiver/congresstrader/internal/timeutil"
)

// SourceHash is the content-addressed identity of a filing: a stable digest
// over (upper ticker, member, filing date, trade date, transaction). Distinct
// raw records with the same identity collapse to one trade attempt.
func SourceHash(ticker, memberName string, filingDate, tradeDate time.Time, transaction string) string {
	payload := strings.Join([]string{
		strings.ToUpper(ticker),
		memberName,
		timeutil.DateKey(filingDate),
		timeutil.DateKey(tradeDate),
		transaction,
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

const clientOrderIDMax = 48

// ClientOrderID derives the broker-side idempotency key from a source hash.
func ClientOrderID(sourceHash string) string {
	if len(sourceHash) <= clientOrderIDMax {
		return sourceHash
	}
	return sourceHash[:clientOrderIDMax]
}

// FeedEntryID is the feed-row primary key: the transaction-independent digest
// over (upper ticker, member, filing date, trade date).
func FeedEntryID(ticker, memberName string, filingDate, tradeDate time.Time) string {
	payload := strings.Join([]string{
		strings.ToUpper(ticker),
		memberName,
		timeutil.DateKey(filingDate),
		timeutil.DateKey(tradeDate),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
