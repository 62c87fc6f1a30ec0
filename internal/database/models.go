package database

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeStatus is the internal order lifecycle status.
type TradeStatus string

const (
	TradeStatusNew             TradeStatus = "NEW"
	TradeStatusAccepted        TradeStatus = "ACCEPTED"
	TradeStatusPartiallyFilled TradeStatus = "PARTIALLY_FILLED"
	TradeStatusFilled          TradeStatus = "FILLED"
	TradeStatusCanceled        TradeStatus = "CANCELED"
	TradeStatusRejected        TradeStatus = "REJECTED"
	TradeStatusFailed          TradeStatus = "FAILED"
)

// TerminalStatuses are the statuses a trade never leaves.
var TerminalStatuses = []TradeStatus{
	TradeStatusFilled,
	TradeStatusCanceled,
	TradeStatusRejected,
	TradeStatusFailed,
}

// IsTerminal reports whether s permits no further transitions.
func IsTerminal(s TradeStatus) bool {
	for _, t := range TerminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}

// JobRunStatus is the job-run lifecycle status.
type JobRunStatus string

const (
	JobRunPending JobRunStatus = "PENDING"
	JobRunRunning JobRunStatus = "RUNNING"
	JobRunSuccess JobRunStatus = "SUCCESS"
	JobRunFailed  JobRunStatus = "FAILED"
)

// JobTypeOpen is the once-per-trading-day market-open job.
const JobTypeOpen = "OPEN_JOB"

// Transaction types on a filing.
const (
	TxBuy     = "BUY"
	TxSell    = "SELL"
	TxUnknown = "UNKNOWN"
)

// Party affiliations on a filing.
const (
	PartyDemocrat    = "DEMOCRAT"
	PartyRepublican  = "REPUBLICAN"
	PartyIndependent = "INDEPENDENT"
	PartyOther       = "OTHER"
	PartyUnknown     = "UNKNOWN"
)

// CongressTradeFeed is one ingested disclosure. Rows are append-only; the
// primary key is a digest of (ticker, member, filing date, trade date) so
// duplicate inserts collapse.
type CongressTradeFeed struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Ticker      string    `gorm:"size:12;index"`
	MemberName  string    `gorm:"size:255"`
	Transaction string    `gorm:"size:16"`
	TradeDate   time.Time `gorm:"index"`
	FilingDate  time.Time `gorm:"index"`
	Party       *string   `gorm:"size:16"`
	Raw         string
	IngestedAt  time.Time
	CreatedAt   time.Time
}

func (CongressTradeFeed) TableName() string { return "congress_trade_feed" }

// Trade is one order attempt against the broker. SourceHash enforces
// at-most-one attempt per filing identity.
type Trade struct {
	ID                  string           `gorm:"primaryKey;size:36"`
	SourceHash          string           `gorm:"uniqueIndex;size:64"`
	ClientOrderID       string           `gorm:"index;size:48"`
	AlpacaOrderID       *string          `gorm:"uniqueIndex;size:64"`
	Symbol              string           `gorm:"size:12;index"`
	Side                string           `gorm:"size:8"`
	OrderType           string           `gorm:"size:16"`
	TimeInForce         string           `gorm:"size:8"`
	NotionalSubmitted   *decimal.Decimal `gorm:"type:decimal(18,2)"`
	QtySubmitted        *decimal.Decimal `gorm:"type:decimal(18,6)"`
	FilledQty           *decimal.Decimal `gorm:"type:decimal(18,6)"`
	FilledAvgPrice      *decimal.Decimal `gorm:"type:decimal(18,6)"`
	Status              TradeStatus      `gorm:"size:24;index"`
	ErrorMessage        string
	RawOrderJSON        string
	CongressTradeFeedID *string   `gorm:"size:64;index"`
	CreatedAt           time.Time `gorm:"index"`
	UpdatedAt           time.Time
	SubmittedAt         *time.Time
	FilledAt            *time.Time
	CanceledAt          *time.Time
	FailedAt            *time.Time
}

func (Trade) TableName() string { return "trade" }

// JobRun records one orchestrator run. At most one row exists per
// (type, trading date).
type JobRun struct {
	ID            uint         `gorm:"primaryKey;autoIncrement"`
	Type          string       `gorm:"size:32;uniqueIndex:idx_job_run_type_date"`
	TradingDateET string       `gorm:"size:10;uniqueIndex:idx_job_run_type_date"`
	Status        JobRunStatus `gorm:"size:16;index"`
	StartedAt     *time.Time
	FinishedAt    *time.Time
	SummaryJSON   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (JobRun) TableName() string { return "job_run" }

// IngestCheckpoint is the per-trading-date high-water mark of processed
// filing timestamps.
type IngestCheckpoint struct {
	TradingDateET          string `gorm:"primaryKey;size:10"`
	LastFiledTsProcessedET *time.Time
	UpdatedAt              time.Time
}

func (IngestCheckpoint) TableName() string { return "ingest_checkpoint" }
