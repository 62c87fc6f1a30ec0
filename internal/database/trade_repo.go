package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TradeRepository persists order attempts.
type TradeRepository struct {
	db *gorm.DB
}

func NewTradeRepository(d *Database) *TradeRepository {
	return &TradeRepository{db: d.db}
}

// WithTx returns a copy bound to the given transaction.
func (r *TradeRepository) WithTx(tx *gorm.DB) *TradeRepository {
	return &TradeRepository{db: tx}
}

// CreateAttempt inserts a new attempt. A source_hash or alpaca_order_id
// collision surfaces as *DuplicateError.
func (r *TradeRepository) CreateAttempt(t *Trade) error {
	return asDuplicate(r.db.Create(t).Error)
}

// UpsertBySourceHash inserts create, or applies update to the existing row
// with the same source_hash. Returns the resulting row.
func (r *TradeRepository) UpsertBySourceHash(create *Trade, update map[string]any) (*Trade, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_hash"}},
		DoUpdates: clause.Assignments(update),
	}).Create(create).Error
	if err != nil {
		return nil, err
	}
	return r.FindBySourceHash(create.SourceHash)
}

// Update applies patch to the trade with the given id. When the patch changes
// status, rows already in a terminal status are left untouched.
func (r *TradeRepository) Update(id string, patch map[string]any) error {
	q := r.db.Model(&Trade{}).Where("id = ?", id)
	if _, ok := patch["status"]; ok {
		q = q.Where("status NOT IN ?", terminalStatusStrings())
	}
	return q.Updates(patch).Error
}

func terminalStatusStrings() []string {
	out := make([]string, len(TerminalStatuses))
	for i, s := range TerminalStatuses {
		out[i] = string(s)
	}
	return out
}

// FindBySourceHash returns the attempt for hash, or nil when absent.
func (r *TradeRepository) FindBySourceHash(hash string) (*Trade, error) {
	var t Trade
	err := r.db.Where("source_hash = ?", hash).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindByAlpacaOrderID returns the attempt for the broker order id, or nil.
func (r *TradeRepository) FindByAlpacaOrderID(orderID string) (*Trade, error) {
	var t Trade
	err := r.db.Where("alpaca_order_id = ?", orderID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListOpen returns attempts still in a non-terminal, post-creation status.
func (r *TradeRepository) ListOpen(limit int) ([]Trade, error) {
	q := r.db.Where("status IN ?", []string{
		string(TradeStatusNew), string(TradeStatusAccepted), string(TradeStatusPartiallyFilled),
	}).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var trades []Trade
	return trades, q.Find(&trades).Error
}

// ListFilter narrows List.
type ListFilter struct {
	Symbol    string
	StartDate *time.Time
	EndDate   *time.Time
	OrderDesc bool
}

const maxPageSize = 100

// List pages through attempts, oldest first unless f.OrderDesc is set.
func (r *TradeRepository) List(page, pageSize int, f ListFilter) ([]Trade, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	q := r.db.Model(&Trade{})
	if f.Symbol != "" {
		q = q.Where("symbol = ?", f.Symbol)
	}
	if f.StartDate != nil {
		q = q.Where("created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		q = q.Where("created_at <= ?", *f.EndDate)
	}
	order := "created_at ASC"
	if f.OrderDesc {
		order = "created_at DESC"
	}
	var trades []Trade
	err := q.Order(order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&trades).Error
	return trades, err
}

// CountInWindow counts attempts created inside [start, end] whose status is
// not FAILED (guardrail-blocked and rejected rows do not consume daily budget).
func (r *TradeRepository) CountInWindow(start, end time.Time, symbol string) (int64, error) {
	q := r.db.Model(&Trade{}).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Where("status <> ?", string(TradeStatusFailed))
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var n int64
	return n, q.Count(&n).Error
}
