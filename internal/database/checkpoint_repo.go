package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckpointRepository persists per-trading-date ingest high-water marks.
type CheckpointRepository struct {
	db *gorm.DB
}

func NewCheckpointRepository(d *Database) *CheckpointRepository {
	return &CheckpointRepository{db: d.db}
}

func (r *CheckpointRepository) WithTx(tx *gorm.DB) *CheckpointRepository {
	return &CheckpointRepository{db: tx}
}

// Get returns the checkpoint for the trading date, or nil when absent.
func (r *CheckpointRepository) Get(tradingDate string) (*IngestCheckpoint, error) {
	var cp IngestCheckpoint
	err := r.db.Where("trading_date_et = ?", tradingDate).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// Upsert writes the high-water mark for the trading date. The mark never
// regresses: an earlier timestamp than the stored one is ignored.
func (r *CheckpointRepository) Upsert(tradingDate string, lastFiledTs *time.Time) error {
	existing, err := r.Get(tradingDate)
	if err != nil {
		return err
	}
	if existing != nil && existing.LastFiledTsProcessedET != nil {
		if lastFiledTs == nil || lastFiledTs.Before(*existing.LastFiledTsProcessedET) {
			lastFiledTs = existing.LastFiledTsProcessedET
		}
	}
	cp := IngestCheckpoint{
		TradingDateET:          tradingDate,
		LastFiledTsProcessedET: lastFiledTs,
		UpdatedAt:              time.Now().UTC(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trading_date_et"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_filed_ts_processed_et", "updated_at"}),
	}).Create(&cp).Error
}

// Delete removes the checkpoint for the trading date.
func (r *CheckpointRepository) Delete(tradingDate string) error {
	return r.db.Where("trading_date_et = ?", tradingDate).Delete(&IngestCheckpoint{}).Error
}

// List returns checkpoints, newest trading date first.
func (r *CheckpointRepository) List(limit int) ([]IngestCheckpoint, error) {
	if limit <= 0 {
		limit = 30
	}
	var cps []IngestCheckpoint
	err := r.db.Order("trading_date_et DESC").Limit(limit).Find(&cps).Error
	return cps, err
}
