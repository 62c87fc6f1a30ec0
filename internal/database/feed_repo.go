package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeedRepository persists ingested disclosures.
type FeedRepository struct {
	db *gorm.DB
}

func NewFeedRepository(d *Database) *FeedRepository {
	return &FeedRepository{db: d.db}
}

func (r *FeedRepository) WithTx(tx *gorm.DB) *FeedRepository {
	return &FeedRepository{db: tx}
}

// Create inserts one entry; duplicates surface as *DuplicateError.
func (r *FeedRepository) Create(entry *CongressTradeFeed) error {
	return asDuplicate(r.db.Create(entry).Error)
}

// CreateMany inserts entries in one statement. With skipDuplicates, rows whose
// identity already exists are silently skipped.
func (r *FeedRepository) CreateMany(entries []CongressTradeFeed, skipDuplicates bool) error {
	if len(entries) == 0 {
		return nil
	}
	q := r.db
	if skipDuplicates {
		q = q.Clauses(clause.OnConflict{DoNothing: true})
	}
	return asDuplicate(q.Create(&entries).Error)
}

// List returns entries, newest filing first.
func (r *FeedRepository) List(since *time.Time, ticker string, limit int) ([]CongressTradeFeed, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.db.Model(&CongressTradeFeed{})
	if since != nil {
		q = q.Where("filing_date >= ?", *since)
	}
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}
	var entries []CongressTradeFeed
	err := q.Order("filing_date DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// FindLatestFilingDate returns the newest filing date ingested, or nil when
// the feed is empty.
func (r *FeedRepository) FindLatestFilingDate() (*time.Time, error) {
	var entry CongressTradeFeed
	err := r.db.Order("filing_date DESC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry.FilingDate, nil
}
