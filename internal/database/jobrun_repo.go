package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobRunRepository persists orchestrator run records.
type JobRunRepository struct {
	db *gorm.DB
}

func NewJobRunRepository(d *Database) *JobRunRepository {
	return &JobRunRepository{db: d.db}
}

func (r *JobRunRepository) WithTx(tx *gorm.DB) *JobRunRepository {
	return &JobRunRepository{db: tx}
}

// Start upserts the run row for (jobType, tradingDate) into RUNNING with a
// fresh started_at. Re-running the same trading date reuses the row.
func (r *JobRunRepository) Start(tradingDate, jobType string) (*JobRun, error) {
	now := time.Now().UTC()
	run := JobRun{
		Type:          jobType,
		TradingDateET: tradingDate,
		Status:        JobRunRunning,
		StartedAt:     &now,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "trading_date_et"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":      string(JobRunRunning),
			"started_at":  now,
			"finished_at": nil,
			"updated_at":  now,
		}),
	}).Create(&run).Error
	if err != nil {
		return nil, err
	}
	return r.GetByTradingDate(tradingDate, jobType)
}

// Complete finalizes the run as SUCCESS.
func (r *JobRunRepository) Complete(tradingDate, jobType, summaryJSON string) error {
	return r.MarkStatus(tradingDate, jobType, JobRunSuccess, summaryJSON)
}

// Fail finalizes the run as FAILED.
func (r *JobRunRepository) Fail(tradingDate, jobType, summaryJSON string) error {
	return r.MarkStatus(tradingDate, jobType, JobRunFailed, summaryJSON)
}

// MarkStatus sets a terminal or intermediate status; terminal statuses also
// stamp finished_at.
func (r *JobRunRepository) MarkStatus(tradingDate, jobType string, status JobRunStatus, summaryJSON string) error {
	now := time.Now().UTC()
	patch := map[string]any{
		"status":     string(status),
		"updated_at": now,
	}
	if status == JobRunSuccess || status == JobRunFailed {
		patch["finished_at"] = now
	}
	if summaryJSON != "" {
		patch["summary_json"] = summaryJSON
	}
	return r.db.Model(&JobRun{}).
		Where("type = ? AND trading_date_et = ?", jobType, tradingDate).
		Updates(patch).Error
}

// ListRecent returns the most recent runs.
func (r *JobRunRepository) ListRecent(limit int) ([]JobRun, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []JobRun
	err := r.db.Order("trading_date_et DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// GetByTradingDate returns the run for (jobType, tradingDate), or nil.
func (r *JobRunRepository) GetByTradingDate(tradingDate, jobType string) (*JobRun, error) {
	if jobType == "" {
		jobType = JobTypeOpen
	}
	var run JobRun
	err := r.db.Where("type = ? AND trading_date_et = ?", jobType, tradingDate).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
