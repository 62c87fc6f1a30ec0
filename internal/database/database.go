// Package database is the persistence layer: gorm models for filings, trade
// attempts, job runs and ingest checkpoints, plus transaction-aware
// repositories over them.
package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the gorm handle shared by all repositories.
type Database struct {
	db *gorm.DB
}

// New opens the store. A postgres:// / postgresql:// DSN selects Postgres;
// anything else is treated as a SQLite path (tests, local runs).
func New(dsn string) (*Database, error) {
	var (
		db  *gorm.DB
		err error
	)
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Database connected (PostgreSQL)")
	} else {
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dsn).Msg("Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(&CongressTradeFeed{}, &Trade{}, &JobRun{}, &IngestCheckpoint{}); err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

// DB exposes the underlying handle for transaction scoping.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Transaction runs fn inside a database transaction.
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.db.Transaction(fn)
}

// DuplicateError re-raises a unique-constraint violation with the violated
// target, so callers can treat a duplicate insert as already-processed.
type DuplicateError struct {
	Target string
	Err    error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("database: duplicate %s: %v", e.Target, e.Err)
}

func (e *DuplicateError) Unwrap() error { return e.Err }

// asDuplicate converts a gorm duplicated-key error, inferring the violated
// target column from the driver message.
func asDuplicate(err error) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	target := "unique constraint"
	msg := err.Error()
	for _, col := range []string{"source_hash", "alpaca_order_id", "trading_date_et", "id"} {
		if strings.Contains(msg, col) {
			target = col
			break
		}
	}
	return &DuplicateError{Target: target, Err: err}
}
