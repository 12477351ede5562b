// Package history persists processing runs so past results stay
// downloadable from the web interface.
package history

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one processing run of an uploaded questionnaire.
type Run struct {
	gorm.Model
	SourceFile string `json:"source_file"`
	ResultFile string `json:"result_file"`
	ExcelFile  string `json:"excel_file"`
	Pages      int    `json:"pages"`
	PageErrors int    `json:"page_errors"`
	Status     string `json:"status"`
}

// Store records runs in Postgres.
type Store struct {
	db *gorm.DB
}

// Open connects to the database and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect history database: %w", err)
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores a finished run.
func (s *Store) Record(run *Run) error {
	if err := s.db.Create(run).Error; err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// List returns runs, most recent first.
func (s *Store) List(limit int) ([]Run, error) {
	var runs []Run
	q := s.db.Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
