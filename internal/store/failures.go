package store

import (
	"fmt"

	"gorm.io/gorm"

	"questboard/internal/models"
)

// Failures is the write-once ingest-failure sink. The pipeline only appends;
// rows are read back by operators through the CLI and dashboard, never by
// the pipeline itself.
type Failures struct {
	DB *gorm.DB
}

// Record appends one failure row.
func (f Failures) Record(failure *models.IngestFailure) error {
	if err := f.DB.Create(failure).Error; err != nil {
		return fmt.Errorf("store: record ingest failure: %w", err)
	}
	return nil
}

// List returns the most recent failures, optionally filtered by kind.
func (f Failures) List(kind string, limit int) ([]models.IngestFailure, error) {
	q := f.DB.Model(&models.IngestFailure{})
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if limit <= 0 {
		limit = 50
	}
	var failures []models.IngestFailure
	if err := q.Order("created_at DESC").Limit(limit).Find(&failures).Error; err != nil {
		return nil, fmt.Errorf("store: list ingest failures: %w", err)
	}
	return failures, nil
}
