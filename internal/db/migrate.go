package db

import (
	"fmt"

	"gorm.io/gorm"

	"questboard/internal/models"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.QuestRecord{},
		&models.LinkedQuest{},
		&models.SummaryRecord{},
		&models.Quest{},
		&models.Signup{},
		&models.RosterEntry{},
		&models.IngestFailure{},
		&models.UserLink{},
		&models.Counter{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
