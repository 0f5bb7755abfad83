package store

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"questboard/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.QuestRecord{}, &models.LinkedQuest{}, &models.SummaryRecord{},
		&models.Quest{}, &models.Signup{}, &models.RosterEntry{},
		&models.IngestFailure{}, &models.UserLink{}, &models.Counter{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
