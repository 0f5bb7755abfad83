package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"questboard/internal/grammar"
	"questboard/internal/models"
)

// Summaries reads and writes adventure-summary records keyed by their source
// message.
type Summaries struct {
	DB *gorm.DB
}

// GetBySource returns the summary previously ingested for the given source
// message, or nil when none exists.
func (s Summaries) GetBySource(ref grammar.MessageRef) (*models.SummaryRecord, error) {
	var record models.SummaryRecord
	err := s.DB.Where("guild_id = ? AND channel_id = ? AND message_id = ?",
		ref.GuildID, ref.ChannelID, ref.MessageID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get summary record by source: %w", err)
	}
	return &record, nil
}

// Upsert writes the summary record, reporting whether it was newly created.
func (s Summaries) Upsert(record *models.SummaryRecord) (bool, error) {
	created := record.ID == 0
	var err error
	if created {
		err = s.DB.Create(record).Error
	} else {
		err = s.DB.Save(record).Error
	}
	if err != nil {
		return false, fmt.Errorf("store: upsert summary record %s: %w", record.SummaryID, err)
	}
	return created, nil
}
