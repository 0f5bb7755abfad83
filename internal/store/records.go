// Package store provides the gorm-backed implementations of the ports the
// ingestion pipeline and command handlers consume: quest/summary records,
// quest aggregates, id sequences, and the ingest-failure sink.
package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"questboard/internal/grammar"
	"questboard/internal/models"
)

// Records reads and writes quest records keyed by their source message.
type Records struct {
	DB *gorm.DB
}

// GetBySource returns the record previously ingested for the given source
// message, or nil when none exists.
func (r Records) GetBySource(ref grammar.MessageRef) (*models.QuestRecord, error) {
	var record models.QuestRecord
	err := r.DB.Preload("LinkedQuests", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("guild_id = ? AND channel_id = ? AND message_id = ?",
		ref.GuildID, ref.ChannelID, ref.MessageID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get quest record by source: %w", err)
	}
	return &record, nil
}

// GetByQuestID returns the record with the given quest id, or nil.
func (r Records) GetByQuestID(questID string) (*models.QuestRecord, error) {
	var record models.QuestRecord
	err := r.DB.Preload("LinkedQuests").Where("quest_id = ?", questID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get quest record %s: %w", questID, err)
	}
	return &record, nil
}

// Upsert writes the record and its linked-quest rows atomically. It reports
// whether a new record was created (false means an existing one was updated).
func (r Records) Upsert(record *models.QuestRecord) (bool, error) {
	created := record.ID == 0
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		links := record.LinkedQuests
		record.LinkedQuests = nil
		defer func() { record.LinkedQuests = links }()

		if created {
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Save(record).Error; err != nil {
				return err
			}
			if err := tx.Where("record_id = ?", record.ID).Delete(&models.LinkedQuest{}).Error; err != nil {
				return err
			}
		}

		for i := range links {
			links[i].ID = 0
			links[i].RecordID = record.ID
		}
		if len(links) > 0 {
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("store: upsert quest record %s: %w", record.QuestID, err)
	}
	return created, nil
}

// MarkCancelled flips the record for the given source message to CANCELLED.
// It reports whether a record was updated; deleting an untracked message is
// not an error.
func (r Records) MarkCancelled(ref grammar.MessageRef) (bool, error) {
	res := r.DB.Model(&models.QuestRecord{}).
		Where("guild_id = ? AND channel_id = ? AND message_id = ?",
			ref.GuildID, ref.ChannelID, ref.MessageID).
		Update("status", models.RecordCancelled)
	if res.Error != nil {
		return false, fmt.Errorf("store: mark quest record cancelled: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// LookupQuestID resolves a linked-message reference to the quest id of the
// record ingested from that message, if any.
func (r Records) LookupQuestID(ref grammar.MessageRef) (string, error) {
	var record models.QuestRecord
	err := r.DB.Select("quest_id").
		Where("guild_id = ? AND channel_id = ? AND message_id = ?",
			ref.GuildID, ref.ChannelID, ref.MessageID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: lookup quest id: %w", err)
	}
	return record.QuestID, nil
}
