package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"questboard/internal/models"
	"questboard/internal/quest"
)

// ErrVersionConflict reports an optimistic-concurrency failure: the aggregate
// changed between load and save. Callers reload and retry.
var ErrVersionConflict = errors.New("store: quest version conflict")

// Quests loads and saves quest aggregates. Saves are compare-and-swap on the
// aggregate's version column so concurrent mutations of the same quest never
// silently lose a signup.
type Quests struct {
	DB *gorm.DB
}

// Get loads the aggregate with its signups and roster. A missing quest comes
// back as quest.NotFoundError.
func (s Quests) Get(questID string) (*models.Quest, error) {
	var q models.Quest
	err := s.DB.Preload("Signups", func(db *gorm.DB) *gorm.DB {
		return db.Order("applied_at ASC, id ASC")
	}).Preload("Roster", func(db *gorm.DB) *gorm.DB {
		return db.Order("selected_at ASC, id ASC")
	}).Where("quest_id = ?", questID).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &quest.NotFoundError{Kind: "quest", ID: questID}
	}
	if err != nil {
		return nil, fmt.Errorf("store: get quest %s: %w", questID, err)
	}
	return &q, nil
}

// List returns aggregates matching the optional status filter, newest first.
func (s Quests) List(status string) ([]models.Quest, error) {
	q := s.DB.Model(&models.Quest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var quests []models.Quest
	if err := q.Order("created_at DESC").Find(&quests).Error; err != nil {
		return nil, fmt.Errorf("store: list quests: %w", err)
	}
	return quests, nil
}

// SummaryNeeded returns completed quests still waiting on a summary.
func (s Quests) SummaryNeeded() ([]models.Quest, error) {
	var quests []models.Quest
	err := s.DB.Where("status = ? AND summary_needed = ?", models.StatusCompleted, true).
		Order("ended_at ASC").Find(&quests).Error
	if err != nil {
		return nil, fmt.Errorf("store: list summary-needed quests: %w", err)
	}
	return quests, nil
}

// ClearSummaryNeeded drops the summary flag once a summary for the quest has
// been ingested.
func (s Quests) ClearSummaryNeeded(questID string) error {
	err := s.DB.Model(&models.Quest{}).Where("quest_id = ?", questID).
		Update("summary_needed", false).Error
	if err != nil {
		return fmt.Errorf("store: clear summary flag for %s: %w", questID, err)
	}
	return nil
}

// ReminderDue returns completed quests still waiting on a summary that have
// not had a reminder posted yet.
func (s Quests) ReminderDue() ([]models.Quest, error) {
	var quests []models.Quest
	err := s.DB.Where("status = ? AND summary_needed = ? AND summary_reminded_at IS NULL",
		models.StatusCompleted, true).Order("ended_at ASC").Find(&quests).Error
	if err != nil {
		return nil, fmt.Errorf("store: list reminder-due quests: %w", err)
	}
	return quests, nil
}

// MarkSummaryReminded stamps the quest so the sweep posts at most one
// reminder per quest.
func (s Quests) MarkSummaryReminded(questID string, at time.Time) error {
	err := s.DB.Model(&models.Quest{}).Where("quest_id = ?", questID).
		Update("summary_reminded_at", at).Error
	if err != nil {
		return fmt.Errorf("store: mark summary reminded for %s: %w", questID, err)
	}
	return nil
}

// Save persists the aggregate. New aggregates are created outright; existing
// ones are updated only if the stored version still matches the version the
// aggregate was loaded at, then signup and roster rows are rewritten.
func (s Quests) Save(q *models.Quest) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if q.ID == 0 {
			return tx.Create(q).Error
		}

		loadedVersion := q.Version
		q.Version++
		res := tx.Model(&models.Quest{}).
			Where("id = ? AND version = ?", q.ID, loadedVersion).
			Updates(map[string]interface{}{
				"title":               q.Title,
				"starting_at":         q.StartingAt,
				"duration_minutes":    q.DurationMinutes,
				"status":              q.Status,
				"status_updated_at":   q.StatusUpdatedAt,
				"started_at":          q.StartedAt,
				"ended_at":            q.EndedAt,
				"cancelled_at":        q.CancelledAt,
				"cancel_reason":       q.CancelReason,
				"cancelled_count":     q.CancelledCount,
				"last_nudged_at":      q.LastNudgedAt,
				"summary_needed":      q.SummaryNeeded,
				"summary_reminded_at": q.SummaryRemindedAt,
				"updated_at":          q.UpdatedAt,
				"version":             q.Version,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		if err := tx.Where("quest_row_id = ?", q.ID).Delete(&models.Signup{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quest_row_id = ?", q.ID).Delete(&models.RosterEntry{}).Error; err != nil {
			return err
		}
		for i := range q.Signups {
			q.Signups[i].ID = 0
			q.Signups[i].QuestRowID = q.ID
		}
		for i := range q.Roster {
			q.Roster[i].ID = 0
			q.Roster[i].QuestRowID = q.ID
		}
		if len(q.Signups) > 0 {
			if err := tx.Create(&q.Signups).Error; err != nil {
				return err
			}
		}
		if len(q.Roster) > 0 {
			if err := tx.Create(&q.Roster).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrVersionConflict) {
		return fmt.Errorf("store: save quest %s: %w", q.QuestID, ErrVersionConflict)
	}
	if err != nil {
		return fmt.Errorf("store: save quest %s: %w", q.QuestID, err)
	}
	return nil
}
