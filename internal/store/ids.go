package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"questboard/internal/models"
)

// Counter names for the id sequences.
const (
	seqQuest   = "QUEST"
	seqSummary = "SUMM"
	seqUser    = "USER"
)

// IDs hands out monotonic, human-readable identifiers (QUES0042, SUMM0007,
// USER0123) backed by a counters table incremented inside a transaction.
type IDs struct {
	DB *gorm.DB
}

// NextQuestID mints a new quest identifier.
func (s IDs) NextQuestID() (string, error) {
	seq, err := s.next(seqQuest)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("QUES%04d", seq), nil
}

// NextSummaryID mints a new summary identifier.
func (s IDs) NextSummaryID() (string, error) {
	seq, err := s.next(seqSummary)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SUMM%04d", seq), nil
}

// EnsureUserID returns the stable user id for a Discord author, minting one
// on first sight. Concurrent first sights converge on whichever insert won.
func (s IDs) EnsureUserID(discordID string) (string, error) {
	var link models.UserLink
	err := s.DB.Where("discord_id = ?", discordID).First(&link).Error
	if err == nil {
		return link.UserID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("store: lookup user link %s: %w", discordID, err)
	}

	seq, err := s.next(seqUser)
	if err != nil {
		return "", err
	}
	link = models.UserLink{DiscordID: discordID, UserID: fmt.Sprintf("USER%04d", seq)}
	if err := s.DB.Create(&link).Error; err != nil {
		// Lost the race to another ingestion: the winner's mapping stands.
		var existing models.UserLink
		if lookupErr := s.DB.Where("discord_id = ?", discordID).First(&existing).Error; lookupErr == nil {
			return existing.UserID, nil
		}
		return "", fmt.Errorf("store: create user link %s: %w", discordID, err)
	}
	return link.UserID, nil
}

// next atomically increments and returns the named sequence.
func (s IDs) next(name string) (int64, error) {
	var seq int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var counter models.Counter
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", name).First(&counter).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			counter = models.Counter{Name: name}
			if err := tx.Create(&counter).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		counter.Seq++
		if err := tx.Model(&models.Counter{}).Where("name = ?", name).
			Update("seq", counter.Seq).Error; err != nil {
			return err
		}
		seq = counter.Seq
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: next %s sequence: %w", name, err)
	}
	return seq, nil
}
