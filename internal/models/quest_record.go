// Package models defines the gorm persistence models for Questboard.
package models

import "time"

// Record statuses for ingested quest announcements.
const (
	RecordActive    = "ACTIVE"
	RecordCancelled = "CANCELLED"
)

// QuestRecord is the durable projection of a parsed and validated quest
// announcement, keyed by its source Discord message. CreatedAt is set on
// first ingestion and never changes; UpdatedAt is refreshed on every
// re-ingestion of the same message.
type QuestRecord struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	QuestID         string `gorm:"size:16;uniqueIndex;not null"`
	Title           string `gorm:"size:140;not null"`
	DescriptionMD   string `gorm:"type:text"`
	RegionName      string `gorm:"size:64"`
	RegionHex       string `gorm:"size:16"`
	Tags            string `gorm:"type:json"`
	StartsAt        time.Time
	EndsAt          time.Time
	DurationMinutes int
	TableURL        string  `gorm:"size:512"`
	EventURL        string  `gorm:"size:512"`
	ImageURL        *string `gorm:"size:512"`
	AuthorID        string  `gorm:"size:32;index"`
	RefereeUserID   *string `gorm:"size:16"`
	GuildID         string  `gorm:"size:32;uniqueIndex:uq_quest_source"`
	ChannelID       string  `gorm:"size:32;uniqueIndex:uq_quest_source"`
	MessageID       string  `gorm:"size:32;uniqueIndex:uq_quest_source"`
	Status          string  `gorm:"size:16;default:ACTIVE;index"`
	Raw             string  `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	LinkedQuests []LinkedQuest `gorm:"foreignKey:RecordID"`
}

// LinkedQuest is one reference from a quest announcement to another quest
// message. ResolvedQuestID is filled in lazily once the referenced message
// has its own record, and survives re-ingestion of the parent.
type LinkedQuest struct {
	ID              uint    `gorm:"primaryKey;autoIncrement"`
	RecordID        uint    `gorm:"index;not null"`
	GuildID         string  `gorm:"size:32"`
	ChannelID       string  `gorm:"size:32"`
	MessageID       string  `gorm:"size:32"`
	Position        int
	ResolvedQuestID *string `gorm:"size:16"`
}
