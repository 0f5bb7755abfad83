package models

import "time"

// Summary record statuses. An ORPHANED summary parsed cleanly but could not
// be tied to a known quest yet.
const (
	SummaryPublished = "PUBLISHED"
	SummaryOrphaned  = "ORPHANED"
)

// Summary kinds.
const (
	SummaryKindPlayer  = "player"
	SummaryKindReferee = "referee"
)

// SummaryRecord is the durable projection of an adventure-summary post,
// keyed by its source Discord message.
type SummaryRecord struct {
	ID             uint    `gorm:"primaryKey;autoIncrement"`
	SummaryID      string  `gorm:"size:16;uniqueIndex;not null"`
	QuestID        *string `gorm:"size:16;index"`
	Kind           string  `gorm:"size:16;default:player"`
	Title          *string `gorm:"size:256"`
	ShortSummaryMD string  `gorm:"type:text"`
	ContentMD      string  `gorm:"type:text"`
	RegionText     *string `gorm:"size:128"`
	Players        string  `gorm:"type:json"`
	RelatedLinks   string  `gorm:"type:json"`
	InCharacter    bool    `gorm:"default:true"`
	AuthorID       string  `gorm:"size:32;index"`
	AuthorUserID   *string `gorm:"size:16"`
	GuildID        string  `gorm:"size:32;uniqueIndex:uq_summary_source"`
	ChannelID      string  `gorm:"size:32;uniqueIndex:uq_summary_source"`
	MessageID      string  `gorm:"size:32;uniqueIndex:uq_summary_source"`
	Status         string  `gorm:"size:16;default:PUBLISHED;index"`
	Raw            string  `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
