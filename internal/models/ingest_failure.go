package models

import "time"

// Ingest failure reason codes.
const (
	ReasonParseError            = "parse_error"
	ReasonValidationError       = "validation_error"
	ReasonMissingQuestReference = "missing_quest_reference"
)

// IngestFailure is a write-once audit row for a message that could not be
// ingested. The pipeline only ever appends; rows are read back by the CLI
// and the dashboard.
type IngestFailure struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Kind       string `gorm:"size:16;index"`
	GuildID    string `gorm:"size:32"`
	ChannelID  string `gorm:"size:32"`
	MessageID  string `gorm:"size:32;index"`
	AuthorID   string `gorm:"size:32"`
	RawContent string `gorm:"type:text"`
	Reason     string `gorm:"size:32;index"`
	Errors     string `gorm:"type:json"`
	Metadata   string `gorm:"type:json"`
	CreatedAt  time.Time
}
