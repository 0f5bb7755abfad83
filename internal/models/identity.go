package models

import "time"

// UserLink maps a Discord author id to a stable Questboard user id. The
// mapping is created once per author and never rewritten.
type UserLink struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	DiscordID string `gorm:"size:32;uniqueIndex;not null"`
	UserID    string `gorm:"size:16;uniqueIndex;not null"`
	CreatedAt time.Time
}

// Counter backs the monotonic id sequences (QUEST, SUMM, USER).
type Counter struct {
	Name string `gorm:"primaryKey;size:16"`
	Seq  int64
}
