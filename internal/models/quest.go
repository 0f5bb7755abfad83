package models

import "time"

// Quest lifecycle statuses.
const (
	StatusDraft          = "draft"
	StatusAnnounced      = "announced"
	StatusSignupOpen     = "signup_open"
	StatusRosterSelected = "roster_selected"
	StatusRunning        = "running"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
)

// Signup statuses.
const (
	SignupApplied    = "applied"
	SignupSelected   = "selected"
	SignupWaitlisted = "waitlisted"
)

// Quest is the stateful lifecycle aggregate for one quest. It is mutated
// only through the operations in the quest package; Version backs the
// optimistic-concurrency check on writes.
type Quest struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	QuestID           string `gorm:"size:16;uniqueIndex;not null"`
	RefereeID         string `gorm:"size:32;index;not null"`
	Title             string `gorm:"size:140"`
	StartingAt        *time.Time
	DurationMinutes   int
	Status            string `gorm:"size:24;default:draft;index"`
	StatusUpdatedAt   time.Time
	StartedAt         *time.Time
	EndedAt           *time.Time
	CancelledAt       *time.Time
	CancelReason      string `gorm:"size:256"`
	CancelledCount    int
	LastNudgedAt      *time.Time
	SummaryNeeded     bool
	SummaryRemindedAt *time.Time
	Version           int `gorm:"default:1"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Signups []Signup      `gorm:"foreignKey:QuestRowID"`
	Roster  []RosterEntry `gorm:"foreignKey:QuestRowID"`
}

// Signup is one player's application to join a quest with a specific
// character. A user has at most one signup per quest.
type Signup struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	QuestRowID  uint   `gorm:"index;uniqueIndex:uq_signup_user,priority:1;not null"`
	UserID      string `gorm:"size:32;uniqueIndex:uq_signup_user,priority:2;not null"`
	CharacterID string `gorm:"size:32;not null"`
	Status      string `gorm:"size:16;default:applied"`
	AppliedAt   time.Time
	UpdatedAt   time.Time
}

// RosterEntry is one selected or waitlisted seat on a quest's roster.
type RosterEntry struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	QuestRowID  uint   `gorm:"index;not null"`
	UserID      string `gorm:"size:32;not null"`
	CharacterID string `gorm:"size:32;not null"`
	Waitlisted  bool
	SelectedAt  time.Time
}
