// Package quest owns the quest lifecycle state machine. A quest aggregate is
// mutated only through the operations here; every operation guards its source
// state and fails with an InvalidOperationError naming the states it needs.
package quest

import (
	"fmt"
	"time"

	"questboard/internal/models"
)

// NudgeCooldown is the minimum wait between two nudges of the same quest.
const NudgeCooldown = 48 * time.Hour

// terminal statuses admit no further transitions except nothing.
var terminal = map[string]bool{
	models.StatusCompleted: true,
	models.StatusCancelled: true,
}

// Seat names one (user, character) pair for roster selection.
type Seat struct {
	UserID      string
	CharacterID string
}

// New creates a quest aggregate in DRAFT for the given referee.
func New(questID, refereeID, title string, startingAt *time.Time, durationMinutes int, now time.Time) *models.Quest {
	return &models.Quest{
		QuestID:         questID,
		RefereeID:       refereeID,
		Title:           title,
		StartingAt:      startingAt,
		DurationMinutes: durationMinutes,
		Status:          models.StatusDraft,
		StatusUpdatedAt: now,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Announce publishes the quest. Announcing an already announced quest is a
// no-op rather than an error, so re-posts stay idempotent.
func Announce(q *models.Quest, now time.Time) error {
	if err := requires(q, "announce", models.StatusDraft, models.StatusAnnounced); err != nil {
		return err
	}
	setStatus(q, models.StatusAnnounced, now)
	return nil
}

// OpenSignups starts accepting signups.
func OpenSignups(q *models.Quest, now time.Time) error {
	if err := requires(q, "open_signups", models.StatusAnnounced); err != nil {
		return err
	}
	setStatus(q, models.StatusSignupOpen, now)
	return nil
}

// AddSignup records a player's application with a specific character.
// Re-applying with the exact same character is a no-op; applying with a
// different character while an application exists is rejected: a user holds
// at most one signup per quest.
func AddSignup(q *models.Quest, userID, characterID string, now time.Time) error {
	if err := requires(q, "add_signup", models.StatusSignupOpen); err != nil {
		return err
	}
	for _, s := range q.Signups {
		if s.UserID != userID {
			continue
		}
		if s.CharacterID == characterID {
			return nil
		}
		return &InvalidOperationError{
			Op:     "add_signup",
			Status: q.Status,
			Reason: fmt.Sprintf("user %s already signed up with character %s", userID, s.CharacterID),
		}
	}

	q.Signups = append(q.Signups, models.Signup{
		UserID:      userID,
		CharacterID: characterID,
		Status:      models.SignupApplied,
		AppliedAt:   now,
		UpdatedAt:   now,
	})
	q.UpdatedAt = now
	return nil
}

// SelectSignup marks a single applicant as selected.
func SelectSignup(q *models.Quest, userID string, now time.Time) error {
	if err := requires(q, "select_signup", models.StatusSignupOpen); err != nil {
		return err
	}
	for i := range q.Signups {
		if q.Signups[i].UserID == userID {
			q.Signups[i].Status = models.SignupSelected
			q.Signups[i].UpdatedAt = now
			q.UpdatedAt = now
			return nil
		}
	}
	return &NotFoundError{Kind: "signup", ID: userID}
}

// RemoveSignup withdraws a player's application.
func RemoveSignup(q *models.Quest, userID string, now time.Time) error {
	if err := requires(q, "remove_signup", models.StatusSignupOpen); err != nil {
		return err
	}
	for i := range q.Signups {
		if q.Signups[i].UserID == userID {
			q.Signups = append(q.Signups[:i], q.Signups[i+1:]...)
			q.UpdatedAt = now
			return nil
		}
	}
	return &NotFoundError{Kind: "signup", ID: userID}
}

// CloseSignups stops accepting signups and freezes the roster phase.
func CloseSignups(q *models.Quest, now time.Time) error {
	if err := requires(q, "close_signups", models.StatusSignupOpen); err != nil {
		return err
	}
	setStatus(q, models.StatusRosterSelected, now)
	return nil
}

// SelectRoster builds the roster and waitlist and mirrors SELECTED and
// WAITLISTED back onto the matching signup entries by (user, character) key.
// Signups not named in this call keep whatever status they already had;
// there is no implicit decline. Re-selection from ROSTER_SELECTED is allowed
// so a referee can amend the roster before the quest runs.
func SelectRoster(q *models.Quest, selected, waitlisted []Seat, now time.Time) error {
	if err := requires(q, "select_roster", models.StatusSignupOpen, models.StatusRosterSelected); err != nil {
		return err
	}

	q.Roster = q.Roster[:0]
	for _, seat := range selected {
		q.Roster = append(q.Roster, models.RosterEntry{
			UserID:      seat.UserID,
			CharacterID: seat.CharacterID,
			SelectedAt:  now,
		})
	}
	for _, seat := range waitlisted {
		q.Roster = append(q.Roster, models.RosterEntry{
			UserID:      seat.UserID,
			CharacterID: seat.CharacterID,
			Waitlisted:  true,
			SelectedAt:  now,
		})
	}

	mirror := func(seats []Seat, status string) {
		for _, seat := range seats {
			for i := range q.Signups {
				if q.Signups[i].UserID == seat.UserID && q.Signups[i].CharacterID == seat.CharacterID {
					q.Signups[i].Status = status
					q.Signups[i].UpdatedAt = now
				}
			}
		}
	}
	mirror(selected, models.SignupSelected)
	mirror(waitlisted, models.SignupWaitlisted)

	setStatus(q, models.StatusRosterSelected, now)
	return nil
}

// MarkRunning stamps the actual start of play.
func MarkRunning(q *models.Quest, now time.Time) error {
	if err := requires(q, "mark_running", models.StatusRosterSelected); err != nil {
		return err
	}
	started := now
	q.StartedAt = &started
	setStatus(q, models.StatusRunning, now)
	return nil
}

// MarkCompleted stamps the end of play and flags the quest as needing an
// adventure summary.
func MarkCompleted(q *models.Quest, now time.Time) error {
	if err := requires(q, "mark_completed", models.StatusRunning); err != nil {
		return err
	}
	ended := now
	q.EndedAt = &ended
	q.SummaryNeeded = true
	setStatus(q, models.StatusCompleted, now)
	return nil
}

// Cancel moves the quest to CANCELLED from any non-terminal state and counts
// the cancellation.
func Cancel(q *models.Quest, reason string, now time.Time) error {
	if terminal[q.Status] {
		return &InvalidOperationError{
			Op:       "cancel",
			Status:   q.Status,
			Required: []string{"any non-terminal status"},
		}
	}
	cancelled := now
	q.CancelledAt = &cancelled
	q.CancelReason = reason
	q.CancelledCount++
	setStatus(q, models.StatusCancelled, now)
	return nil
}

// Nudge re-announces the quest. Only the referee may nudge, only while
// signups are open, and not more than once per cooldown window; a rejected
// nudge reports the remaining wait.
func Nudge(q *models.Quest, actorID string, now time.Time) error {
	if err := requires(q, "nudge", models.StatusSignupOpen); err != nil {
		return err
	}
	if actorID != q.RefereeID {
		return &InvalidOperationError{
			Op:     "nudge",
			Status: q.Status,
			Reason: fmt.Sprintf("only the quest's referee can nudge %s", q.QuestID),
		}
	}
	if q.LastNudgedAt != nil {
		elapsed := now.Sub(*q.LastNudgedAt)
		if elapsed < NudgeCooldown {
			return &CooldownError{Remaining: NudgeCooldown - elapsed}
		}
	}
	nudged := now
	q.LastNudgedAt = &nudged
	q.UpdatedAt = now
	return nil
}

func setStatus(q *models.Quest, status string, now time.Time) {
	q.Status = status
	q.StatusUpdatedAt = now
	q.UpdatedAt = now
}

func requires(q *models.Quest, op string, statuses ...string) error {
	for _, s := range statuses {
		if q.Status == s {
			return nil
		}
	}
	return &InvalidOperationError{Op: op, Status: q.Status, Required: statuses}
}
