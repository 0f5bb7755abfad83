// Package reminder runs the scheduled sweep that chases missing adventure
// summaries for completed quests.
package reminder

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"questboard/internal/models"
)

// questSource lists quests due a reminder and records that one was sent.
type questSource interface {
	ReminderDue() ([]models.Quest, error)
	MarkSummaryReminded(questID string, at time.Time) error
}

// poster delivers one reminder message to a channel.
type poster interface {
	PostReminder(channelID, content string) error
}

// Sweeper posts at most one summary reminder per completed quest, on a cron
// schedule. A quest is skipped forever once its reminder is stamped, even if
// the summary never arrives.
type Sweeper struct {
	quests    questSource
	poster    poster
	channelID string
	log       zerolog.Logger
	now       func() time.Time
	cron      *cron.Cron
}

// Opts holds parameters for creating a Sweeper.
type Opts struct {
	Quests    questSource
	Poster    poster
	ChannelID string
	Logger    zerolog.Logger
	Now       func() time.Time
}

// New creates a Sweeper.
func New(opts Opts) (*Sweeper, error) {
	if opts.Quests == nil {
		return nil, fmt.Errorf("reminder: quest source is required")
	}
	if opts.Poster == nil {
		return nil, fmt.Errorf("reminder: poster is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("reminder: channel id is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		quests:    opts.Quests,
		poster:    opts.Poster,
		channelID: opts.ChannelID,
		log:       opts.Logger,
		now:       now,
	}, nil
}

// Start schedules the sweep with a standard 5-field cron expression and
// begins running it.
func (s *Sweeper) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := s.Sweep(); err != nil {
			s.log.Error().Err(err).Msg("reminder sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("reminder: schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the schedule. Does not interrupt a sweep already running.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep posts a reminder for every completed quest still missing a summary
// that has not been reminded before. A failed post leaves the quest
// unstamped so the next sweep retries it.
func (s *Sweeper) Sweep() error {
	due, err := s.quests.ReminderDue()
	if err != nil {
		return fmt.Errorf("reminder: list due quests: %w", err)
	}

	for _, q := range due {
		content := reminderMessage(q)
		if err := s.poster.PostReminder(s.channelID, content); err != nil {
			s.log.Warn().Err(err).Str("quest_id", q.QuestID).Msg("reminder post failed")
			continue
		}
		if err := s.quests.MarkSummaryReminded(q.QuestID, s.now()); err != nil {
			s.log.Error().Err(err).Str("quest_id", q.QuestID).Msg("reminder stamp failed")
			continue
		}
		s.log.Info().Str("quest_id", q.QuestID).Msg("summary reminder posted")
	}
	return nil
}

// reminderMessage renders the reminder text for one quest.
func reminderMessage(q models.Quest) string {
	title := q.Title
	if title == "" {
		title = q.QuestID
	}
	msg := fmt.Sprintf("<@%s> **%s** (%s) has finished but no adventure summary has been posted yet.",
		q.RefereeID, title, q.QuestID)
	if q.EndedAt != nil {
		msg += fmt.Sprintf(" It ended <t:%d:R>.", q.EndedAt.Unix())
	}
	return msg
}
