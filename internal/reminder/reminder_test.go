package reminder

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"questboard/internal/models"
)

type fakeQuestSource struct {
	due      []models.Quest
	dueErr   error
	stamped  []string
	stampErr error
}

func (f *fakeQuestSource) ReminderDue() ([]models.Quest, error) {
	return f.due, f.dueErr
}

func (f *fakeQuestSource) MarkSummaryReminded(questID string, at time.Time) error {
	if f.stampErr != nil {
		return f.stampErr
	}
	f.stamped = append(f.stamped, questID)
	return nil
}

type fakePoster struct {
	posts   []string
	postErr error
}

func (f *fakePoster) PostReminder(channelID, content string) error {
	if f.postErr != nil {
		return f.postErr
	}
	f.posts = append(f.posts, content)
	return nil
}

func completedQuest(questID, referee, title string) models.Quest {
	ended := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	return models.Quest{
		QuestID:       questID,
		RefereeID:     referee,
		Title:         title,
		Status:        models.StatusCompleted,
		SummaryNeeded: true,
		EndedAt:       &ended,
	}
}

func newSweeper(t *testing.T, quests questSource, p poster) *Sweeper {
	t.Helper()
	s, err := New(Opts{
		Quests:    quests,
		Poster:    p,
		ChannelID: "chan-1",
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts Opts
	}{
		{"missing quests", Opts{Poster: &fakePoster{}, ChannelID: "c"}},
		{"missing poster", Opts{Quests: &fakeQuestSource{}, ChannelID: "c"}},
		{"missing channel", Opts{Quests: &fakeQuestSource{}, Poster: &fakePoster{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSweep_PostsAndStamps(t *testing.T) {
	src := &fakeQuestSource{due: []models.Quest{
		completedQuest("QUES0001", "ref-1", "The Sunken Vault"),
		completedQuest("QUES0002", "ref-2", "Mistwood Patrol"),
	}}
	p := &fakePoster{}
	s := newSweeper(t, src, p)

	if err := s.Sweep(); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(p.posts) != 2 {
		t.Fatalf("len(posts) = %d, want 2", len(p.posts))
	}
	if len(src.stamped) != 2 {
		t.Fatalf("len(stamped) = %d, want 2", len(src.stamped))
	}
	if src.stamped[0] != "QUES0001" || src.stamped[1] != "QUES0002" {
		t.Errorf("stamped = %v", src.stamped)
	}
}

func TestSweep_MessageContent(t *testing.T) {
	src := &fakeQuestSource{due: []models.Quest{
		completedQuest("QUES0001", "ref-1", "The Sunken Vault"),
	}}
	p := &fakePoster{}
	s := newSweeper(t, src, p)

	if err := s.Sweep(); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	msg := p.posts[0]
	for _, want := range []string{"<@ref-1>", "The Sunken Vault", "QUES0001", "<t:"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestSweep_UntitledQuestFallsBackToID(t *testing.T) {
	q := completedQuest("QUES0003", "ref-1", "")
	q.EndedAt = nil
	src := &fakeQuestSource{due: []models.Quest{q}}
	p := &fakePoster{}
	s := newSweeper(t, src, p)

	if err := s.Sweep(); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if !strings.Contains(p.posts[0], "**QUES0003**") {
		t.Errorf("message %q should use quest id as title", p.posts[0])
	}
	if strings.Contains(p.posts[0], "<t:") {
		t.Errorf("message %q should omit timestamp without EndedAt", p.posts[0])
	}
}

func TestSweep_NothingDue(t *testing.T) {
	src := &fakeQuestSource{}
	p := &fakePoster{}
	s := newSweeper(t, src, p)

	if err := s.Sweep(); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(p.posts) != 0 {
		t.Errorf("len(posts) = %d, want 0", len(p.posts))
	}
}

func TestSweep_ListError(t *testing.T) {
	src := &fakeQuestSource{dueErr: fmt.Errorf("boom")}
	s := newSweeper(t, src, &fakePoster{})

	err := s.Sweep()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "reminder: list due quests") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestSweep_PostFailureLeavesUnstamped(t *testing.T) {
	src := &fakeQuestSource{due: []models.Quest{
		completedQuest("QUES0001", "ref-1", "The Sunken Vault"),
	}}
	p := &fakePoster{postErr: fmt.Errorf("boom")}
	s := newSweeper(t, src, p)

	if err := s.Sweep(); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(src.stamped) != 0 {
		t.Errorf("stamped = %v, want none after failed post", src.stamped)
	}
}

func TestSweep_StampFailureContinues(t *testing.T) {
	src := &fakeQuestSource{
		due: []models.Quest{
			completedQuest("QUES0001", "ref-1", "A"),
			completedQuest("QUES0002", "ref-2", "B"),
		},
		stampErr: fmt.Errorf("boom"),
	}
	p := &fakePoster{}
	s := newSweeper(t, src, p)

	if err := s.Sweep(); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(p.posts) != 2 {
		t.Errorf("len(posts) = %d, want 2 (stamp failure should not abort)", len(p.posts))
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := newSweeper(t, &fakeQuestSource{}, &fakePoster{})
	if err := s.Start("not a cron expr"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestStart_ValidSchedule(t *testing.T) {
	s := newSweeper(t, &fakeQuestSource{}, &fakePoster{})
	if err := s.Start("0 9 * * *"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}
