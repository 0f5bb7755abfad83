package store

import (
	"testing"
	"time"

	"questboard/internal/grammar"
	"questboard/internal/models"
)

func sampleRecord(questID, messageID string) *models.QuestRecord {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.QuestRecord{
		QuestID:         questID,
		Title:           "The Goblin Warrens",
		Tags:            `["combat"]`,
		StartsAt:        now,
		EndsAt:          now.Add(3 * time.Hour),
		DurationMinutes: 180,
		AuthorID:        "author1",
		GuildID:         "100",
		ChannelID:       "200",
		MessageID:       messageID,
		Status:          models.RecordActive,
		CreatedAt:       now,
		UpdatedAt:       now,
		LinkedQuests: []models.LinkedQuest{
			{GuildID: "100", ChannelID: "200", MessageID: "301", Position: 0},
			{GuildID: "100", ChannelID: "250", MessageID: "302", Position: 1},
		},
	}
}

func TestRecords_UpsertAndGetBySource(t *testing.T) {
	records := Records{DB: testDB(t)}

	created, err := records.Upsert(sampleRecord("QUES0001", "999"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Error("created = false on first upsert")
	}

	got, err := records.GetBySource(grammar.MessageRef{GuildID: "100", ChannelID: "200", MessageID: "999"})
	if err != nil {
		t.Fatalf("GetBySource: %v", err)
	}
	if got == nil {
		t.Fatal("record not found")
	}
	if got.QuestID != "QUES0001" {
		t.Errorf("QuestID = %q", got.QuestID)
	}
	if len(got.LinkedQuests) != 2 {
		t.Fatalf("LinkedQuests = %v", got.LinkedQuests)
	}
	if got.LinkedQuests[0].MessageID != "301" || got.LinkedQuests[1].MessageID != "302" {
		t.Errorf("links out of order: %v", got.LinkedQuests)
	}
}

func TestRecords_GetBySource_Missing(t *testing.T) {
	records := Records{DB: testDB(t)}
	got, err := records.GetBySource(grammar.MessageRef{GuildID: "1", ChannelID: "2", MessageID: "3"})
	if err != nil {
		t.Fatalf("GetBySource: %v", err)
	}
	if got != nil {
		t.Errorf("record = %+v, want nil", got)
	}
}

func TestRecords_UpsertRewritesLinks(t *testing.T) {
	db := testDB(t)
	records := Records{DB: db}

	record := sampleRecord("QUES0001", "999")
	if _, err := records.Upsert(record); err != nil {
		t.Fatal(err)
	}

	// Re-ingest with one link dropped and a resolved id on the survivor.
	resolved := "QUES0042"
	record.LinkedQuests = []models.LinkedQuest{
		{GuildID: "100", ChannelID: "200", MessageID: "301", Position: 0, ResolvedQuestID: &resolved},
	}
	created, err := records.Upsert(record)
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if created {
		t.Error("created = true on update")
	}

	got, err := records.GetBySource(grammar.MessageRef{GuildID: "100", ChannelID: "200", MessageID: "999"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.LinkedQuests) != 1 {
		t.Fatalf("LinkedQuests = %v, want one after rewrite", got.LinkedQuests)
	}
	if got.LinkedQuests[0].ResolvedQuestID == nil || *got.LinkedQuests[0].ResolvedQuestID != "QUES0042" {
		t.Errorf("ResolvedQuestID = %v", got.LinkedQuests[0].ResolvedQuestID)
	}

	var linkCount int64
	if err := db.Model(&models.LinkedQuest{}).Count(&linkCount).Error; err != nil {
		t.Fatal(err)
	}
	if linkCount != 1 {
		t.Errorf("link rows = %d, want stale rows deleted", linkCount)
	}
}

func TestRecords_GetByQuestID(t *testing.T) {
	records := Records{DB: testDB(t)}
	if _, err := records.Upsert(sampleRecord("QUES0001", "999")); err != nil {
		t.Fatal(err)
	}

	got, err := records.GetByQuestID("QUES0001")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.MessageID != "999" {
		t.Errorf("record = %+v", got)
	}

	missing, err := records.GetByQuestID("QUES9999")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("record = %+v, want nil", missing)
	}
}

func TestRecords_MarkCancelled(t *testing.T) {
	records := Records{DB: testDB(t)}
	if _, err := records.Upsert(sampleRecord("QUES0001", "999")); err != nil {
		t.Fatal(err)
	}

	ref := grammar.MessageRef{GuildID: "100", ChannelID: "200", MessageID: "999"}
	updated, err := records.MarkCancelled(ref)
	if err != nil {
		t.Fatalf("MarkCancelled: %v", err)
	}
	if !updated {
		t.Error("updated = false")
	}

	got, err := records.GetBySource(ref)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.RecordCancelled {
		t.Errorf("Status = %q", got.Status)
	}

	// Untracked message is not an error.
	updated, err = records.MarkCancelled(grammar.MessageRef{GuildID: "1", ChannelID: "2", MessageID: "3"})
	if err != nil {
		t.Fatal(err)
	}
	if updated {
		t.Error("updated = true for untracked message")
	}
}

func TestRecords_LookupQuestID(t *testing.T) {
	records := Records{DB: testDB(t)}
	if _, err := records.Upsert(sampleRecord("QUES0001", "999")); err != nil {
		t.Fatal(err)
	}

	id, err := records.LookupQuestID(grammar.MessageRef{GuildID: "100", ChannelID: "200", MessageID: "999"})
	if err != nil {
		t.Fatal(err)
	}
	if id != "QUES0001" {
		t.Errorf("id = %q", id)
	}

	id, err = records.LookupQuestID(grammar.MessageRef{GuildID: "1", ChannelID: "2", MessageID: "3"})
	if err != nil {
		t.Fatal(err)
	}
	if id != "" {
		t.Errorf("id = %q, want empty for unknown message", id)
	}
}
