// Package reconcile merges a freshly parsed draft with any previously stored
// record for the same source message. This is the only place identity and
// linkage continuity is guaranteed: the parser and validator are stateless
// and re-derive everything else from scratch on every ingestion.
package reconcile

import (
	"encoding/json"
	"time"

	"questboard/internal/grammar"
	"questboard/internal/models"
)

// Quest builds the durable record for a validated draft. When existing is
// non-nil (the same source message was ingested before), CreatedAt and
// Status carry forward, and every linked-message reference keeps any
// previously resolved quest id keyed by its (guild, channel, message)
// triple. UpdatedAt is always refreshed.
func Quest(draft *grammar.Draft, questID string, refereeUserID *string, existing *models.QuestRecord, now time.Time) *models.QuestRecord {
	record := &models.QuestRecord{
		QuestID:         questID,
		Title:           draft.Title,
		DescriptionMD:   draft.DescriptionMD,
		RegionName:      draft.RegionName,
		RegionHex:       draft.RegionHex,
		Tags:            encodeTags(draft.Tags),
		StartsAt:        draft.StartsAt,
		EndsAt:          draft.EndsAt,
		DurationMinutes: draft.DurationMinutes,
		TableURL:        draft.TableURL,
		EventURL:        draft.EventURL,
		AuthorID:        draft.AuthorID,
		RefereeUserID:   refereeUserID,
		GuildID:         draft.Source.GuildID,
		ChannelID:       draft.Source.ChannelID,
		MessageID:       draft.Source.MessageID,
		Status:          models.RecordActive,
		Raw:             draft.Raw,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if draft.ImageURL != "" {
		image := draft.ImageURL
		record.ImageURL = &image
	}

	resolved := map[grammar.MessageRef]*string{}
	if existing != nil {
		record.ID = existing.ID
		record.QuestID = existing.QuestID
		record.Status = existing.Status
		record.CreatedAt = existing.CreatedAt
		if refereeUserID == nil {
			record.RefereeUserID = existing.RefereeUserID
		}
		for _, link := range existing.LinkedQuests {
			key := grammar.MessageRef{GuildID: link.GuildID, ChannelID: link.ChannelID, MessageID: link.MessageID}
			resolved[key] = link.ResolvedQuestID
		}
	}

	for i, ref := range draft.LinkedMessages {
		record.LinkedQuests = append(record.LinkedQuests, models.LinkedQuest{
			GuildID:         ref.GuildID,
			ChannelID:       ref.ChannelID,
			MessageID:       ref.MessageID,
			Position:        i,
			ResolvedQuestID: resolved[ref],
		})
	}

	return record
}

// Summary builds the durable record for a parsed summary. The same
// continuity rules apply: CreatedAt, Status, and the summary id survive
// re-ingestion; a quest id resolved on an earlier pass is kept when the
// fresh parse has none.
func Summary(draft *grammar.SummaryDraft, summaryID, kind string, authorUserID *string, existing *models.SummaryRecord, now time.Time) *models.SummaryRecord {
	record := &models.SummaryRecord{
		SummaryID:      summaryID,
		Kind:           kind,
		ShortSummaryMD: draft.ShortSummaryMD,
		ContentMD:      draft.ContentMD,
		Players:        encodePlayers(draft.Players),
		RelatedLinks:   encodeStrings(draft.RelatedLinks),
		InCharacter:    draft.InCharacter,
		AuthorID:       draft.AuthorID,
		AuthorUserID:   authorUserID,
		GuildID:        draft.Source.GuildID,
		ChannelID:      draft.Source.ChannelID,
		MessageID:      draft.Source.MessageID,
		Status:         models.SummaryPublished,
		Raw:            draft.Raw,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if draft.QuestID != "" {
		questID := draft.QuestID
		record.QuestID = &questID
	}
	if draft.Title != "" {
		title := draft.Title
		record.Title = &title
	}
	if draft.RegionText != "" {
		region := draft.RegionText
		record.RegionText = &region
	}

	if existing != nil {
		record.ID = existing.ID
		record.SummaryID = existing.SummaryID
		record.CreatedAt = existing.CreatedAt
		record.Status = existing.Status
		if record.QuestID == nil {
			record.QuestID = existing.QuestID
		}
		if authorUserID == nil {
			record.AuthorUserID = existing.AuthorUserID
		}
	}
	if record.QuestID == nil {
		record.Status = models.SummaryOrphaned
	} else if existing != nil && existing.Status == models.SummaryOrphaned {
		record.Status = models.SummaryPublished
	}

	return record
}

// DecodeTags is the inverse of the tag encoding used on QuestRecord.Tags.
func DecodeTags(encoded string) []string {
	var tags []string
	if encoded == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(encoded), &tags); err != nil {
		return nil
	}
	return tags
}

func encodeTags(tags []string) string {
	return encodeStrings(tags)
}

func encodeStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func encodePlayers(players []grammar.Participant) string {
	type player struct {
		DiscordID   string `json:"discord_id,omitempty"`
		DisplayName string `json:"display_name,omitempty"`
	}
	out := make([]player, len(players))
	for i, p := range players {
		out[i] = player{DiscordID: p.DiscordID, DisplayName: p.DisplayName}
	}
	data, _ := json.Marshal(out)
	return string(data)
}
