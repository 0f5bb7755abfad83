package ingest

import (
	"errors"

	"questboard/internal/grammar"
	"questboard/internal/models"
	"questboard/internal/reconcile"
	"questboard/internal/validate"
)

// IngestSummary runs the pipeline for one adventure-summary post. A summary
// that parses cleanly but cannot be tied to a known quest is still stored
// (as ORPHANED) so no community writing is lost, and the unresolved
// reference is captured as a failure for operators to chase.
func (c *Coordinator) IngestSummary(msg Message) {
	log := c.sourceLog(msg.Source)
	if c.summaries == nil {
		log.Debug().Msg("summary ingestion not configured, message ignored")
		return
	}

	draft, err := grammar.ParseSummary(msg.Raw, msg.AuthorID, msg.Source)
	if err != nil {
		var parseErr *grammar.ParseError
		if errors.As(err, &parseErr) {
			log.Warn().Strs("errors", parseErr.Errors).Msg("summary parse failed")
			c.captureFailure(msg, "summary", models.ReasonParseError, parseErr.Errors, nil)
			return
		}
		log.Error().Err(err).Msg("summary parse failed unexpectedly")
		return
	}

	if err := validate.Summary(draft); err != nil {
		var valErr *validate.ValidationError
		if errors.As(err, &valErr) {
			messages := issueMessages(valErr.Issues)
			log.Warn().Strs("issues", messages).Msg("summary validation failed")
			c.captureFailure(msg, "summary", models.ReasonValidationError, messages, map[string]string{
				"title":    draft.Title,
				"quest_id": draft.QuestID,
			})
			return
		}
		log.Error().Err(err).Msg("summary validation failed unexpectedly")
		return
	}

	// A deep link to the quest message stands in for a missing quest id.
	if draft.QuestID == "" && draft.QuestMessageRef != nil {
		questID, err := c.records.LookupQuestID(*draft.QuestMessageRef)
		if err != nil {
			log.Warn().Err(err).Msg("summary quest-link lookup failed")
		} else if questID != "" {
			draft.QuestID = questID
			log.Debug().Str("quest_id", questID).Msg("resolved summary quest reference")
		}
	}

	existing, err := c.summaries.GetBySource(msg.Source)
	if err != nil {
		log.Error().Err(err).Msg("summary record lookup failed")
		return
	}

	summaryID := ""
	if existing != nil {
		summaryID = existing.SummaryID
	} else {
		summaryID, err = c.ids.NextSummaryID()
		if err != nil {
			log.Error().Err(err).Msg("summary id allocation failed")
			return
		}
	}

	var authorUserID *string
	if userID, err := c.ids.EnsureUserID(draft.AuthorID); err != nil {
		log.Warn().Err(err).Msg("ensure user id failed")
	} else {
		authorUserID = &userID
	}

	kind := draft.KindHint
	if kind == "" {
		kind = models.SummaryKindPlayer
	}

	record := reconcile.Summary(draft, summaryID, kind, authorUserID, existing, c.now())

	created, err := c.summaries.Upsert(record)
	if err != nil {
		log.Error().Err(err).Str("summary_id", record.SummaryID).Msg("summary record upsert failed")
		return
	}

	if record.QuestID == nil {
		questLink := ""
		if draft.QuestMessageRef != nil {
			ref := *draft.QuestMessageRef
			questLink = "https://discord.com/channels/" + ref.GuildID + "/" + ref.ChannelID + "/" + ref.MessageID
		}
		log.Warn().Str("summary_id", record.SummaryID).Str("quest_link", questLink).
			Msg("summary stored without quest reference")
		c.captureFailure(msg, "summary", models.ReasonMissingQuestReference, nil, map[string]string{
			"summary_id": record.SummaryID,
			"quest_link": questLink,
		})
		return
	}

	if c.flags != nil {
		if err := c.flags.ClearSummaryNeeded(*record.QuestID); err != nil {
			log.Warn().Err(err).Str("quest_id", *record.QuestID).Msg("clearing summary flag failed")
		}
	}

	action := "updated"
	if created {
		action = "created"
	}
	title := ""
	if record.Title != nil {
		title = *record.Title
	}
	log.Info().Str("summary_id", record.SummaryID).Str("quest_id", *record.QuestID).Msgf("summary %s", action)
	c.emit(AuditEvent{Action: action, Kind: "summary", ID: record.SummaryID, Title: title, Source: msg.Source})
}

// IngestSummaryEdit re-runs the pipeline against the edited content.
func (c *Coordinator) IngestSummaryEdit(before, after Message) {
	c.IngestSummary(after)
}
