package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"questboard/internal/grammar"
	"questboard/internal/models"
	"questboard/internal/reconcile"
	"questboard/internal/validate"
)

// Coordinator wires the parse → validate → reconcile → persist pipeline for
// quest and summary messages. All methods are safe to call from the gateway
// event loop: they log and capture failures instead of returning them.
type Coordinator struct {
	records   RecordStore
	summaries SummaryStore
	ids       IdentifierService
	failures  FailureSink
	flags     AggregateFlags
	audit     AuditSink
	log       zerolog.Logger
	now       func() time.Time
}

// CoordinatorOpts holds the ports the coordinator consumes. Records, IDs,
// and Failures are required; the rest are optional.
type CoordinatorOpts struct {
	Records   RecordStore
	Summaries SummaryStore
	IDs       IdentifierService
	Failures  FailureSink
	Flags     AggregateFlags
	Audit     AuditSink
	Log       zerolog.Logger
	Now       func() time.Time // defaults to time.Now
}

// SetAudit installs the audit sink after construction. The gateway both
// drives the coordinator and carries its audit embeds, so one of the two has
// to be wired late.
func (c *Coordinator) SetAudit(sink AuditSink) {
	c.audit = sink
}

// NewCoordinator builds a Coordinator from its ports.
func NewCoordinator(opts CoordinatorOpts) (*Coordinator, error) {
	if opts.Records == nil {
		return nil, fmt.Errorf("ingest: record store is required")
	}
	if opts.IDs == nil {
		return nil, fmt.Errorf("ingest: identifier service is required")
	}
	if opts.Failures == nil {
		return nil, fmt.Errorf("ingest: failure sink is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		records:   opts.Records,
		summaries: opts.Summaries,
		ids:       opts.IDs,
		failures:  opts.Failures,
		flags:     opts.Flags,
		audit:     opts.Audit,
		log:       opts.Log,
		now:       now,
	}, nil
}

// IngestQuest runs the full pipeline for one quest announcement.
func (c *Coordinator) IngestQuest(msg Message) {
	log := c.sourceLog(msg.Source)

	draft, err := grammar.Parse(msg.Raw, msg.AuthorID, msg.Source)
	if err != nil {
		var parseErr *grammar.ParseError
		if errors.As(err, &parseErr) {
			log.Warn().Strs("errors", parseErr.Errors).Msg("quest parse failed")
			c.captureFailure(msg, "quest", models.ReasonParseError, parseErr.Errors, nil)
			return
		}
		log.Error().Err(err).Msg("quest parse failed unexpectedly")
		return
	}

	if err := validate.Quest(draft); err != nil {
		var valErr *validate.ValidationError
		if errors.As(err, &valErr) {
			messages := issueMessages(valErr.Issues)
			log.Warn().Strs("issues", messages).Msg("quest validation failed")
			c.captureFailure(msg, "quest", models.ReasonValidationError, messages, map[string]string{
				"title":        draft.Title,
				"region_name":  draft.RegionName,
				"my_table_url": draft.TableURL,
				"event_url":    draft.EventURL,
			})
			return
		}
		log.Error().Err(err).Msg("quest validation failed unexpectedly")
		return
	}

	existing, err := c.records.GetBySource(msg.Source)
	if err != nil {
		log.Error().Err(err).Msg("quest record lookup failed")
		return
	}

	questID := ""
	if existing != nil {
		questID = existing.QuestID
	} else {
		questID, err = c.ids.NextQuestID()
		if err != nil {
			log.Error().Err(err).Msg("quest id allocation failed")
			return
		}
	}

	var refereeUserID *string
	if userID, err := c.ids.EnsureUserID(draft.AuthorID); err != nil {
		log.Warn().Err(err).Msg("ensure user id failed")
	} else {
		refereeUserID = &userID
	}

	record := reconcile.Quest(draft, questID, refereeUserID, existing, c.now())
	c.resolveLinks(record, log)

	created, err := c.records.Upsert(record)
	if err != nil {
		log.Error().Err(err).Str("quest_id", record.QuestID).Msg("quest record upsert failed")
		return
	}

	action := "updated"
	if created {
		action = "created"
	}
	log.Info().Str("quest_id", record.QuestID).Str("title", record.Title).Msgf("quest %s", action)
	c.emit(AuditEvent{Action: action, Kind: "quest", ID: record.QuestID, Title: record.Title, Source: msg.Source})
}

// IngestQuestEdit re-runs the full pipeline against the edited content. The
// upsert is keyed by the source message, so repeated or out-of-order edits
// converge to the same record.
func (c *Coordinator) IngestQuestEdit(before, after Message) {
	c.IngestQuest(after)
}

// IngestQuestDelete cancels the record for a deleted message rather than
// removing it, preserving historical linkage.
func (c *Coordinator) IngestQuestDelete(ref grammar.MessageRef) {
	log := c.sourceLog(ref)
	updated, err := c.records.MarkCancelled(ref)
	if err != nil {
		log.Error().Err(err).Msg("quest cancel-on-delete failed")
		return
	}
	if !updated {
		log.Debug().Msg("delete for untracked quest message ignored")
		return
	}
	log.Info().Msg("quest cancelled after message delete")
	c.emit(AuditEvent{Action: "cancelled", Kind: "quest", Source: ref})
}

// resolveLinks fills in quest ids for linked messages whose own records
// already exist. Resolution is lazy: links to not-yet-ingested quests stay
// unresolved until a later re-ingestion.
func (c *Coordinator) resolveLinks(record *models.QuestRecord, log zerolog.Logger) {
	for i := range record.LinkedQuests {
		link := &record.LinkedQuests[i]
		if link.ResolvedQuestID != nil {
			continue
		}
		ref := grammar.MessageRef{GuildID: link.GuildID, ChannelID: link.ChannelID, MessageID: link.MessageID}
		questID, err := c.records.LookupQuestID(ref)
		if err != nil {
			log.Warn().Err(err).Msg("linked quest lookup failed")
			continue
		}
		if questID != "" {
			link.ResolvedQuestID = &questID
		}
	}
}

func (c *Coordinator) captureFailure(msg Message, kind, reason string, errs []string, metadata map[string]string) {
	failure := &models.IngestFailure{
		Kind:       kind,
		GuildID:    msg.Source.GuildID,
		ChannelID:  msg.Source.ChannelID,
		MessageID:  msg.Source.MessageID,
		AuthorID:   msg.AuthorID,
		RawContent: msg.Raw,
		Reason:     reason,
		Errors:     encodeJSON(errs),
		Metadata:   encodeJSON(metadata),
		CreatedAt:  c.now(),
	}
	if err := c.failures.Record(failure); err != nil {
		log := c.sourceLog(msg.Source)
		log.Error().Err(err).Msg("failure capture failed")
	}
}

func (c *Coordinator) emit(event AuditEvent) {
	if c.audit != nil {
		c.audit.Emit(event)
	}
}

func (c *Coordinator) sourceLog(ref grammar.MessageRef) zerolog.Logger {
	return c.log.With().
		Str("guild_id", ref.GuildID).
		Str("channel_id", ref.ChannelID).
		Str("message_id", ref.MessageID).
		Logger()
}

func issueMessages(issues []validate.Issue) []string {
	messages := make([]string, len(issues))
	for i, issue := range issues {
		messages[i] = fmt.Sprintf("%s: %s", issue.Field, issue.Message)
	}
	return messages
}

func encodeJSON(v interface{}) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
