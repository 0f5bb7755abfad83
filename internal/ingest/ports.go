// Package ingest orchestrates the message-ingestion pipeline: parse, then
// validate, then id-assignment, then reconciliation, then persistence, with
// every failure captured instead of propagated. The pipeline is fail-open: a
// bad message degrades to an audited failure record and never blocks the
// next message.
package ingest

import (
	"time"

	"questboard/internal/grammar"
	"questboard/internal/models"
)

// RecordStore is the persistence port for quest records.
type RecordStore interface {
	GetBySource(ref grammar.MessageRef) (*models.QuestRecord, error)
	Upsert(record *models.QuestRecord) (bool, error)
	MarkCancelled(ref grammar.MessageRef) (bool, error)
	LookupQuestID(ref grammar.MessageRef) (string, error)
}

// SummaryStore is the persistence port for adventure-summary records.
type SummaryStore interface {
	GetBySource(ref grammar.MessageRef) (*models.SummaryRecord, error)
	Upsert(record *models.SummaryRecord) (bool, error)
}

// IdentifierService mints stable, human-readable identifiers.
type IdentifierService interface {
	NextQuestID() (string, error)
	NextSummaryID() (string, error)
	EnsureUserID(discordID string) (string, error)
}

// FailureSink receives the write-once audit trail of failed ingestions.
type FailureSink interface {
	Record(failure *models.IngestFailure) error
}

// AggregateFlags lets the pipeline clear a quest's summary-needed flag once
// a summary for it lands.
type AggregateFlags interface {
	ClearSummaryNeeded(questID string) error
}

// AuditEvent describes one successful create or update, for the optional
// audit sink.
type AuditEvent struct {
	Action string // "created", "updated", "cancelled"
	Kind   string // "quest", "summary"
	ID     string
	Title  string
	Source grammar.MessageRef
}

// AuditSink receives an event after each successful create/update.
type AuditSink interface {
	Emit(event AuditEvent)
}

// Message is one inbound chat message as delivered by the gateway.
type Message struct {
	Raw       string
	AuthorID  string
	Source    grammar.MessageRef
	CreatedAt time.Time
}
