package dashboard

import (
	"time"

	"gorm.io/gorm"

	"questboard/internal/models"
	"questboard/internal/reconcile"
)

// StatusCount holds quest counts by lifecycle status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Overview is the landing payload: quest counts plus ingestion health.
type Overview struct {
	Quests         []StatusCount `json:"quests"`
	ActiveRecords  int64         `json:"active_records"`
	Summaries      int64         `json:"summaries"`
	OrphanedSums   int64         `json:"orphaned_summaries"`
	RecentFailures int64         `json:"recent_failures"`
}

// BuildOverview aggregates the landing counts.
func BuildOverview(db *gorm.DB) (*Overview, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := db.Model(&models.Quest{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	ov := &Overview{Quests: make([]StatusCount, 0, len(rows))}
	for _, r := range rows {
		ov.Quests = append(ov.Quests, StatusCount{Status: r.Status, Count: r.Count})
	}

	if err := db.Model(&models.QuestRecord{}).
		Where("status = ?", models.RecordActive).
		Count(&ov.ActiveRecords).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.SummaryRecord{}).Count(&ov.Summaries).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.SummaryRecord{}).
		Where("status = ?", models.SummaryOrphaned).
		Count(&ov.OrphanedSums).Error; err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-24 * time.Hour)
	if err := db.Model(&models.IngestFailure{}).
		Where("created_at > ?", cutoff).
		Count(&ov.RecentFailures).Error; err != nil {
		return nil, err
	}
	return ov, nil
}

// RecordRow holds quest record data for the list view.
type RecordRow struct {
	QuestID         string    `json:"quest_id"`
	Title           string    `json:"title"`
	Region          string    `json:"region"`
	Tags            []string  `json:"tags"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	AuthorID        string    `json:"author_id"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ListRecords returns quest records, optionally filtered by status,
// newest first.
func ListRecords(db *gorm.DB, status string, limit int) ([]RecordRow, error) {
	q := db.Model(&models.QuestRecord{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit <= 0 {
		limit = 100
	}
	var records []models.QuestRecord
	if err := q.Order("updated_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}

	rows := make([]RecordRow, len(records))
	for i, r := range records {
		rows[i] = RecordRow{
			QuestID:         r.QuestID,
			Title:           r.Title,
			Region:          r.RegionName,
			Tags:            reconcile.DecodeTags(r.Tags),
			StartsAt:        r.StartsAt,
			EndsAt:          r.EndsAt,
			DurationMinutes: r.DurationMinutes,
			Status:          r.Status,
			AuthorID:        r.AuthorID,
			UpdatedAt:       r.UpdatedAt,
		}
	}
	return rows, nil
}

// SummaryRow holds summary record data for the list view.
type SummaryRow struct {
	SummaryID string    `json:"summary_id"`
	QuestID   *string   `json:"quest_id"`
	Title     *string   `json:"title"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	AuthorID  string    `json:"author_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListSummaries returns summary records, optionally filtered by status,
// newest first.
func ListSummaries(db *gorm.DB, status string, limit int) ([]SummaryRow, error) {
	q := db.Model(&models.SummaryRecord{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit <= 0 {
		limit = 100
	}
	var records []models.SummaryRecord
	if err := q.Order("updated_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}

	rows := make([]SummaryRow, len(records))
	for i, r := range records {
		rows[i] = SummaryRow{
			SummaryID: r.SummaryID,
			QuestID:   r.QuestID,
			Title:     r.Title,
			Kind:      r.Kind,
			Status:    r.Status,
			AuthorID:  r.AuthorID,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return rows, nil
}

// FailureRow holds ingestion failure data for the list view.
type FailureRow struct {
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason"`
	Errors    string    `json:"errors"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	MessageID string    `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFailures returns ingestion failures, optionally filtered by kind,
// newest first.
func ListFailures(db *gorm.DB, kind string, limit int) ([]FailureRow, error) {
	q := db.Model(&models.IngestFailure{})
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if limit <= 0 {
		limit = 50
	}
	var failures []models.IngestFailure
	if err := q.Order("created_at DESC").Limit(limit).Find(&failures).Error; err != nil {
		return nil, err
	}

	rows := make([]FailureRow, len(failures))
	for i, f := range failures {
		rows[i] = FailureRow{
			Kind:      f.Kind,
			Reason:    f.Reason,
			Errors:    f.Errors,
			GuildID:   f.GuildID,
			ChannelID: f.ChannelID,
			MessageID: f.MessageID,
			CreatedAt: f.CreatedAt,
		}
	}
	return rows, nil
}
