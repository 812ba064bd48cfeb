package source

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/db/models"
)

// PostgresEventSource reads touchpoint events from the touchpoint_events table.
type PostgresEventSource struct {
	db *gorm.DB
}

// NewPostgresEventSource returns an event source bound to the provided database.
func NewPostgresEventSource(db *gorm.DB) (*PostgresEventSource, error) {
	if db == nil {
		return nil, errors.New("database required")
	}
	return &PostgresEventSource{db: db}, nil
}

func (s *PostgresEventSource) FetchTouchpointEvents(ctx context.Context, query types.EventQuery) ([]types.RawEvent, error) {
	q := s.db.WithContext(ctx).
		Where("tenant_id = ? AND campaign_id = ?", query.TenantID, query.CampaignID)
	if query.Start != nil {
		q = q.Where("occurred_at >= ?", query.Start.UTC())
	}
	if query.End != nil {
		q = q.Where("occurred_at <= ?", query.End.UTC())
	}

	var rows []models.TouchpointEvent
	if err := q.Order("occurred_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	events := make([]types.RawEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, eventFromModel(row))
	}
	return events, nil
}

func eventFromModel(row models.TouchpointEvent) types.RawEvent {
	e := types.RawEvent{
		ID:                row.ID.String(),
		OccurredAt:        row.OccurredAt.UTC(),
		CampaignID:        row.CampaignID,
		EpisodeID:         row.EpisodeID,
		AttributionMethod: row.AttributionMethod,
		UserID:            row.UserID,
		SessionID:         row.SessionID,
		DeviceID:          row.DeviceID,
		ConversionType:    row.ConversionType,
		Metadata:          row.Metadata,
	}
	if row.ConversionValue.Valid {
		v := row.ConversionValue.Decimal.InexactFloat64()
		e.ConversionValue = &v
	}
	return e
}
