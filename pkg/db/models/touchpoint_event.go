package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TouchpointEvent is a raw interaction or conversion row written by the ingestion layer.
// The attribution engine only reads this table.
type TouchpointEvent struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID          uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null"`
	CampaignID        uuid.UUID           `gorm:"column:campaign_id;type:uuid;not null"`
	EpisodeID         *uuid.UUID          `gorm:"column:episode_id;type:uuid"`
	AttributionMethod string              `gorm:"column:attribution_method;not null"`
	UserID            *string             `gorm:"column:user_id"`
	SessionID         *string             `gorm:"column:session_id"`
	DeviceID          *string             `gorm:"column:device_id"`
	ConversionType    *string             `gorm:"column:conversion_type"`
	ConversionValue   decimal.NullDecimal `gorm:"column:conversion_value;type:numeric(14,2)"`
	OccurredAt        time.Time           `gorm:"column:occurred_at;not null"`
	Metadata          json.RawMessage     `gorm:"column:metadata;type:jsonb"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (TouchpointEvent) TableName() string { return "touchpoint_events" }
