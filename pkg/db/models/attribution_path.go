package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
	"github.com/angelmondragon/sponsorlens-backend/pkg/types"
)

// AttributionPath is an immutable snapshot of one reconstructed path.
// Rows are keyed by a deterministic id so re-inserting the same path is a no-op.
type AttributionPath struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	TenantID        uuid.UUID             `gorm:"column:tenant_id;type:uuid;not null"`
	CampaignID      uuid.UUID             `gorm:"column:campaign_id;type:uuid;not null"`
	IdentitySource  enums.IdentitySource  `gorm:"column:identity_source;type:identity_source_enum;not null"`
	IdentityKey     string                `gorm:"column:identity_key;not null"`
	Touchpoints     types.PathTouchpoints `gorm:"column:touchpoints;type:jsonb;serializer:json;not null"`
	TouchpointCount int                   `gorm:"column:touchpoint_count;not null"`
	ConversionType  *string               `gorm:"column:conversion_type"`
	ConversionValue decimal.NullDecimal   `gorm:"column:conversion_value;type:numeric(14,2)"`
	ConversionAt    *time.Time            `gorm:"column:conversion_at"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (AttributionPath) TableName() string { return "attribution_paths" }
