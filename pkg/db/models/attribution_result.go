package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
	"github.com/angelmondragon/sponsorlens-backend/pkg/types"
)

// AttributionResult is an append-only record of one model run.
type AttributionResult struct {
	ID                        uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	TenantID                  uuid.UUID                  `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:attribution_results_run_key"`
	CampaignID                uuid.UUID                  `gorm:"column:campaign_id;type:uuid;not null;uniqueIndex:attribution_results_run_key"`
	ModelType                 enums.AttributionModelType `gorm:"column:model_type;type:attribution_model_type_enum;not null;uniqueIndex:attribution_results_run_key"`
	TotalConversions          int                        `gorm:"column:total_conversions;not null"`
	TotalConversionValue      decimal.Decimal            `gorm:"column:total_conversion_value;type:numeric(14,2);not null"`
	AttributedConversions     int                        `gorm:"column:attributed_conversions;not null"`
	AttributedConversionValue decimal.Decimal            `gorm:"column:attributed_conversion_value;type:numeric(14,2);not null"`
	UnallocatedValue          decimal.Decimal            `gorm:"column:unallocated_value;type:numeric(14,2);not null"`
	TouchpointCredits         types.TouchpointCredits    `gorm:"column:touchpoint_credits;type:jsonb;serializer:json;not null"`
	ConfidenceScore           float64                    `gorm:"column:confidence_score;not null"`
	PeriodStart               *time.Time                 `gorm:"column:period_start"`
	PeriodEnd                 *time.Time                 `gorm:"column:period_end"`
	CalculatedAt              time.Time                  `gorm:"column:calculated_at;not null;uniqueIndex:attribution_results_run_key"`
}

func (AttributionResult) TableName() string { return "attribution_results" }
