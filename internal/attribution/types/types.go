package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
	pkgtypes "github.com/angelmondragon/sponsorlens-backend/pkg/types"
)

// EventQuery scopes a touchpoint event read to one tenant campaign and an optional window.
type EventQuery struct {
	TenantID   uuid.UUID
	CampaignID uuid.UUID
	Start      *time.Time
	End        *time.Time
}

// RawEvent is a touchpoint or conversion record as returned by an event source.
type RawEvent struct {
	ID                string
	OccurredAt        time.Time
	CampaignID        uuid.UUID
	EpisodeID         *uuid.UUID
	AttributionMethod string
	UserID            *string
	SessionID         *string
	DeviceID          *string
	ConversionType    *string
	ConversionValue   *float64
	Metadata          json.RawMessage
}

// IsConversion reports whether the event carries a conversion type.
func (e RawEvent) IsConversion() bool {
	return e.ConversionType != nil && *e.ConversionType != ""
}

// Touchpoint is one interaction on a path.
type Touchpoint struct {
	ID                string          `json:"touchpoint_id"`
	Timestamp         time.Time       `json:"timestamp"`
	AttributionMethod string          `json:"attribution_method"`
	CampaignID        uuid.UUID       `json:"campaign_id"`
	EpisodeID         *uuid.UUID      `json:"episode_id,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
}

// Path is the ordered interaction history of one resolved identity.
type Path struct {
	ID                uuid.UUID            `json:"path_id"`
	IdentitySource    enums.IdentitySource `json:"identity_source"`
	IdentityKey       string               `json:"identity_key"`
	Touchpoints       []Touchpoint         `json:"touchpoints"`
	ConversionValue   *float64             `json:"conversion_value,omitempty"`
	ConversionType    *string              `json:"conversion_type,omitempty"`
	ConversionAt      *time.Time           `json:"conversion_at,omitempty"`
	ConversionEventID string               `json:"conversion_event_id,omitempty"`
}

// Value returns the conversion value, treating a missing value as zero.
func (p Path) Value() float64 {
	if p.ConversionValue == nil {
		return 0
	}
	return *p.ConversionValue
}

// Converted reports whether the path ends in a conversion.
func (p Path) Converted() bool {
	return p.ConversionAt != nil
}

// Result is the output of one model run over one path set.
type Result struct {
	ID                        uuid.UUID                  `json:"id"`
	TenantID                  uuid.UUID                  `json:"tenant_id"`
	CampaignID                uuid.UUID                  `json:"campaign_id"`
	ModelType                 enums.AttributionModelType `json:"model_type"`
	TotalConversions          int                        `json:"total_conversions"`
	TotalConversionValue      float64                    `json:"total_conversion_value"`
	AttributedConversions     int                        `json:"attributed_conversions"`
	AttributedConversionValue float64                    `json:"attributed_conversion_value"`
	UnallocatedValue          float64                    `json:"unallocated_value"`
	TouchpointCredits         pkgtypes.TouchpointCredits `json:"touchpoint_credits"`
	ConfidenceScore           float64                    `json:"confidence_score"`
	PeriodStart               *time.Time                 `json:"period_start,omitempty"`
	PeriodEnd                 *time.Time                 `json:"period_end,omitempty"`
	CalculatedAt              time.Time                  `json:"calculated_at"`
}
