package cron

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sponsorlens-backend/pkg/db/models"
)

// CampaignScope identifies one tenant campaign to refresh.
type CampaignScope struct {
	TenantID   uuid.UUID `gorm:"column:tenant_id"`
	CampaignID uuid.UUID `gorm:"column:campaign_id"`
}

// ActiveCampaignRepository finds campaigns with recent touchpoint activity.
type ActiveCampaignRepository struct {
	db *gorm.DB
}

// NewActiveCampaignRepository binds the repository to a database handle.
func NewActiveCampaignRepository(db *gorm.DB) *ActiveCampaignRepository {
	return &ActiveCampaignRepository{db: db}
}

// ListActiveCampaigns returns distinct (tenant, campaign) pairs with events at or after since.
func (r *ActiveCampaignRepository) ListActiveCampaigns(ctx context.Context, since time.Time) ([]CampaignScope, error) {
	var scopes []CampaignScope
	err := r.db.WithContext(ctx).
		Model(&models.TouchpointEvent{}).
		Distinct("tenant_id", "campaign_id").
		Where("occurred_at >= ?", since.UTC()).
		Order("tenant_id ASC").
		Order("campaign_id ASC").
		Scan(&scopes).Error
	if err != nil {
		return nil, err
	}
	return scopes, nil
}
