package source

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/db/models"
)

func setupEventsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS touchpoint_events (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  campaign_id TEXT NOT NULL,
  episode_id TEXT,
  attribution_method TEXT NOT NULL,
  user_id TEXT,
  session_id TEXT,
  device_id TEXT,
  conversion_type TEXT,
  conversion_value TEXT,
  occurred_at DATETIME NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func TestPostgresEventSourceFiltersAndMaps(t *testing.T) {
	db := setupEventsTestDB(t)
	src, err := NewPostgresEventSource(db)
	require.NoError(t, err)

	tenantID := uuid.New()
	campaignID := uuid.New()
	episodeID := uuid.New()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	user := "user-1"
	purchase := "purchase"

	rows := []models.TouchpointEvent{
		{ID: uuid.New(), TenantID: tenantID, CampaignID: campaignID, EpisodeID: &episodeID, AttributionMethod: "utm", UserID: &user, OccurredAt: base.Add(2 * time.Hour), Metadata: json.RawMessage(`{"source":"ig"}`)},
		{ID: uuid.New(), TenantID: tenantID, CampaignID: campaignID, AttributionMethod: "promo_code", UserID: &user, ConversionType: &purchase, ConversionValue: decimal.NewNullDecimal(decimal.RequireFromString("49.99")), OccurredAt: base.Add(5 * time.Hour)},
		{ID: uuid.New(), TenantID: tenantID, CampaignID: campaignID, AttributionMethod: "utm", OccurredAt: base.AddDate(0, 0, -10)},
		{ID: uuid.New(), TenantID: uuid.New(), CampaignID: campaignID, AttributionMethod: "utm", OccurredAt: base.Add(time.Hour)},
		{ID: uuid.New(), TenantID: tenantID, CampaignID: uuid.New(), AttributionMethod: "utm", OccurredAt: base.Add(time.Hour)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	start := base
	end := base.AddDate(0, 0, 1)
	events, err := src.FetchTouchpointEvents(context.Background(), types.EventQuery{
		TenantID:   tenantID,
		CampaignID: campaignID,
		Start:      &start,
		End:        &end,
	})
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, rows[0].ID.String(), first.ID)
	assert.Equal(t, "utm", first.AttributionMethod)
	require.NotNil(t, first.EpisodeID)
	assert.Equal(t, episodeID, *first.EpisodeID)
	assert.JSONEq(t, `{"source":"ig"}`, string(first.Metadata))
	assert.False(t, first.IsConversion())
	assert.Nil(t, first.ConversionValue)

	second := events[1]
	assert.True(t, second.IsConversion())
	require.NotNil(t, second.ConversionValue)
	assert.InDelta(t, 49.99, *second.ConversionValue, 1e-9)

	all, err := src.FetchTouchpointEvents(context.Background(), types.EventQuery{TenantID: tenantID, CampaignID: campaignID})
	require.NoError(t, err)
	assert.Len(t, all, 3, "no window returns every event for the campaign")
}

func TestNewPostgresEventSourceRequiresDB(t *testing.T) {
	_, err := NewPostgresEventSource(nil)
	require.Error(t, err)
}
