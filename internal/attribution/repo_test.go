package attribution

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/model"
	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/paths"
	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/db/models"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
	"github.com/angelmondragon/sponsorlens-backend/pkg/pagination"
	pkgtypes "github.com/angelmondragon/sponsorlens-backend/pkg/types"
)

func setupAttributionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	attributionPaths := `
CREATE TABLE IF NOT EXISTS attribution_paths (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  campaign_id TEXT NOT NULL,
  identity_source TEXT NOT NULL,
  identity_key TEXT NOT NULL,
  touchpoints TEXT NOT NULL,
  touchpoint_count INTEGER NOT NULL,
  conversion_type TEXT,
  conversion_value TEXT,
  conversion_at DATETIME,
  created_at DATETIME
);`
	attributionResults := `
CREATE TABLE IF NOT EXISTS attribution_results (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  campaign_id TEXT NOT NULL,
  model_type TEXT NOT NULL,
  total_conversions INTEGER NOT NULL,
  total_conversion_value TEXT NOT NULL,
  attributed_conversions INTEGER NOT NULL,
  attributed_conversion_value TEXT NOT NULL,
  unallocated_value TEXT NOT NULL,
  touchpoint_credits TEXT NOT NULL,
  confidence_score REAL NOT NULL,
  period_start DATETIME,
  period_end DATETIME,
  calculated_at DATETIME NOT NULL,
  UNIQUE (tenant_id, campaign_id, model_type, calculated_at)
);`
	for _, stmt := range []string{attributionPaths, attributionResults} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func samplePaths(t *testing.T) []types.Path {
	t.Helper()
	episode := uuid.New()
	e1 := touch("evt-1", "u1", 0)
	e1.EpisodeID = &episode
	e1.Metadata = json.RawMessage(`{"placement":"pre-roll"}`)
	built := paths.Build(testTenant, testCampaign, []types.RawEvent{
		e1,
		convert("evt-2", "u1", 2, 120.5),
		convert("evt-3", "u2", 4, 30),
	})
	require.Len(t, built, 2)
	return built
}

func TestPathRepositoryUpsertIsIdempotent(t *testing.T) {
	db := setupAttributionTestDB(t)
	repo := NewPathRepository(db)
	ctx := context.Background()
	built := samplePaths(t)

	require.NoError(t, repo.UpsertPaths(ctx, testTenant, testCampaign, built))
	require.NoError(t, repo.UpsertPaths(ctx, testTenant, testCampaign, built))
	require.NoError(t, repo.UpsertPaths(ctx, testTenant, testCampaign, built[:1]))

	var count int64
	require.NoError(t, db.Model(&models.AttributionPath{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var row models.AttributionPath
	require.NoError(t, db.Where("id = ?", built[0].ID).First(&row).Error)
	assert.Equal(t, enums.IdentitySourceUser, row.IdentitySource)
	assert.Equal(t, 2, row.TouchpointCount)
	assert.True(t, row.ConversionValue.Valid)
	assert.Equal(t, "120.5", row.ConversionValue.Decimal.String())

	require.NoError(t, repo.UpsertPaths(ctx, testTenant, testCampaign, nil))
}

func TestPathRepositoryKeepsSnapshotPerWindow(t *testing.T) {
	db := setupAttributionTestDB(t)
	repo := NewPathRepository(db)
	ctx := context.Background()

	events := []types.RawEvent{
		touch("evt-1", "u1", 0),
		touch("evt-2", "u1", 2),
		convert("evt-3", "u1", 4, 90),
	}
	wide := paths.Build(testTenant, testCampaign, events)
	narrow := paths.Build(testTenant, testCampaign, events[1:])
	require.Len(t, wide, 1)
	require.Len(t, narrow, 1)

	require.NoError(t, repo.UpsertPaths(ctx, testTenant, testCampaign, wide))
	require.NoError(t, repo.UpsertPaths(ctx, testTenant, testCampaign, narrow))

	first := model.FirstTouch{}.Calculate(narrow)
	assert.Contains(t, first.TouchpointCredits, "evt-2")

	loaded, err := repo.ListByCampaign(ctx, testTenant, testCampaign)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	byID := make(map[uuid.UUID]types.Path, len(loaded))
	for _, p := range loaded {
		byID[p.ID] = p
	}
	stored, ok := byID[narrow[0].ID]
	require.True(t, ok)
	require.Len(t, stored.Touchpoints, 2)
	assert.Equal(t, "evt-2", stored.Touchpoints[0].ID)
	require.Len(t, byID[wide[0].ID].Touchpoints, 3)
	assert.Equal(t, "evt-1", byID[wide[0].ID].Touchpoints[0].ID)
}

func TestPathRepositoryRoundTrip(t *testing.T) {
	db := setupAttributionTestDB(t)
	repo := NewPathRepository(db)
	ctx := context.Background()
	built := samplePaths(t)
	require.NoError(t, repo.UpsertPaths(ctx, testTenant, testCampaign, built))

	loaded, err := repo.ListByCampaign(ctx, testTenant, testCampaign)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	got := loaded[0]
	want := built[0]
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.IdentityKey, got.IdentityKey)
	require.Len(t, got.Touchpoints, len(want.Touchpoints))
	assert.Equal(t, want.Touchpoints[0].ID, got.Touchpoints[0].ID)
	assert.True(t, want.Touchpoints[0].Timestamp.Equal(got.Touchpoints[0].Timestamp))
	assert.Equal(t, *want.Touchpoints[0].EpisodeID, *got.Touchpoints[0].EpisodeID)
	assert.JSONEq(t, `{"placement":"pre-roll"}`, string(got.Touchpoints[0].Metadata))
	require.NotNil(t, got.ConversionValue)
	assert.InDelta(t, 120.5, *got.ConversionValue, 1e-9)

	// a model over reloaded snapshots matches one over the originals
	assert.Equal(t, model.Linear{}.Calculate(built).TouchpointCredits, model.Linear{}.Calculate(loaded).TouchpointCredits)

	other, err := repo.WithTx(nil).ListByCampaign(ctx, uuid.New(), testCampaign)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestResultRepositoryAppendAndRead(t *testing.T) {
	db := setupAttributionTestDB(t)
	repo := NewResultRepository(db)
	ctx := context.Background()
	built := samplePaths(t)

	older := model.Linear{}.Calculate(built)
	older.ID = uuid.New()
	older.TenantID = testTenant
	older.CampaignID = testCampaign
	older.CalculatedAt = fixedNow.Add(-time.Hour)

	newer := model.Linear{}.Calculate(built)
	newer.ID = uuid.New()
	newer.TenantID = testTenant
	newer.CampaignID = testCampaign
	newer.CalculatedAt = fixedNow
	start := fixedNow.AddDate(0, -1, 0)
	newer.PeriodStart = &start

	firstTouch := model.FirstTouch{}.Calculate(built)
	firstTouch.ID = uuid.New()
	firstTouch.TenantID = testTenant
	firstTouch.CampaignID = testCampaign
	firstTouch.CalculatedAt = fixedNow

	for _, r := range []types.Result{older, newer, firstTouch} {
		require.NoError(t, repo.InsertResult(ctx, r))
	}

	dup := newer
	dup.ID = uuid.New()
	err := repo.InsertResult(ctx, dup)
	require.Error(t, err, "same tenant/campaign/model/calculated_at is rejected")
	assert.ErrorIs(t, err, ErrDuplicateResult)

	latest, err := repo.LatestResult(ctx, testTenant, testCampaign, enums.AttributionModelLinear)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Equal(t, 2, latest.TotalConversions)
	assert.InDelta(t, 150.5, latest.TotalConversionValue, 1e-9)
	assert.InDelta(t, newer.TouchpointCredits["evt-1"], latest.TouchpointCredits["evt-1"], 1e-9)
	assert.InDelta(t, newer.ConfidenceScore, latest.ConfidenceScore, 1e-12)
	require.NotNil(t, latest.PeriodStart)
	assert.True(t, start.Equal(*latest.PeriodStart))
	assert.True(t, fixedNow.Equal(latest.CalculatedAt))

	missing, err := repo.LatestResult(ctx, testTenant, testCampaign, enums.AttributionModelTimeDecay)
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.ListResults(ctx, ResultFilter{TenantID: testTenant, CampaignID: testCampaign})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	linear := enums.AttributionModelLinear
	history, err := repo.ListResults(ctx, ResultFilter{TenantID: testTenant, CampaignID: testCampaign, ModelType: &linear, Limit: 1})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, newer.ID, history[0].ID)

	page1, err := repo.ListResults(ctx, ResultFilter{TenantID: testTenant, CampaignID: testCampaign, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.ElementsMatch(t, []uuid.UUID{newer.ID, firstTouch.ID}, []uuid.UUID{page1[0].ID, page1[1].ID})

	last := page1[len(page1)-1]
	page2, err := repo.ListResults(ctx, ResultFilter{
		TenantID:   testTenant,
		CampaignID: testCampaign,
		Limit:      2,
		Before:     &pagination.Cursor{CalculatedAt: last.CalculatedAt, ID: last.ID},
	})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, older.ID, page2[0].ID)
}

func TestResultToModelDefaultsCredits(t *testing.T) {
	row := resultToModel(types.Result{ModelType: enums.AttributionModelLinear, TotalConversionValue: 10.005})
	assert.NotNil(t, row.TouchpointCredits)
	assert.Equal(t, pkgtypes.TouchpointCredits{}, row.TouchpointCredits)
	assert.Equal(t, "10.01", row.TotalConversionValue.StringFixed(2))
}
