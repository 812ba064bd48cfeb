package attribution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
	"github.com/angelmondragon/sponsorlens-backend/pkg/redis"
	pkgtypes "github.com/angelmondragon/sponsorlens-backend/pkg/types"
)

type memoryCacheStore struct {
	data     map[string]string
	versions map[string]int64
	ttls     map[string]time.Duration
	getErr   error
}

func newMemoryCacheStore() *memoryCacheStore {
	return &memoryCacheStore{data: map[string]string{}, versions: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheStore) Get(ctx context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryCacheStore) SetIfNewer(ctx context.Context, key string, version int64, value any, ttl time.Duration) (bool, error) {
	if current, ok := m.versions[key]; ok && current >= version {
		return false, nil
	}
	m.data[key] = value.(string)
	m.versions[key] = version
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryCacheStore) LatestResultKey(tenantID, campaignID, modelType string) string {
	return tenantID + ":" + campaignID + ":" + modelType
}

func TestRedisResultCacheRoundTrip(t *testing.T) {
	store := newMemoryCacheStore()
	cache, err := NewRedisResultCache(store, 0)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := cache.GetLatest(ctx, testTenant, testCampaign, enums.AttributionModelLinear)
	require.NoError(t, err)
	assert.False(t, ok)

	result := types.Result{
		ID:                uuid.New(),
		TenantID:          testTenant,
		CampaignID:        testCampaign,
		ModelType:         enums.AttributionModelLinear,
		TotalConversions:  3,
		TouchpointCredits: pkgtypes.TouchpointCredits{"a": 1.5},
		ConfidenceScore:   0.8,
		CalculatedAt:      fixedNow,
	}
	require.NoError(t, cache.SetLatest(ctx, result))

	key := testTenant.String() + ":" + testCampaign.String() + ":linear"
	assert.Equal(t, defaultCacheTTL, store.ttls[key])

	got, ok, err := cache.GetLatest(ctx, testTenant, testCampaign, enums.AttributionModelLinear)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.ID, got.ID)
	assert.Equal(t, 1.5, got.TouchpointCredits["a"])
	assert.True(t, fixedNow.Equal(got.CalculatedAt))
}

func TestRedisResultCacheErrors(t *testing.T) {
	_, err := NewRedisResultCache(nil, time.Minute)
	require.Error(t, err)

	store := newMemoryCacheStore()
	cache, err := NewRedisResultCache(store, time.Minute)
	require.NoError(t, err)

	store.data[testTenant.String()+":"+testCampaign.String()+":linear"] = "{not json"
	_, _, err = cache.GetLatest(context.Background(), testTenant, testCampaign, enums.AttributionModelLinear)
	require.Error(t, err)

	store.getErr = errors.New("i/o timeout")
	_, ok, err := cache.GetLatest(context.Background(), testTenant, testCampaign, enums.AttributionModelLinear)
	require.Error(t, err)
	assert.False(t, ok)
}

func TestRedisResultCacheKeepsNewestRun(t *testing.T) {
	store := newMemoryCacheStore()
	cache, err := NewRedisResultCache(store, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	newer := types.Result{
		ID:           uuid.New(),
		TenantID:     testTenant,
		CampaignID:   testCampaign,
		ModelType:    enums.AttributionModelLinear,
		CalculatedAt: fixedNow,
	}
	older := newer
	older.ID = uuid.New()
	older.CalculatedAt = fixedNow.Add(-time.Minute)

	require.NoError(t, cache.SetLatest(ctx, newer))
	require.NoError(t, cache.SetLatest(ctx, older))

	got, ok, err := cache.GetLatest(ctx, testTenant, testCampaign, enums.AttributionModelLinear)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, newer.ID, got.ID, "a run finishing late does not replace a newer cached run")

	latest := newer
	latest.ID = uuid.New()
	latest.CalculatedAt = fixedNow.Add(time.Minute)
	require.NoError(t, cache.SetLatest(ctx, latest))
	got, _, err = cache.GetLatest(ctx, testTenant, testCampaign, enums.AttributionModelLinear)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, got.ID)
}
