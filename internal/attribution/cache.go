package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sponsorlens-backend/internal/attribution/types"
	"github.com/angelmondragon/sponsorlens-backend/pkg/enums"
	"github.com/angelmondragon/sponsorlens-backend/pkg/redis"
)

const defaultCacheTTL = 15 * time.Minute

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetIfNewer(ctx context.Context, key string, version int64, value any, ttl time.Duration) (bool, error)
	LatestResultKey(tenantID, campaignID, modelType string) string
}

// RedisResultCache keeps the newest result per model in Redis.
type RedisResultCache struct {
	store cacheStore
	ttl   time.Duration
}

// NewRedisResultCache builds a cache over the provided redis client.
func NewRedisResultCache(store cacheStore, ttl time.Duration) (*RedisResultCache, error) {
	if store == nil {
		return nil, errors.New("redis store required for result cache")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisResultCache{store: store, ttl: ttl}, nil
}

// GetLatest returns the cached result, reporting false on a miss.
func (c *RedisResultCache) GetLatest(ctx context.Context, tenantID, campaignID uuid.UUID, modelType enums.AttributionModelType) (*types.Result, bool, error) {
	raw, err := c.store.Get(ctx, c.key(tenantID, campaignID, modelType))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cached result: %w", err)
	}
	var result types.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}
	return &result, true, nil
}

// SetLatest stores result unless the cache already holds a run calculated at
// the same time or later.
func (c *RedisResultCache) SetLatest(ctx context.Context, result types.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	key := c.key(result.TenantID, result.CampaignID, result.ModelType)
	if _, err := c.store.SetIfNewer(ctx, key, result.CalculatedAt.UnixMicro(), string(payload), c.ttl); err != nil {
		return fmt.Errorf("write cached result: %w", err)
	}
	return nil
}

func (c *RedisResultCache) key(tenantID, campaignID uuid.UUID, modelType enums.AttributionModelType) string {
	return c.store.LatestResultKey(tenantID.String(), campaignID.String(), string(modelType))
}
