package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	kpiKeyPrefix    = "kpi"
	defaultKPITTL   = 5 * time.Minute
	invalidateBatch = 100
)

// KPICache keeps rendered KPI payloads in redis. A nil client turns every
// call into a miss or a no-op. Errors are logged and swallowed so reads never
// fail because of the cache.
type KPICache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewKPICache creates a KPICache
func NewKPICache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *KPICache {
	if ttl <= 0 {
		ttl = defaultKPITTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KPICache{client: client, ttl: ttl, logger: logger}
}

// Enabled reports whether a redis client backs the cache
func (c *KPICache) Enabled() bool {
	return c != nil && c.client != nil
}

// KPIKey builds kpi:<view>:<tenant>:<start>:<end>:<params>
func KPIKey(view string, tenantID uuid.UUID, period valueobject.Period, params string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s", kpiKeyPrefix, view, tenantID,
		period.Start().Format(valueobject.DateLayout), period.End().Format(valueobject.DateLayout), params)
}

// Get decodes the payload under key into dest and reports whether it was found
func (c *KPICache) Get(ctx context.Context, key string, dest any) bool {
	if !c.Enabled() {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("KPI cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("KPI cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores value under key for the configured TTL
func (c *KPICache) Set(ctx context.Context, key string, value any) {
	if !c.Enabled() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("KPI cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("KPI cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateTenant drops every cached view of tenantID
func (c *KPICache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) {
	if !c.Enabled() {
		return
	}
	pattern := fmt.Sprintf("%s:*:%s:*", kpiKeyPrefix, tenantID)

	var cursor uint64
	removed := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, invalidateBatch).Result()
		if err != nil {
			c.logger.Warn("KPI cache scan failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn("KPI cache invalidation failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
				return
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Debug("KPI cache invalidated", zap.String("tenant_id", tenantID.String()), zap.Int("keys", removed))
}
