package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// stageCacheKey holds the registry's ordered stage list as a JSON array.
const stageCacheKey = "pipeline:stages"

// StageCache is a read-through Redis cache of the ordered stage list.
// Every cache failure is non-fatal: readers fall back to the store and
// writers log and move on. A nil *StageCache is a valid no-op cache.
type StageCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStageCache returns a StageCache with the given entry TTL.
func NewStageCache(rdb *redis.Client, ttl time.Duration) *StageCache {
	return &StageCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached ordered stage list, or ok=false on miss.
func (c *StageCache) Get(ctx context.Context) ([]Stage, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, stageCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("stage cache read failed", "err", err)
		}
		return nil, false
	}
	var stages []Stage
	if err := json.Unmarshal(raw, &stages); err != nil {
		slog.Warn("stage cache entry corrupt, dropping", "err", err)
		c.Invalidate(ctx)
		return nil, false
	}
	return stages, true
}

// Prime replaces the cached list with the given ordering.
func (c *StageCache) Prime(ctx context.Context, stages []Stage) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(stages)
	if err != nil {
		slog.Warn("stage cache marshal failed", "err", err)
		return
	}
	if err := c.rdb.Set(ctx, stageCacheKey, raw, c.ttl).Err(); err != nil {
		slog.Warn("stage cache write failed", "err", err)
	}
}

// Invalidate drops the cached list. Called after every registry mutation so
// readers never see a stale ordering from this client's own writes.
func (c *StageCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, stageCacheKey).Err(); err != nil {
		slog.Warn("stage cache invalidate failed", "err", err)
	}
}
