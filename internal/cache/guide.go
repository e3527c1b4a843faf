package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// GuideCache stores computed aim guides in Redis. Guides are pure functions
// of their request, so an entry never needs invalidating before its TTL.
// A GuideCache with a nil client is disabled: Get always misses and Set
// does nothing.
type GuideCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewGuideCache(rdb *redis.Client, ttl time.Duration) *GuideCache {
	return &GuideCache{rdb: rdb, ttl: ttl}
}

func (c *GuideCache) Enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

// Key hashes the JSON encoding of req under a per-game prefix and the preset
// version the guide was computed with. Equal requests must encode
// identically, so pass structs.
func Key(game string, presetVersion uint64, req any) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	return fmt.Sprintf("guide:%s:%d:%016x", game, presetVersion, xxhash.Sum64(raw)), nil
}

// Get decodes the cached value for key into out and reports whether it was
// present.
func (c *GuideCache) Get(ctx context.Context, key string, out any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (c *GuideCache) Set(ctx context.Context, key string, v any) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return c.rdb.SetEx(ctx, key, raw, c.ttl).Err()
}
