package provider

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pixel-knight/pixelknight/config"
)

const defaultCacheTTL = time.Hour

// ModelCache keeps per-provider model lists in Redis with a TTL so repeated
// model dropdown loads do not hammer upstream APIs. A nil cache (Redis not
// configured) is valid and behaves as a permanent miss.
type ModelCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewModelCache connects to Redis per the config, returning nil when no
// Redis host is configured.
func NewModelCache(cfg config.RedisConfig) *ModelCache {
	if !cfg.Enabled() {
		return nil
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &ModelCache{
		client: client,
		ttl:    ttl,
		logger: log.New(log.Writer(), "[PROVIDER] ", log.LstdFlags),
	}
}

func cacheKey(providerID string) string { return "pixelknight:models:" + providerID }

// Get returns the cached model list for a provider, if present.
func (c *ModelCache) Get(ctx context.Context, providerID string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, cacheKey(providerID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Printf("model cache get: %v", err)
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, false
	}
	return ids, true
}

// Put stores a model list with the configured TTL. Failures are logged and
// otherwise ignored.
func (c *ModelCache) Put(ctx context.Context, providerID string, ids []string) {
	if c == nil {
		return
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(providerID), b, c.ttl).Err(); err != nil {
		c.logger.Printf("model cache put: %v", err)
	}
}

// Invalidate drops a provider's cached model list.
func (c *ModelCache) Invalidate(ctx context.Context, providerID string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(providerID)).Err(); err != nil {
		c.logger.Printf("model cache invalidate: %v", err)
	}
}

// Close releases the Redis connection.
func (c *ModelCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
