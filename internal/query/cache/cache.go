// Package cache provides a Redis-backed cache for postprocessed query
// responses. Every cache failure degrades to a live backend query.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"bench-archive/internal/common/database"
	"bench-archive/internal/common/logger"
)

type ResponseCache struct {
	client *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func New(client *database.RedisClient, ttl time.Duration, log logger.Logger) *ResponseCache {
	return &ResponseCache{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "response-cache"}),
	}
}

// Key derives the cache key for a resource and its validated payload.
// Map keys marshal in sorted order, so equal payloads hash equally.
func Key(resource string, payload map[string]interface{}) string {
	body, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(append([]byte(resource+"\x00"), body...))
	return "query:" + resource + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached response body for key, if any.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || key == "" {
		return nil, false
	}
	val, err := c.client.Get(ctx, key)
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return nil, false
	}
	return []byte(val), true
}

// Set stores the response body for key with the configured TTL.
func (c *ResponseCache) Set(ctx context.Context, key string, body []byte) {
	if c == nil || key == "" {
		return
	}
	if err := c.client.Set(ctx, key, body, c.ttl); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
