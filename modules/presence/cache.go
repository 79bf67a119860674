package presence

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultAudienceTTL bounds how stale a cached audience may be. New chats
// show up in presence fan-out after at most this long.
const DefaultAudienceTTL = 30 * time.Second

// AudienceCache is a cache-aside decorator over an AudienceSource backed
// by Redis. Cache failures degrade to the underlying source.
type AudienceCache struct {
	client *redis.Client
	source AudienceSource
	prefix string
	ttl    time.Duration
}

var _ AudienceSource = (*AudienceCache)(nil)

// NewAudienceCache wraps an AudienceSource with a Redis cache.
func NewAudienceCache(client *redis.Client, source AudienceSource, ttl time.Duration) *AudienceCache {
	if ttl <= 0 {
		ttl = DefaultAudienceTTL
	}
	return &AudienceCache{
		client: client,
		source: source,
		prefix: "presence:audience:",
		ttl:    ttl,
	}
}

// Audience returns the cached audience when fresh, otherwise computes and
// stores it.
func (c *AudienceCache) Audience(ctx context.Context, userID string) ([]string, error) {
	key := c.prefix + userID

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var audience []string
		if err := json.Unmarshal(data, &audience); err == nil {
			return audience, nil
		}
		log.Printf("[presence] Discarding unreadable cache entry for %s", userID)
	} else if err != redis.Nil {
		log.Printf("[presence] Cache get error, falling back to source: %v", err)
	}

	audience, err := c.source.Audience(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(audience); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			log.Printf("[presence] Cache set error: %v", err)
		}
	}

	return audience, nil
}

// Invalidate drops the cached audience for a user.
func (c *AudienceCache) Invalidate(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, c.prefix+userID).Err(); err != nil {
		log.Printf("[presence] Cache delete error: %v", err)
	}
}
