// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// response.go provides a Valkey-backed cache for public JSON responses.
// The public event listing and event detail endpoints are read far more
// often than events change, so their encoded bodies are stored in Valkey
// and dropped whenever an event or one of its registrations changes.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// responseKeyPrefix is the Valkey key prefix for cached responses.
	responseKeyPrefix = "resp:"

	// DefaultResponseTTL is how long a response stays cached.
	DefaultResponseTTL = 5 * time.Minute
)

// ResponseCache manages cached response bodies in Valkey. Every method is
// best-effort: errors are logged and treated as a miss.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResponseCache creates a response cache backed by the given Valkey client.
func NewResponseCache(client *redis.Client, ttl time.Duration) *ResponseCache {
	if ttl == 0 {
		ttl = DefaultResponseTTL
	}
	return &ResponseCache{client: client, ttl: ttl}
}

// Get retrieves a cached body. The second result is false on a miss.
func (rc *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := rc.client.Get(ctx, responseKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("response cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("response cache hit", "key", key)
	return val, true
}

// Set stores a body with the configured TTL.
func (rc *ResponseCache) Set(ctx context.Context, key string, body []byte) {
	if err := rc.client.Set(ctx, responseKeyPrefix+key, body, rc.ttl).Err(); err != nil {
		slog.Warn("response cache set error", "key", key, "error", err)
	}
}

// InvalidateEvent drops the cached detail of one event and the listing,
// which embeds every event.
func (rc *ResponseCache) InvalidateEvent(ctx context.Context, id uuid.UUID) {
	keys := []string{responseKeyPrefix + EventListKey(), responseKeyPrefix + EventKey(id)}
	if err := rc.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("response cache invalidate error", "event_id", id, "error", err)
		return
	}
	slog.Debug("response cache invalidated", "event_id", id)
}

// InvalidateAll removes all cached responses by scanning for the prefix.
func (rc *ResponseCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := rc.client.Scan(ctx, cursor, responseKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("response cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("response cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("response cache fully cleared", "deleted", deleted)
	}
}

// EventListKey returns the cache key for the public event listing.
func EventListKey() string {
	return "events"
}

// EventKey returns the cache key for one public event.
func EventKey(id uuid.UUID) string {
	return "events:" + id.String()
}
